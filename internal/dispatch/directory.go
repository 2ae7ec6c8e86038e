package dispatch

import (
	"context"
	"time"
)

// Collection names a host-side data set the assistant can read.
type Collection string

// Collections.
const (
	CollectionTasks         Collection = "tasks"
	CollectionProjects      Collection = "projects"
	CollectionMeetings      Collection = "meetings"
	CollectionAbsences      Collection = "absences"
	CollectionCandidates    Collection = "candidates"
	CollectionMembers       Collection = "members"
	CollectionNotifications Collection = "notifications"
)

// Query filters one collection for the current user.
type Query struct {
	Collection Collection
	UserID     string
	GroupID    string
	ProjectID  string
	Status     string
	Text       string
	Date       string
	Limit      int
}

// Record is a summary row returned by the host.
type Record struct {
	ID       string
	Title    string
	Subtitle string
	Status   string
	Link     string
	Date     time.Time
}

// Directory is the read seam into the host application's data.
type Directory interface {
	Query(ctx context.Context, q Query) ([]Record, error)
	Count(ctx context.Context, q Query) (int, error)
}

// EmptyDirectory answers every query with no rows. It is the default until
// the host wires its own services.
type EmptyDirectory struct{}

// Query implements Directory.
func (EmptyDirectory) Query(context.Context, Query) ([]Record, error) { return nil, nil }

// Count implements Directory.
func (EmptyDirectory) Count(context.Context, Query) (int, error) { return 0, nil }
