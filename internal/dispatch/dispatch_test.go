package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/render"
)

type fakeDirectory struct {
	records map[Collection][]Record
	counts  map[Collection]int
	err     error
	mu      sync.Mutex
	queries []Query
}

func (f *fakeDirectory) Query(_ context.Context, q Query) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.records[q.Collection], nil
}

func (f *fakeDirectory) Count(_ context.Context, q Query) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[q.Collection], nil
}

type recordingExecutor struct {
	mu       sync.Mutex
	commands []Command
	err      error
}

func (r *recordingExecutor) Execute(_ context.Context, cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	return r.err
}

func first(int) int { return 0 }

func newDispatcher(opts ...Option) *Dispatcher {
	return New(render.MustNew(render.WithPicker(first)), opts...)
}

var owner = domain.AssistantContext{UserID: "u1", UserName: "Marie", CurrentUserRole: domain.RoleOwner}

func intentOf(action domain.Action, entities map[string]string) domain.Intent {
	return domain.Intent{Action: action, Entities: entities}
}

func TestDispatch_TotalOverActions(t *testing.T) {
	t.Parallel()
	d := newDispatcher()
	actions := []domain.Action{
		domain.ActionUnknown, domain.ActionGreet, domain.ActionThanks, domain.ActionGoodbye, domain.ActionHelp,
		domain.ActionCapabilities, domain.ActionCreateTask, domain.ActionUpdateTask, domain.ActionDeleteTask,
		domain.ActionListTasks, domain.ActionCompleteTask, domain.ActionSearchTasks, domain.ActionAssignTask,
		domain.ActionCreateProject, domain.ActionUpdateProject, domain.ActionDeleteProject, domain.ActionListProjects,
		domain.ActionSearchProjects, domain.ActionCreateMeeting, domain.ActionCancelMeeting, domain.ActionListMeetings,
		domain.ActionRequestAbsence, domain.ActionListAbsences, domain.ActionApproveAbsence, domain.ActionRejectAbsence,
		domain.ActionCreateJobOffer, domain.ActionListCandidates, domain.ActionInviteMember, domain.ActionListMembers,
		domain.ActionListNotifications, domain.ActionMarkNotificationsRead, domain.ActionNavigate, domain.ActionSearch,
		domain.ActionChangeTheme, domain.ActionToggleAdminMode, domain.ActionExportData, domain.ActionShowStats,
		domain.ActionStartOnboarding, domain.ActionClearConversation, domain.Action("not_an_action"),
	}
	for _, a := range actions {
		var res domain.ActionResult
		require.NotPanics(t, func() { res = d.Dispatch(context.Background(), intentOf(a, nil), owner) }, a)
		assert.NotEmpty(t, res.Message, a)
		assert.NotContains(t, res.Message, "{", a)
	}
}

func TestDispatch_UnknownAction(t *testing.T) {
	t.Parallel()
	res := newDispatcher().Dispatch(context.Background(), intentOf(domain.Action("nope"), nil), owner)
	assert.False(t, res.Success)
	assert.Equal(t, domain.ErrorUnknownIntent, res.ErrorKind)
}

func TestDispatch_CreateTaskFromCommand(t *testing.T) {
	t.Parallel()
	exec := &recordingExecutor{}
	d := newDispatcher(WithExecutor(exec))

	res := d.Dispatch(context.Background(), intentOf(domain.ActionCreateTask, map[string]string{domain.EntityName: "Corriger le bug"}), owner)

	require.True(t, res.Success)
	assert.Equal(t, "La tâche « Corriger le bug » a été créée.", res.Message)
	require.Len(t, exec.commands, 1)
	assert.Equal(t, domain.ActionCreateTask, exec.commands[0].Action)
	assert.Equal(t, "u1", exec.commands[0].UserID)
	assert.Equal(t, "Corriger le bug", exec.commands[0].Payload[domain.EntityName])

	card, ok := res.Attachment.(domain.CardAttachment)
	require.True(t, ok)
	assert.Equal(t, "Corriger le bug", card.Title)
	assert.NotEmpty(t, res.FollowUpSuggestions)
}

func TestDispatch_CreateMeetingFromFlowPayload(t *testing.T) {
	t.Parallel()
	d := newDispatcher()
	res := d.Dispatch(context.Background(), intentOf(domain.ActionCreateMeeting, map[string]string{
		"title": "Sync", "date": "2025-03-20", "time": "14:30", "type": "video",
	}), owner)

	require.True(t, res.Success)
	assert.Equal(t, "La réunion « Sync » est planifiée le 20 mars 2025 à 14:30.", res.Message)
	card := res.Attachment.(domain.CardAttachment)
	assert.Contains(t, card.Fields, domain.Field{Label: "Type", Value: "Visioconférence"})
}

func TestDispatch_CreateWithMissingDataIsValidationError(t *testing.T) {
	t.Parallel()
	exec := &recordingExecutor{}
	res := newDispatcher(WithExecutor(exec)).Dispatch(context.Background(), intentOf(domain.ActionCreateMeeting, map[string]string{"title": "Sync"}), owner)

	assert.False(t, res.Success)
	assert.Equal(t, domain.ErrorValidation, res.ErrorKind)
	assert.Empty(t, exec.commands)
}

func TestDispatch_MissingTarget(t *testing.T) {
	t.Parallel()
	exec := &recordingExecutor{}
	d := newDispatcher(WithExecutor(exec))

	res := d.Dispatch(context.Background(), intentOf(domain.ActionDeleteTask, nil), owner)
	assert.Equal(t, domain.ErrorValidation, res.ErrorKind)
	assert.Contains(t, res.Message, "supprimer")
	assert.Empty(t, exec.commands)

	res = d.Dispatch(context.Background(), intentOf(domain.ActionDeleteTask, map[string]string{domain.EntityName: "Rapport"}), owner)
	assert.True(t, res.Success)
	assert.Len(t, exec.commands, 1)
}

func TestDispatch_ListEmptyAndFilled(t *testing.T) {
	t.Parallel()
	dir := &fakeDirectory{records: map[Collection][]Record{}}
	d := newDispatcher(WithDirectory(dir))

	res := d.Dispatch(context.Background(), intentOf(domain.ActionListTasks, map[string]string{domain.EntityStatus: "overdue"}), owner)
	require.True(t, res.Success)
	list := res.Attachment.(domain.ListAttachment)
	assert.Empty(t, list.Items)
	assert.Equal(t, "Vous n'avez aucune tâche pour le moment.", list.EmptyText)
	assert.Equal(t, list.EmptyText, res.Message)
	require.Len(t, dir.queries, 1)
	assert.Equal(t, "overdue", dir.queries[0].Status)
	assert.Equal(t, "u1", dir.queries[0].UserID)

	dir.records[CollectionTasks] = []Record{
		{ID: "1", Title: "Rapport", Status: "todo", Date: time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)},
		{ID: "2", Title: "Budget"},
	}
	res = d.Dispatch(context.Background(), intentOf(domain.ActionListTasks, nil), owner)
	assert.Equal(t, "Voici vos tâches (2) :", res.Message)
	list = res.Attachment.(domain.ListAttachment)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "20 mars 2025", list.Items[0].Subtitle)
}

func TestDispatch_SearchAllTagsCollections(t *testing.T) {
	t.Parallel()
	dir := &fakeDirectory{records: map[Collection][]Record{
		CollectionTasks:    {{ID: "t1", Title: "Rapport Alpha"}},
		CollectionProjects: {{ID: "p1", Title: "Alpha"}},
	}}
	res := newDispatcher(WithDirectory(dir)).Dispatch(context.Background(), intentOf(domain.ActionSearch, map[string]string{domain.EntityQuery: "alpha"}), owner)

	list := res.Attachment.(domain.ListAttachment)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "Tâche", list.Items[0].Subtitle)
	assert.Equal(t, "Projet", list.Items[1].Subtitle)
	assert.Contains(t, res.Message, "« alpha »")
}

func TestDispatch_DomainFailureAndTimeout(t *testing.T) {
	t.Parallel()

	failing := newDispatcher(WithExecutor(&recordingExecutor{err: errors.New("boom")}))
	res := failing.Dispatch(context.Background(), intentOf(domain.ActionMarkNotificationsRead, nil), owner)
	assert.False(t, res.Success)
	assert.Equal(t, domain.ErrorDomainFailure, res.ErrorKind)

	slow := ExecutorFunc(func(ctx context.Context, _ Command) error {
		<-ctx.Done()
		return ctx.Err()
	})
	res = newDispatcher(WithExecutor(slow), WithTimeout(10*time.Millisecond)).
		Dispatch(context.Background(), intentOf(domain.ActionExportData, nil), owner)
	assert.Equal(t, domain.ErrorTimeout, res.ErrorKind)

	dir := &fakeDirectory{err: errors.New("db down")}
	res = newDispatcher(WithDirectory(dir)).Dispatch(context.Background(), intentOf(domain.ActionShowStats, nil), owner)
	assert.Equal(t, domain.ErrorDomainFailure, res.ErrorKind)
}

func TestDispatch_Navigate(t *testing.T) {
	t.Parallel()
	d := newDispatcher()

	res := d.Dispatch(context.Background(), intentOf(domain.ActionNavigate, map[string]string{domain.EntityTarget: "projects"}), owner)
	assert.Equal(t, "/projects", res.NavigateTo)
	assert.Equal(t, "Je vous emmène vers Projets.", res.Message)

	res = d.Dispatch(context.Background(), intentOf(domain.ActionNavigate, map[string]string{domain.EntityTarget: "les réglages"}), owner)
	assert.Equal(t, "/settings", res.NavigateTo)

	guest := domain.AssistantContext{CurrentUserRole: domain.RoleGuest}
	res = d.Dispatch(context.Background(), intentOf(domain.ActionNavigate, map[string]string{domain.EntityTarget: "nulle part"}), guest)
	assert.Empty(t, res.NavigateTo)
	nav := res.Attachment.(domain.NavigationAttachment)
	for _, l := range nav.Links {
		assert.NotEqual(t, "/admin", l.Path)
	}
}

func TestDispatch_SideEffects(t *testing.T) {
	t.Parallel()
	d := newDispatcher()

	res := d.Dispatch(context.Background(), intentOf(domain.ActionChangeTheme, map[string]string{domain.EntityTheme: "dark"}), owner)
	require.NotNil(t, res.SideEffects)
	assert.Equal(t, "dark", res.SideEffects.Theme)
	assert.Equal(t, "Thème sombre activé.", res.Message)

	res = d.Dispatch(context.Background(), intentOf(domain.ActionChangeTheme, nil), owner)
	assert.Nil(t, res.SideEffects)

	ctx := owner
	ctx.AdminMode = true
	res = d.Dispatch(context.Background(), intentOf(domain.ActionToggleAdminMode, nil), ctx)
	require.NotNil(t, res.SideEffects.AdminMode)
	assert.False(t, *res.SideEffects.AdminMode)
	assert.Equal(t, "Mode administrateur désactivé.", res.Message)

	res = d.Dispatch(context.Background(), intentOf(domain.ActionClearConversation, nil), owner)
	assert.True(t, res.SideEffects.ClearConversation)
}

func TestDispatch_Stats(t *testing.T) {
	t.Parallel()
	dir := &fakeDirectory{counts: map[Collection]int{CollectionTasks: 4, CollectionMeetings: 2}}
	res := newDispatcher(WithDirectory(dir)).Dispatch(context.Background(), intentOf(domain.ActionShowStats, nil), owner)

	stats := res.Attachment.(domain.StatsAttachment)
	require.Len(t, stats.Stats, len(statQueries))
	assert.Equal(t, 4, stats.Stats[0].Value)
	assert.Equal(t, 2, stats.Stats[3].Value)
}

func TestDispatch_GreetUsesName(t *testing.T) {
	t.Parallel()
	res := newDispatcher().Dispatch(context.Background(), intentOf(domain.ActionGreet, nil), owner)
	assert.Equal(t, "Bonjour Marie ! Comment puis-je vous aider aujourd'hui ?", res.Message)
}
