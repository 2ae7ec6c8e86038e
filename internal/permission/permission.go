// Package permission decides which roles may run which assistant actions.
package permission

import "github.com/ashureev/teamhub/internal/domain"

// DeniedMessage is shown whenever the gate rejects an action.
const DeniedMessage = "Désolé, vous n'avez pas les droits nécessaires pour effectuer cette action."

type set map[domain.Action]struct{}

func newSet(actions ...domain.Action) set {
	s := make(set, len(actions))
	for _, a := range actions {
		s[a] = struct{}{}
	}
	return s
}

func (s set) has(a domain.Action) bool {
	_, ok := s[a]
	return ok
}

var managerDenied = newSet(
	domain.ActionToggleAdminMode,
	domain.ActionDeleteProject,
)

var collaboratorAllowed = newSet(
	domain.ActionGreet, domain.ActionThanks, domain.ActionGoodbye,
	domain.ActionHelp, domain.ActionCapabilities,
	domain.ActionListTasks, domain.ActionCreateTask, domain.ActionUpdateTask,
	domain.ActionCompleteTask, domain.ActionSearchTasks,
	domain.ActionListProjects, domain.ActionSearchProjects,
	domain.ActionCreateMeeting, domain.ActionListMeetings,
	domain.ActionRequestAbsence, domain.ActionListAbsences,
	domain.ActionListMembers,
	domain.ActionListNotifications, domain.ActionMarkNotificationsRead,
	domain.ActionNavigate, domain.ActionSearch, domain.ActionChangeTheme,
	domain.ActionShowStats, domain.ActionStartOnboarding,
	domain.ActionClearConversation,
)

var guestAllowed = newSet(
	domain.ActionGreet, domain.ActionThanks, domain.ActionGoodbye,
	domain.ActionHelp, domain.ActionCapabilities,
	domain.ActionListTasks, domain.ActionListProjects, domain.ActionListMeetings,
	domain.ActionListNotifications,
	domain.ActionNavigate, domain.ActionSearch, domain.ActionChangeTheme,
	domain.ActionStartOnboarding, domain.ActionClearConversation,
)

// IsAllowed is a pure function of its inputs. Unknown roles and the
// unknown action are always denied.
func IsAllowed(action domain.Action, role domain.Role) bool {
	if action == "" || action == domain.ActionUnknown {
		return false
	}
	switch role {
	case domain.RoleOwner, domain.RoleAdmin:
		return true
	case domain.RoleManager:
		return !managerDenied.has(action)
	case domain.RoleCollaborator:
		return collaboratorAllowed.has(action)
	case domain.RoleGuest:
		return guestAllowed.has(action)
	default:
		return false
	}
}

// Denied is the fixed result returned for a rejected action.
func Denied() domain.ActionResult {
	return domain.Failed(domain.ErrorPermissionDenied, DeniedMessage)
}

// Gate adapts IsAllowed to the interfaces that accept a checker.
type Gate struct{}

// Allowed implements the checker used by the suggestion engine and the
// assistant pipeline.
func (Gate) Allowed(action domain.Action, role domain.Role) bool {
	return IsAllowed(action, role)
}
