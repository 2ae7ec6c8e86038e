package dispatch

import (
	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/suggest"
)

// curated lists the suggestion ids offered after each action.
var curated = map[domain.Action][]string{
	domain.ActionGreet:        {"help", "task-list", "meeting-list"},
	domain.ActionThanks:       {"help", "task-create"},
	domain.ActionHelp:         {"help", "task-create", "meeting-create", "nav-dashboard"},
	domain.ActionCapabilities: {"task-create", "meeting-create", "absence-request", "search"},

	domain.ActionCreateTask:   {"task-list", "task-create"},
	domain.ActionUpdateTask:   {"task-list"},
	domain.ActionDeleteTask:   {"task-list"},
	domain.ActionCompleteTask: {"task-list", "stats-show"},
	domain.ActionAssignTask:   {"task-list"},
	domain.ActionListTasks:    {"task-create", "task-overdue"},
	domain.ActionSearchTasks:  {"task-list", "search"},

	domain.ActionCreateProject:  {"project-list", "task-create"},
	domain.ActionUpdateProject:  {"project-list"},
	domain.ActionDeleteProject:  {"project-list"},
	domain.ActionListProjects:   {"project-create", "task-list"},
	domain.ActionSearchProjects: {"project-list", "search"},

	domain.ActionCreateMeeting: {"meeting-list", "meeting-create"},
	domain.ActionCancelMeeting: {"meeting-list"},
	domain.ActionListMeetings:  {"meeting-create", "absence-list"},

	domain.ActionRequestAbsence: {"absence-list"},
	domain.ActionListAbsences:   {"absence-request"},
	domain.ActionApproveAbsence: {"absence-list"},
	domain.ActionRejectAbsence:  {"absence-list"},

	domain.ActionCreateJobOffer: {"recruitment-candidates"},
	domain.ActionListCandidates: {"recruitment-offer"},

	domain.ActionInviteMember: {"team-list"},
	domain.ActionListMembers:  {"team-invite"},

	domain.ActionListNotifications:     {"notif-read", "task-list"},
	domain.ActionMarkNotificationsRead: {"task-list"},

	domain.ActionNavigate:          {"help"},
	domain.ActionSearch:            {"search", "task-list"},
	domain.ActionChangeTheme:       {"theme-dark", "theme-light"},
	domain.ActionToggleAdminMode:   {"stats-show", "team-invite"},
	domain.ActionExportData:        {"stats-show"},
	domain.ActionShowStats:         {"task-overdue", "export-csv"},
	domain.ActionStartOnboarding:   {"help", "nav-dashboard"},
	domain.ActionClearConversation: {"help", "task-list"},
}

func followUps(action domain.Action) []domain.Suggestion {
	ids, ok := curated[action]
	if !ok {
		return nil
	}
	return suggest.ByID(ids...)
}
