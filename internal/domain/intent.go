package domain

// Category groups related actions (task, project, meeting, ...).
type Category string

// Action is a single operation the assistant knows how to perform.
type Action string

// Categories.
const (
	CategoryUnknown      Category = "unknown"
	CategoryGreeting     Category = "greeting"
	CategoryHelp         Category = "help"
	CategoryTask         Category = "task"
	CategoryProject      Category = "project"
	CategoryMeeting      Category = "meeting"
	CategoryAbsence      Category = "absence"
	CategoryRecruitment  Category = "recruitment"
	CategoryTeam         Category = "team"
	CategoryNotification Category = "notification"
	CategoryNavigation   Category = "navigation"
	CategorySearch       Category = "search"
	CategorySettings     Category = "settings"
	CategoryExport       Category = "export"
	CategoryStats        Category = "stats"
	CategoryOnboarding   Category = "onboarding"
	CategoryConversation Category = "conversation"
)

// Actions. The set is closed: the dispatcher handles every one of them.
const (
	ActionUnknown Action = "unknown"

	ActionGreet        Action = "greet"
	ActionThanks       Action = "thanks"
	ActionGoodbye      Action = "goodbye"
	ActionHelp         Action = "help"
	ActionCapabilities Action = "capabilities"

	ActionCreateTask   Action = "create_task"
	ActionUpdateTask   Action = "update_task"
	ActionDeleteTask   Action = "delete_task"
	ActionListTasks    Action = "list_tasks"
	ActionCompleteTask Action = "complete_task"
	ActionSearchTasks  Action = "search_tasks"
	ActionAssignTask   Action = "assign_task"

	ActionCreateProject  Action = "create_project"
	ActionUpdateProject  Action = "update_project"
	ActionDeleteProject  Action = "delete_project"
	ActionListProjects   Action = "list_projects"
	ActionSearchProjects Action = "search_projects"

	ActionCreateMeeting Action = "create_meeting"
	ActionCancelMeeting Action = "cancel_meeting"
	ActionListMeetings  Action = "list_meetings"

	ActionRequestAbsence Action = "request_absence"
	ActionListAbsences   Action = "list_absences"
	ActionApproveAbsence Action = "approve_absence"
	ActionRejectAbsence  Action = "reject_absence"

	ActionCreateJobOffer Action = "create_job_offer"
	ActionListCandidates Action = "list_candidates"

	ActionInviteMember Action = "invite_member"
	ActionListMembers  Action = "list_members"

	ActionListNotifications     Action = "list_notifications"
	ActionMarkNotificationsRead Action = "mark_notifications_read"

	ActionNavigate        Action = "navigate"
	ActionSearch          Action = "search"
	ActionChangeTheme     Action = "change_theme"
	ActionToggleAdminMode Action = "toggle_admin_mode"
	ActionExportData      Action = "export_data"
	ActionShowStats       Action = "show_stats"
	ActionStartOnboarding Action = "start_onboarding"

	ActionClearConversation Action = "clear_conversation"
)

// Entity keys shared between the classifier, flows and the dispatcher.
const (
	EntityDate         = "date"
	EntityEndDate      = "endDate"
	EntityTime         = "time"
	EntityName         = "name"
	EntityPriority     = "priority"
	EntityStatus       = "status"
	EntityAbsenceType  = "absenceType"
	EntityMeetingType  = "meetingType"
	EntityExportFormat = "format"
	EntityTheme        = "theme"
	EntityTarget       = "target"
	EntityQuery        = "query"
	EntityAssignee     = "assignee"
	EntityEmail        = "email"
)

// Intent is the classification of one user turn.
type Intent struct {
	Category   Category          `json:"category"`
	Action     Action            `json:"action"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities,omitempty"`
	RawText    string            `json:"rawText"`
}

// IsUnknown reports whether no action could be recognised.
func (i Intent) IsUnknown() bool {
	return i.Action == "" || i.Action == ActionUnknown
}

// Entity returns the entity value for key, or "".
func (i Intent) Entity(key string) string {
	if i.Entities == nil {
		return ""
	}
	return i.Entities[key]
}
