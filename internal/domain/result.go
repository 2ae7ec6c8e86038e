package domain

// ErrorKind classifies a failed or degraded turn.
type ErrorKind string

// Error kinds surfaced on ActionResult.
const (
	ErrorUnknownIntent      ErrorKind = "unknown_intent"
	ErrorPermissionDenied   ErrorKind = "permission_denied"
	ErrorValidation         ErrorKind = "validation_error"
	ErrorCommandNotFound    ErrorKind = "command_not_found"
	ErrorPersistenceFailure ErrorKind = "persistence_failure"
	ErrorDomainFailure      ErrorKind = "domain_failure"
	ErrorTimeout            ErrorKind = "timeout"
)

// Suggestion is a pre-canned input the user can send with one click.
type Suggestion struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Icon        string   `json:"icon,omitempty"`
	Query       string   `json:"query"`
	Category    Category `json:"category"`
	Description string   `json:"description,omitempty"`
	Action      Action   `json:"-"`
}

// SideEffects are state changes the host applies after a turn.
type SideEffects struct {
	Theme             string `json:"theme,omitempty"`
	AdminMode         *bool  `json:"adminMode,omitempty"`
	ClearConversation bool   `json:"clearConversation,omitempty"`
}

// ActionResult is what the dispatcher returns for one action.
type ActionResult struct {
	Success             bool         `json:"success"`
	Message             string       `json:"message"`
	Attachment          Attachment   `json:"-"`
	FollowUpSuggestions []Suggestion `json:"followUpSuggestions,omitempty"`
	NavigateTo          string       `json:"navigateTo,omitempty"`
	SideEffects         *SideEffects `json:"sideEffects,omitempty"`
	ErrorKind           ErrorKind    `json:"errorKind,omitempty"`
}

// Failed builds an unsuccessful result of the given kind.
func Failed(kind ErrorKind, message string) ActionResult {
	return ActionResult{Success: false, Message: message, ErrorKind: kind}
}
