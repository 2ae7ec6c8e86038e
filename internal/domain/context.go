// Package domain contains the value types shared by the assistant components.
package domain

import "strings"

// Role is the team role of the user talking to the assistant.
type Role string

// Role tiers, from most to least privileged.
const (
	RoleOwner        Role = "owner"
	RoleAdmin        Role = "admin"
	RoleManager      Role = "manager"
	RoleCollaborator Role = "collaborator"
	RoleGuest        Role = "guest"
)

// ParseRole maps a host-supplied role label to a Role.
// Unknown labels yield the empty Role, which every gate denies.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "owner", "proprietaire":
		return RoleOwner
	case "admin", "administrator", "administrateur":
		return RoleAdmin
	case "manager":
		return RoleManager
	case "collaborator", "collaborateur", "member", "membre":
		return RoleCollaborator
	case "guest", "invite":
		return RoleGuest
	default:
		return ""
	}
}

// AssistantContext is the host-owned snapshot of where the user is and who they are.
// The engine only reads it; the host replaces it on every route or state change.
type AssistantContext struct {
	CurrentPage     string `json:"currentPage,omitempty"`
	CurrentGroupID  string `json:"currentGroupId,omitempty"`
	UserID          string `json:"userId,omitempty"`
	UserName        string `json:"userName,omitempty"`
	CurrentUserRole Role   `json:"currentUserRole,omitempty"`
	AdminMode       bool   `json:"adminMode"`
	ActiveProjectID string `json:"activeProjectId,omitempty"`
}
