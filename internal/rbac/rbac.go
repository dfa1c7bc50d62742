package rbac

import "fmt"

type Role string
type Action string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

const (
	// ActionRead covers listing records and reference lists.
	ActionRead Action = "read"
	// ActionWrite covers creating/updating records and adding reference items.
	ActionWrite Action = "write"
	// ActionDelete covers permanent record deletion.
	ActionDelete Action = "delete"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return action == ActionRead || action == ActionWrite || action == ActionDelete
	case RoleEditor:
		return action == ActionRead || action == ActionWrite
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

// Normalize collapses anything outside the closed set to viewer.
func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleEditor, RoleAdmin:
		return Role(role)
	default:
		return RoleViewer
	}
}

// Parse is the strict variant used where an operator names a role explicitly.
func Parse(role string) (Role, error) {
	switch Role(role) {
	case RoleViewer, RoleEditor, RoleAdmin:
		return Role(role), nil
	default:
		return "", fmt.Errorf("unknown role %q (want admin, editor or viewer)", role)
	}
}
