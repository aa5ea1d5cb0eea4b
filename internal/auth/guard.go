package auth

import "github.com/terraincognita07/medremind/internal/models"

const AuthPath = "/auth"

type Action int

const (
	ActionWait Action = iota
	ActionRedirect
	ActionRender
)

type Decision struct {
	Action   Action
	Location string
}

// Guard decides what a role-gated screen does for state. A loading state
// always waits, even without a session.
func Guard(state State, required models.Role) Decision {
	if state.Loading {
		return Decision{Action: ActionWait}
	}
	if !state.Authenticated() {
		return Decision{Action: ActionRedirect, Location: AuthPath}
	}
	if state.Role != required {
		return Decision{Action: ActionRedirect, Location: HomePath(state.Role)}
	}
	return Decision{Action: ActionRender}
}

func HomePath(role models.Role) string {
	switch role {
	case models.RoleDoctor:
		return "/doctor"
	case models.RoleMedicalStore:
		return "/store"
	case models.RolePatient:
		return "/patient"
	default:
		return AuthPath
	}
}
