package authz

import "errors"

// Deny reasons surfaced to the hosting layer. The HTTP layer maps these to
// status codes; the reason strings double as machine-readable codes in the
// response envelope.
var (
	ErrRoleNotPermitted  = errors.New("role not permitted")
	ErrOutOfScope        = errors.New("out of scope")
	ErrNotAssignee       = errors.New("not the assignee")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnassigned        = errors.New("admin has no region assignment")
	ErrNotFound          = errors.New("not found")
)

// ReasonCode returns the stable code for a deny error, or "" for errors
// outside the taxonomy.
func ReasonCode(err error) string {
	switch {
	case errors.Is(err, ErrRoleNotPermitted):
		return "ROLE_NOT_PERMITTED"
	case errors.Is(err, ErrOutOfScope):
		return "OUT_OF_SCOPE"
	case errors.Is(err, ErrNotAssignee):
		return "NOT_ASSIGNEE"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrUnassigned):
		return "UNASSIGNED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	}
	return ""
}
