package core

// Role claims issued by the upstream identity service.
// This service never stores users; it only reads role prefixes off the JWT.
const (
	RoleAdmin   = "admin:"
	RoleTeacher = "teacher:"
	RoleStudent = "student:"
	RoleParent  = "parent:"
)

var AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent, RoleParent}

// Actor identifies the authenticated caller as asserted by its token claims.
type Actor struct {
	ID    string
	Name  string
	Roles []string
}
