package models

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// Caller is the authenticated identity handed to services by the HTTP layer.
// Users are owned by the identity provider, so there is no users table here.
type Caller struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}

// IsReviewer reports whether the caller may see results before approval.
func (c Caller) IsReviewer() bool {
	return c.Role == RoleTeacher || c.Role == RoleAdmin
}

func ValidRole(role UserRole) bool {
	switch role {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}
