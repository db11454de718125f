package users

import "strings"

// RoleType represents a user's coarse permission class within the LMS.
type RoleType string

const (
	RoleStudent RoleType = "student" // Can browse courses, enrol, and submit assignments
	RoleTeacher RoleType = "teacher" // Can create courses and assignments, and grade submissions
	RoleAdmin   RoleType = "admin"   // Full administrative access
)

// User is the authenticated principal as returned by GET /users/profile/.
// The record is read-only on the client: it is only ever replaced wholesale by
// a fresh profile fetch, never mutated field by field. In particular Role is
// authoritative server state; nothing in this module changes it locally.
type User struct {
	ID        int64    `json:"id,omitempty"`         // Unique identifier for the user
	Username  string   `json:"username,omitempty"`   // Unique username
	Email     string   `json:"email,omitempty"`      // User's email address
	FirstName string   `json:"first_name,omitempty"` // First name of the user
	LastName  string   `json:"last_name,omitempty"`  // Last name of the user
	Role      RoleType `json:"role,omitempty"`       // Permission class (student, teacher, admin)
}

// FullName returns the user's display name, falling back to the username when
// no name fields are set.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// HasRole reports whether the user's role is one of the given roles.
func (u *User) HasRole(roles ...RoleType) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// IsAdmin returns true if the user has administrative privileges
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsStaff reports whether the user may reach teaching surfaces (teachers and
// admins both qualify).
func (u *User) IsStaff() bool {
	return u.Role == RoleTeacher || u.Role == RoleAdmin
}
