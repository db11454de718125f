// Package guard turns session state into routing decisions. It is pure: no
// network, no mutation, no navigation side effects. Routing layers react to
// the returned Decision; nothing here touches the session.
package guard

import (
	"github.com/jrsteele09/go-lms-client/session"
	"github.com/jrsteele09/go-lms-client/users"
)

// Decision is the outcome of an access check.
type Decision string

const (
	// Allow grants access to the protected destination.
	Allow Decision = "allow"
	// Pending means the session is still restoring; render a neutral loading
	// state and re-evaluate once it stabilises. Never grants or denies early.
	Pending Decision = "pending"
	// RedirectLogin sends the user to re-authentication.
	RedirectLogin Decision = "redirect_login"
	// RedirectUnauthorized sends an authenticated user with the wrong role to
	// the access-denied view. The session itself stays intact.
	RedirectUnauthorized Decision = "redirect_unauthorized"
)

// Well-known destinations for the decisions above.
const (
	LoginPath            = "/login"
	UnauthorizedPath     = "/unauthorized"
	StudentDashboardPath = "/student/dashboard"
	TeacherDashboardPath = "/teacher/dashboard"
	AdminDashboardPath   = "/admin/dashboard"
)

// Decide maps the session snapshot and the destination's required roles to a
// routing decision. An empty requiredRoles means any authenticated user may
// pass. A session that is refreshing still counts as authenticated here: the
// cached identity remains valid while the token is being replaced.
func Decide(snap session.Snapshot, requiredRoles ...users.RoleType) Decision {
	switch snap.Status {
	case session.StatusRestoring:
		return Pending
	case session.StatusAnonymous, session.StatusExpired:
		return RedirectLogin
	}

	if len(requiredRoles) == 0 {
		return Allow
	}
	if snap.Identity == nil || !snap.Identity.HasRole(requiredRoles...) {
		return RedirectUnauthorized
	}
	return Allow
}

// LandingPathFor returns the default destination for a freshly authenticated
// role. Admin takes precedence over teacher when the role is exactly admin;
// anything unrecognised lands on the student dashboard.
func LandingPathFor(role users.RoleType) string {
	switch role {
	case users.RoleAdmin:
		return AdminDashboardPath
	case users.RoleTeacher:
		return TeacherDashboardPath
	default:
		return StudentDashboardPath
	}
}

// PathFor returns the navigation target for a redirect decision, or an empty
// string when the decision carries no destination.
func PathFor(decision Decision) string {
	switch decision {
	case RedirectLogin:
		return LoginPath
	case RedirectUnauthorized:
		return UnauthorizedPath
	default:
		return ""
	}
}
