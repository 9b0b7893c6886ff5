package routing

import (
	"petshop/internal/logging"
	"petshop/internal/types"
)

// Decision is the outcome of guarding a route.
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case RedirectLogin:
		return "redirect-login"
	case Forbidden:
		return "forbidden"
	default:
		return "allow"
	}
}

// Guard decides whether s may open r.
//
// Admin routes: no token redirects to login, any role other than ADMIN is
// forbidden. Authenticated routes: no token redirects to login.
func Guard(r Route, s types.Session) Decision {
	var d Decision
	switch r.Access() {
	case Public:
		d = Allow
	case Authenticated:
		if !s.Authenticated() {
			d = RedirectLogin
		} else {
			d = Allow
		}
	case AdminOnly:
		switch {
		case !s.Authenticated():
			d = RedirectLogin
		case s.Role != types.RoleAdmin:
			d = Forbidden
		default:
			d = Allow
		}
	}
	if d != Allow {
		logging.RoutingDebug("Guard %s (%s) role=%q: %s", r, r.Access(), s.Role, d)
	}
	return d
}
