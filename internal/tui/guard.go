package tui

import "github.com/bmbranch/branchdesk/internal/session"

type route int

const (
	routeNone route = iota
	routeLogin
	routeDaily
	routeRuns
	routeClients
	routeSOS
)

// defaultRoute is where a fresh login lands when no origin was recorded.
const defaultRoute = routeDaily

func (r route) String() string {
	switch r {
	case routeLogin:
		return "login"
	case routeDaily:
		return "daily"
	case routeRuns:
		return "runs"
	case routeClients:
		return "clients"
	case routeSOS:
		return "sos"
	}
	return "none"
}

func (r route) protected() bool {
	return r != routeLogin && r != routeNone
}

type decisionKind int

const (
	decisionRender decisionKind = iota
	decisionLoading
	decisionRedirect
)

type guardDecision struct {
	kind decisionKind
	to   route
	// from is the route the user asked for before being sent to login.
	from route
}

// guard decides what to show for r given the session state. from is the
// origin recorded by an earlier redirect to login, or routeNone.
func guard(state session.State, r route, from route) guardDecision {
	if r.protected() {
		switch state {
		case session.StateAuthenticated:
			return guardDecision{kind: decisionRender, to: r}
		case session.StateUnauthenticated:
			return guardDecision{kind: decisionRedirect, to: routeLogin, from: r}
		default:
			// Still rehydrating; never redirect on a maybe.
			return guardDecision{kind: decisionLoading, to: r}
		}
	}

	if r == routeLogin && state == session.StateAuthenticated {
		dest := defaultRoute
		if from.protected() {
			dest = from
		}
		return guardDecision{kind: decisionRedirect, to: dest}
	}
	return guardDecision{kind: decisionRender, to: r}
}
