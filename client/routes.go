package client

// Route names the screens the client can show. Navigation is modeled as a
// plain interface so the state stores stay independent of any ui toolkit.
type Route string

const (
	RouteLanding   Route = "/"
	RouteLogin     Route = "/login"
	RouteSetup     Route = "/setup-company"
	RouteDashboard Route = "/dashboard"
	RouteRequests  Route = "/requests"
)

// Navigator receives navigation decisions from the stores. replace indicates
// the previous screen should not remain in history.
type Navigator interface {
	Navigate(route Route, replace bool)
	Current() Route
}

// ResolveRoute is the routing guard. It maps the requested screen to the one
// the user is actually allowed to see given their auth and workspace state.
func ResolveRoute(authenticated, hasWorkspace bool, requested Route) Route {
	if !authenticated {
		switch requested {
		case RouteLanding, RouteLogin:
			return requested
		default:
			return RouteLogin
		}
	}

	if !hasWorkspace {
		return RouteSetup
	}

	switch requested {
	case RouteLanding, RouteLogin, RouteSetup:
		return RouteDashboard
	default:
		return requested
	}
}
