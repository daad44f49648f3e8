package client

import "testing"

func TestResolveRoute(t *testing.T) {
	cases := []struct {
		authenticated bool
		hasWorkspace  bool
		requested     Route
		expected      Route
	}{
		// Signed out users can only see the landing and login screens.
		{false, false, RouteLanding, RouteLanding},
		{false, false, RouteLogin, RouteLogin},
		{false, false, RouteDashboard, RouteLogin},
		{false, false, RouteRequests, RouteLogin},
		{false, false, RouteSetup, RouteLogin},

		// Signed in without a workspace everything leads to setup.
		{true, false, RouteLanding, RouteSetup},
		{true, false, RouteDashboard, RouteSetup},
		{true, false, RouteSetup, RouteSetup},

		// Fully set up users skip the auth and setup screens.
		{true, true, RouteLanding, RouteDashboard},
		{true, true, RouteLogin, RouteDashboard},
		{true, true, RouteSetup, RouteDashboard},
		{true, true, RouteDashboard, RouteDashboard},
		{true, true, RouteRequests, RouteRequests},
	}

	for _, c := range cases {
		got := ResolveRoute(c.authenticated, c.hasWorkspace, c.requested)
		if got != c.expected {
			t.Fatalf("ResolveRoute(%v, %v, %v) = %v, want %v", c.authenticated, c.hasWorkspace, c.requested, got, c.expected)
		}
	}
}
