package ui

import "strings"

// Route names a screen of the client.
type Route string

const (
	RouteRoot      Route = "/"
	RouteRegister  Route = "/register"
	RouteLogin     Route = "/login"
	RouteDashboard Route = "/dashboard"

	playlistPrefix = "/playlist/"
)

// PlaylistRoute returns the detail route for a playlist id.
func PlaylistRoute(id string) Route {
	return Route(playlistPrefix + id)
}

// PlaylistID returns the id named by a playlist detail route.
func (r Route) PlaylistID() (string, bool) {
	id, ok := strings.CutPrefix(string(r), playlistPrefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// Protected reports whether the route needs a session token.
func (r Route) Protected() bool {
	if r == RouteDashboard {
		return true
	}
	_, ok := r.PlaylistID()
	return ok
}

// Resolve maps a requested route to the one shown. The root goes to the dashboard with a token and
// to login without one; protected routes fall back to login. Unknown routes resolve like the root.
func Resolve(r Route, authenticated bool) Route {
	switch {
	case r == RouteLogin, r == RouteRegister:
		return r
	case r.Protected() && authenticated:
		return r
	case authenticated:
		return RouteDashboard
	default:
		return RouteLogin
	}
}
