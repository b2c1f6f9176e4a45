// Package services implements the HTTP clients the mixtape client talks to.
//
// # Catalog
//
// [CatalogClient] exchanges Spotify client credentials for an app token ([CatalogClient.AcquireToken]) and searches
// tracks with that token ([CatalogClient.Search]). It holds no token state; the search controller owns the token
// and never refreshes it.
//
// # Auth
//
// [AuthClient] registers accounts and logs in. Forms are validated locally first, so a [shared.ValidationError]
// means no request was sent.
//
// # Playlists
//
// [PlaylistClient] wraps the playlist backend. Every request carries the raw session token from its [TokenSource]
// in the Authorization header, read when the request is sent. Reads are cached under playlists:list and
// playlists:<id>; mutations invalidate both.
//
// # Error Handling
//
// Clients return typed errors from the shared package:
//   - [shared.RequestError] : non-success response from the auth or playlist backend
//   - [shared.AuthExchangeError] : catalog token exchange failed
//   - [shared.SearchError] : catalog search failed
//   - [shared.ErrAPIRequest] : transport failure or malformed response
//
// None of the clients retry.
package services
