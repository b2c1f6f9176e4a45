// Package server implements the local backend that the mixtape client talks to during development.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers "METHOD /path" patterns on an [http.ServeMux]. Route level
// middleware, such as [RequireAuth], runs inside the router-wide stack.
//
// # Contract
//
//	POST   /auth/register   {username, email, password} → 201 {message}, 409 on a taken email
//	POST   /auth/login      {email, password}           → {data: {token}}, 401 on bad credentials
//	GET    /playlists/                                   → {data: [playlist]}
//	POST   /playlists/      {name, description}          → 201 {data: playlist}
//	GET    /playlists/{id}                               → {data: playlist}, 404 {message}
//	PUT    /playlists/{id}  {name?, description?, songs?} → {data: playlist}
//	DELETE /playlists/{id}                               → {message}
//
// Playlist routes read the raw token from the Authorization header. Tokens are HS256 JWTs whose subject
// is the user id; a playlist owned by someone else answers 404.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
