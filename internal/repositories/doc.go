// Package repositories implements SQLite persistence for the session slot and the reference backend.
//
// Key Implementations:
//   - [SessionRepository] : Single credential slot per backend scope, read at startup by the session store
//   - [UserRepository] : Accounts with bcrypt password hashes and unique emails
//   - [PlaylistRepository] : Playlists scoped to their owner; songs are stored as an ordered JSON array
//
// Users and playlists are soft deleted via deleted_at timestamps and excluded from queries by default.
// Sequence numbers from [NextSequence] give playlists a stable insertion order independent of UUIDs.
package repositories
