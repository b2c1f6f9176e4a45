// Package tasks drives the playlist detail view: catalog search while typing and serialized playlist edits.
//
// # Search
//
// A [SearchController] owns one search session for one playlist:
//
//  1. [SearchController.Activate] loads the playlist and requests a catalog token. Search stays disabled
//     until the token arrives and stays disabled if the exchange fails.
//  2. [SearchController.SetQuery] either clears results synchronously (empty query, no token) or re-arms
//     a debounce timer. Each arm bumps a generation counter; only the latest generation may search or
//     store results.
//  3. [SearchController.Results] marks each track as added by checking the latest playlist snapshot,
//     so marks stay correct after adds and removes.
//
// # Mutations
//
// Adds and removes go through a [MutationQueue], which runs at most one update per playlist at a time.
// Each job refetches the playlist, applies its transform to the confirmed song list, sends the full
// list and refetches again. Two quick adds therefore both land on the server.
//
// # Events
//
// Controllers publish [Event] values on a buffered channel. Sends never block; a slow reader misses
// events but can always call [SearchController.Snapshot].
//
// # Export
//
// [BulkExport] writes many playlists to disk with a small worker pool, rate limited against the backend.
package tasks
