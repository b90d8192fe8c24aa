// Package app wires carrel together and owns the polling loop.
//
// # Components
//
//   - app.go: Build (the composition root shared by the TUI and the CLI) and
//     Run, which starts the TUI
//   - poller.go: Poller, the start/stop refresh loop feeding state.Store
//
// # Server Resolution
//
// The server address is taken from the first non-empty source:
//
//  1. The --server flag
//  2. CARREL_SERVER
//  3. The last server a login succeeded against (prefs)
//  4. config.toml, then the built-in default
//
// # Polling
//
// The poller fetches once immediately on Start, then waits the interval
// after each completed request, so requests never overlap. Stop discards the
// result of a request still in flight. Failed ticks keep the previous seats
// and record LastError and ConsecutiveFailures in the store.
//
// The TUI starts the poller while the seat map is on screen and stops it
// when another view takes over.
package app
