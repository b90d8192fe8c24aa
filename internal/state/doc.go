// Package state holds the latest reconciled seat snapshot shared between the
// poller, the command issuer and the UI.
//
// # Overview
//
// Store is the single source of truth for what the client believes the
// server looks like. It has one writer role (reconciled refresh results) and
// many readers:
//
//	Writer (Poller):                Readers:
//	┌──────────────────┐            ┌──────────────────────┐
//	│ GET /api/state   │            │ UI render            │
//	│ seat.Reconcile() │            │ Issuer preconditions │
//	│ store.Replace()  │───────────→│ store.Snapshot()     │
//	└──────────────────┘  (atomic)  └──────────────────────┘
//
// # Update Semantics
//
// Replace builds a complete Snapshot and publishes it with one atomic pointer
// store. There is no per-seat mutation API, so a reader sees either the
// previous snapshot or the new one, never a mix.
//
//	// Success: replace everything
//	store.Replace(result)
//	→ Seats, Env, HasMineActive = result
//	→ LastError = nil, ConsecutiveFailures = 0
//
//	// Failure: keep seats, record health
//	store.RecordFailure(err)
//	→ Seats, Env, HasMineActive = <unchanged>
//	→ LastError = err, ConsecutiveFailures++
//
// # Defensive Copying
//
// Snapshot clones the seat slice and each reservation so callers can never
// mutate stored data.
//
// # Queries
//
// Snapshot carries the read-side helpers other packages need: Seat,
// OwnedReservation (the ownership precondition for cancel), MineActive,
// FreeSeats (the reserve picker) and Counts.
//
// The zero Store is ready to use; Snapshot returns a zero Snapshot with
// HasData=false until the first Replace.
package state
