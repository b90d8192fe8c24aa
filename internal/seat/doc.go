// Package seat turns the server's raw /api/state document into typed seat
// records.
//
// # Overview
//
// Reconcile is the only place in carrel that inspects the state document. It
// is a pure function: the same body and username always produce the same
// Result, and nothing outside the returned value is touched.
//
// # Tolerance
//
// The server's seat vocabulary is loose. Classify normalizes raw states:
//
//	FREE, 0                        -> StateFree
//	2, *USE*, *BUSY*, *OCCUPY*     -> StateInUse
//	RESERVED, 1                    -> StateReserved
//	anything else                  -> StateUnknown (raw text kept)
//
// Fields may be strings or numbers, may be null, or may be missing. Missing
// environment readings render as Placeholder and malformed seat entries are
// skipped. Only a body that is not a JSON object returns a *ParseError.
//
// # Display priority
//
// Record.Priority is derived on demand and never stored:
//
//	IN_USE > RESERVED (has an active reservation) > FREE
//
// # Ownership
//
// Result.HasMineActive is computed once per reconciliation and is true when
// any seat's active reservation belongs to the current user. An empty
// username never owns anything.
package seat
