// Package command issues reserve and cancel commands against the
// reservation server.
//
// Reserve checks the latest snapshot first: a user who already holds an
// active reservation gets ErrAlreadyReserved without a round trip. Server
// replies use the {ok, error} shape; rejections are classified into
// ErrBindingRequired, ErrAlreadyReserved or *RejectedError. Successful
// commands, and "already exists" conflicts, trigger an immediate refresh.
//
// Cancel trusts its caller to have checked ownership with
// state.Snapshot.OwnedReservation before surfacing the action.
package command
