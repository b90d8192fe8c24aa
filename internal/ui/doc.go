// Package ui implements carrel's terminal interface with Bubble Tea.
//
// # Views
//
//   - Seat map (default): a grid of seat tiles colored by display priority
//     (free, reserved, in use), the environment readings in the header and a
//     detail line for the selected seat
//   - Login: server, username and password, with a sign-up mode
//   - Reserve: the free seats with the pending seat preselected, and the
//     duration choices
//   - Profile: account details and card binding
//
// A short activity pane under every view lists command outcomes.
//
// # Polling
//
// The model starts the Sync loop while the seat map is shown and stops it
// when another view takes over. Independently, a one-second tick re-reads
// the store so the grid reflects the latest snapshot.
//
// # Pending Seat
//
// Pressing r on a free seat records it as the pending seat in prefs. If no
// one is logged in, the login form opens first. The reserve picker consumes
// the pending seat when it opens, so the hint is acted on once.
//
// # Cancel and Check-out
//
// c is only honored when the selected seat holds the current user's active
// reservation (state.Snapshot.OwnedReservation). The action is labeled
// check out for a reservation in use and cancel otherwise, and always asks
// for confirmation.
package ui
