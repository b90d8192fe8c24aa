package state

import (
	"sync/atomic"
	"time"

	"github.com/five82/carrel/internal/seat"
)

// Snapshot represents the latest reconciled server state.
type Snapshot struct {
	Seats               []seat.Record
	Env                 seat.Environment
	HasMineActive       bool
	HasData             bool // false until the first successful refresh
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the server has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Seat returns the record for seatID.
func (s Snapshot) Seat(seatID string) (seat.Record, bool) {
	for _, rec := range s.Seats {
		if rec.ID == seatID {
			return rec, true
		}
	}
	return seat.Record{}, false
}

// OwnedReservation returns the active reservation on seatID when it belongs
// to username. Cancel and check-out are only offered when this succeeds.
func (s Snapshot) OwnedReservation(seatID, username string) (seat.Reservation, bool) {
	rec, ok := s.Seat(seatID)
	if !ok || !rec.OwnedBy(username) {
		return seat.Reservation{}, false
	}
	return *rec.Active, true
}

// MineActive returns the seat holding username's active reservation.
func (s Snapshot) MineActive(username string) (seat.Record, bool) {
	for _, rec := range s.Seats {
		if rec.OwnedBy(username) {
			return rec, true
		}
	}
	return seat.Record{}, false
}

// FreeSeats lists the IDs of seats that can be reserved, in server order.
func (s Snapshot) FreeSeats() []string {
	var ids []string
	for _, rec := range s.Seats {
		if rec.Reservable() {
			ids = append(ids, rec.ID)
		}
	}
	return ids
}

// Counts tallies seats by display priority.
func (s Snapshot) Counts() map[seat.Priority]int {
	counts := make(map[seat.Priority]int, 3)
	for _, rec := range s.Seats {
		counts[rec.Priority()]++
	}
	return counts
}

// Store holds the latest snapshot. Every write swaps in a complete, new
// snapshot, so readers never observe a partial update.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// Replace installs a freshly reconciled result, discarding the previous one.
func (s *Store) Replace(res seat.Result) {
	snap := &Snapshot{
		Seats:         cloneSeats(res.Seats),
		Env:           res.Env,
		HasMineActive: res.HasMineActive,
		HasData:       true,
		LastUpdated:   time.Now(),
	}
	s.current.Store(snap)
}

// RecordFailure notes a failed refresh. Seat data from the previous snapshot
// is kept; only the health fields change.
func (s *Store) RecordFailure(err error) {
	for {
		old := s.current.Load()
		next := &Snapshot{}
		if old != nil {
			*next = *old
		}
		next.LastError = err
		next.LastUpdated = time.Now()
		next.ConsecutiveFailures++
		if s.current.CompareAndSwap(old, next) {
			return
		}
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	cur := s.current.Load()
	if cur == nil {
		return Snapshot{}
	}
	snap := *cur
	snap.Seats = cloneSeats(cur.Seats)
	return snap
}

func cloneSeats(seats []seat.Record) []seat.Record {
	if len(seats) == 0 {
		return nil
	}
	dup := make([]seat.Record, len(seats))
	for i, rec := range seats {
		if rec.Active != nil {
			active := *rec.Active
			rec.Active = &active
		}
		dup[i] = rec
	}
	return dup
}
