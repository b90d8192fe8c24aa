package seat

import "strings"

// Placeholder is rendered for environment readings the server did not report.
const Placeholder = "--"

// State is the normalized class of a seat's raw server state.
type State int

const (
	StateFree State = iota
	StateReserved
	StateInUse
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "FREE"
	case StateReserved:
		return "RESERVED"
	case StateInUse:
		return "IN_USE"
	default:
		return "UNKNOWN"
	}
}

// Priority orders seats for display. Higher values win.
type Priority int

const (
	PriorityFree Priority = iota
	PriorityReserved
	PriorityInUse
)

func (p Priority) String() string {
	switch p {
	case PriorityInUse:
		return "IN_USE"
	case PriorityReserved:
		return "RESERVED"
	default:
		return "FREE"
	}
}

// ReservationStatus is the lifecycle stage of an active reservation.
type ReservationStatus string

const (
	ReservationActive ReservationStatus = "ACTIVE"
	ReservationInUse  ReservationStatus = "IN_USE"
)

// Reservation identifies the reservation currently holding a seat.
type Reservation struct {
	ID     int
	Owner  string
	Status ReservationStatus
}

// Record is one seat as reported by the latest snapshot.
type Record struct {
	ID       string
	State    State
	RawState string // verbatim server value, kept for StateUnknown display
	Active   *Reservation
}

// Priority derives the display priority: in use, then reserved, then free.
func (r Record) Priority() Priority {
	if r.State == StateInUse {
		return PriorityInUse
	}
	if r.Active != nil {
		return PriorityReserved
	}
	return PriorityFree
}

// OwnedBy reports whether username holds the seat's active reservation.
func (r Record) OwnedBy(username string) bool {
	if r.Active == nil || username == "" {
		return false
	}
	return r.Active.Owner == username
}

// Reservable reports whether the seat can be offered in the reserve picker.
func (r Record) Reservable() bool {
	return r.State == StateFree && r.Active == nil
}

// ActionLabel names the release action for the seat: releasing a seat that is
// already in use is a check-out, anything else is a cancellation.
func (r Record) ActionLabel() string {
	if r.Priority() == PriorityInUse {
		return "check out"
	}
	return "cancel reservation"
}

// Environment holds the most recent sensor sample. Empty fields mean the
// server did not report a value.
type Environment struct {
	Temperature string
	Humidity    string
	Illuminance string
}

// TemperatureText returns the temperature or the placeholder.
func (e Environment) TemperatureText() string { return orPlaceholder(e.Temperature) }

// HumidityText returns the humidity or the placeholder.
func (e Environment) HumidityText() string { return orPlaceholder(e.Humidity) }

// IlluminanceText returns the illuminance or the placeholder.
func (e Environment) IlluminanceText() string { return orPlaceholder(e.Illuminance) }

// Result is the output of one reconciliation.
type Result struct {
	Seats         []Record
	Env           Environment
	HasMineActive bool
}

func orPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return Placeholder
	}
	return v
}
