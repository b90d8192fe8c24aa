package seat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports a response body that is not the expected JSON document.
type ParseError struct {
	Body []byte
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Normalization table for raw seat states. The server's vocabulary is not
// fixed, so exact matches are tried first and substring markers second.
var (
	freeStates     = map[string]bool{"FREE": true, "0": true}
	reservedStates = map[string]bool{"RESERVED": true, "1": true}
	inUseStates    = map[string]bool{"2": true}
	inUseMarkers   = []string{"USE", "BUSY", "OCCUPY"}
)

// Classify maps a raw server state onto State.
func Classify(raw string) State {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case freeStates[s]:
		return StateFree
	case inUseStates[s]:
		return StateInUse
	}
	for _, marker := range inUseMarkers {
		if strings.Contains(s, marker) {
			return StateInUse
		}
	}
	if reservedStates[s] {
		return StateReserved
	}
	if s == "" {
		return StateFree
	}
	return StateUnknown
}

type wireSnapshot struct {
	Latest *wireLatest       `json:"latest"`
	Seats  []json.RawMessage `json:"seats"`
}

type wireLatest struct {
	Temp scalar `json:"temp"`
	Humi scalar `json:"humi"`
	Lux  scalar `json:"lux"`
}

type wireSeat struct {
	SeatID scalar          `json:"seat_id"`
	State  scalar          `json:"state"`
	Active json.RawMessage `json:"active_reservation"`
}

type wireReservation struct {
	ID     scalar `json:"id"`
	User   scalar `json:"user"`
	Status scalar `json:"status"`
}

// Reconcile turns a raw /api/state document into typed records. Missing or
// mistyped fields degrade to defaults; only a body that is not a JSON object
// fails.
func Reconcile(raw []byte, currentUsername string) (Result, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return Result{}, &ParseError{Body: raw, Err: fmt.Errorf("state document is not a JSON object")}
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return Result{}, &ParseError{Body: raw, Err: err}
	}

	var res Result
	if latest, ok := top["latest"]; ok {
		var l wireLatest
		if json.Unmarshal(latest, &l) == nil {
			res.Env = Environment{
				Temperature: string(l.Temp),
				Humidity:    string(l.Humi),
				Illuminance: string(l.Lux),
			}
		}
	}

	var items []json.RawMessage
	if seats, ok := top["seats"]; ok {
		_ = json.Unmarshal(seats, &items)
	}

	res.Seats = make([]Record, 0, len(items))
	for _, item := range items {
		rec, ok := decodeSeat(item)
		if !ok {
			continue
		}
		if rec.OwnedBy(currentUsername) {
			res.HasMineActive = true
		}
		res.Seats = append(res.Seats, rec)
	}
	return res, nil
}

func decodeSeat(item json.RawMessage) (Record, bool) {
	var w wireSeat
	if err := json.Unmarshal(item, &w); err != nil {
		return Record{}, false
	}
	id := strings.TrimSpace(string(w.SeatID))
	if id == "" {
		return Record{}, false
	}
	rec := Record{
		ID:       id,
		State:    Classify(string(w.State)),
		RawState: string(w.State),
	}
	rec.Active = decodeReservation(w.Active)
	return rec, true
}

// decodeReservation reads active_reservation. Anything other than a JSON
// object, such as null, false or "none", means the seat has no reservation.
func decodeReservation(raw json.RawMessage) *Reservation {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var w wireReservation
	if json.Unmarshal(raw, &w) != nil {
		return nil
	}
	rid, _ := strconv.Atoi(strings.TrimSpace(string(w.ID)))
	return &Reservation{
		ID:     rid,
		Owner:  string(w.User),
		Status: ReservationStatus(strings.ToUpper(strings.TrimSpace(string(w.Status)))),
	}
}

// scalar accepts any JSON scalar and keeps its text form. Objects and arrays
// decode to the empty string.
type scalar string

func (s *scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = scalar(v)
	case 'n', '{', '[':
		*s = ""
	default:
		*s = scalar(data)
	}
	return nil
}
