package seat

import (
	"errors"
	"reflect"
	"testing"
)

func TestReconcile_FreeSeat(t *testing.T) {
	res, err := Reconcile([]byte(`{"seats":[{"seat_id":"A18","state":"FREE"}]}`), "alice")
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if len(res.Seats) != 1 {
		t.Fatalf("len(Seats) = %d, want 1", len(res.Seats))
	}
	rec := res.Seats[0]
	if rec.ID != "A18" || rec.Priority() != PriorityFree {
		t.Fatalf("record = %#v priority %v, want A18 FREE", rec, rec.Priority())
	}
	if rec.Active != nil {
		t.Fatalf("Active = %#v, want nil", rec.Active)
	}
	if res.HasMineActive {
		t.Fatal("HasMineActive = true, want false")
	}
}

func TestReconcile_ReservedByCurrentUser(t *testing.T) {
	body := `{"seats":[{"seat_id":"A18","state":"0","active_reservation":{"id":7,"user":"alice","status":"ACTIVE"}}]}`
	res, err := Reconcile([]byte(body), "alice")
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	rec := res.Seats[0]
	if rec.Priority() != PriorityReserved {
		t.Fatalf("Priority = %v, want RESERVED", rec.Priority())
	}
	if rec.Active == nil || rec.Active.ID != 7 || rec.Active.Owner != "alice" || rec.Active.Status != ReservationActive {
		t.Fatalf("Active = %#v, want id=7 user=alice ACTIVE", rec.Active)
	}
	if !res.HasMineActive {
		t.Fatal("HasMineActive = false, want true")
	}

	other, err := Reconcile([]byte(body), "bob")
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if other.HasMineActive {
		t.Fatal("HasMineActive = true for bob, want false")
	}
}

func TestReconcile_EmptyUsernameNeverOwns(t *testing.T) {
	body := `{"seats":[{"seat_id":"A1","state":"RESERVED","active_reservation":{"id":1,"user":"","status":"ACTIVE"}}]}`
	res, err := Reconcile([]byte(body), "")
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if res.HasMineActive {
		t.Fatal("HasMineActive = true with empty username, want false")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want State
	}{
		{"FREE", StateFree},
		{" free ", StateFree},
		{"0", StateFree},
		{"", StateFree},
		{"2", StateInUse},
		{"IN_USE", StateInUse},
		{"in use", StateInUse},
		{"busy", StateInUse},
		{"OCCUPY", StateInUse},
		{"OCCUPIED", StateUnknown},
		{"RESERVED", StateReserved},
		{"1", StateReserved},
		{"MAINTENANCE", StateUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Classify(tt.raw); got != tt.want {
				t.Fatalf("Classify(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestRecord_PriorityOrdering(t *testing.T) {
	res := &Reservation{ID: 1, Owner: "x", Status: ReservationInUse}
	tests := []struct {
		name string
		rec  Record
		want Priority
	}{
		{"in use beats reservation", Record{State: StateInUse, Active: res}, PriorityInUse},
		{"in use without reservation", Record{State: StateInUse}, PriorityInUse},
		{"free with reservation", Record{State: StateFree, Active: res}, PriorityReserved},
		{"unknown with reservation", Record{State: StateUnknown, Active: res}, PriorityReserved},
		{"reserved state without reservation", Record{State: StateReserved}, PriorityFree},
		{"unknown without reservation", Record{State: StateUnknown}, PriorityFree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Priority(); got != tt.want {
				t.Fatalf("Priority() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReconcile_DegradesOnPartialInput(t *testing.T) {
	body := `{
		"ok": true,
		"latest": {"temp": 23.5, "humi": null},
		"seats": [
			{"seat_id": 18, "state": 2, "active_reservation": {"id": "9", "user": "bob", "status": "in_use"}},
			{"seat_id": "B2"},
			{"state": "FREE"},
			"garbage",
			null,
			{"seat_id": "C3", "state": {"nested": true}, "active_reservation": null},
			{"seat_id": "D4", "state": "FREE", "active_reservation": false},
			{"seat_id": "E5", "state": "RESERVED", "active_reservation": "none"}
		]
	}`
	res, err := Reconcile([]byte(body), "alice")
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if res.Env.TemperatureText() != "23.5" {
		t.Fatalf("Temperature = %q, want 23.5", res.Env.TemperatureText())
	}
	if res.Env.HumidityText() != Placeholder || res.Env.IlluminanceText() != Placeholder {
		t.Fatalf("Env = %#v, want placeholders for humidity and lux", res.Env)
	}
	if len(res.Seats) != 5 {
		t.Fatalf("len(Seats) = %d, want 5 (%#v)", len(res.Seats), res.Seats)
	}
	first := res.Seats[0]
	if first.ID != "18" || first.Priority() != PriorityInUse {
		t.Fatalf("first = %#v, want 18 IN_USE", first)
	}
	if first.Active == nil || first.Active.ID != 9 || first.Active.Status != ReservationInUse {
		t.Fatalf("first.Active = %#v, want id=9 IN_USE", first.Active)
	}
	if res.Seats[1].ID != "B2" || res.Seats[1].Priority() != PriorityFree {
		t.Fatalf("second = %#v, want B2 FREE", res.Seats[1])
	}
	if res.Seats[2].ID != "C3" || res.Seats[2].Active != nil {
		t.Fatalf("third = %#v, want C3 without reservation", res.Seats[2])
	}
	for _, rec := range res.Seats[3:] {
		if rec.Active != nil || rec.Priority() != PriorityFree {
			t.Fatalf("%s = %#v, want kept without reservation", rec.ID, rec)
		}
	}
	if res.Seats[3].ID != "D4" || res.Seats[4].ID != "E5" {
		t.Fatalf("seats = %#v, want D4 and E5 kept in order", res.Seats[3:])
	}
	if res.HasMineActive {
		t.Fatal("HasMineActive = true, want false")
	}
}

func TestReconcile_MissingSectionsUsePlaceholders(t *testing.T) {
	res, err := Reconcile([]byte(`{}`), "alice")
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if len(res.Seats) != 0 {
		t.Fatalf("Seats = %#v, want empty", res.Seats)
	}
	if res.Env.TemperatureText() != Placeholder {
		t.Fatalf("Temperature = %q, want placeholder", res.Env.TemperatureText())
	}

	res, err = Reconcile([]byte(`{"latest": null, "seats": {"A1": "FREE"}}`), "alice")
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if len(res.Seats) != 0 {
		t.Fatalf("Seats = %#v, want empty for non-array seats", res.Seats)
	}
}

func TestReconcile_MalformedDocumentFails(t *testing.T) {
	for _, body := range []string{``, `{not-json`, `[1,2]`, `"ok"`, `<html>502</html>`} {
		_, err := Reconcile([]byte(body), "alice")
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("Reconcile(%q) error = %v, want *ParseError", body, err)
		}
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	body := []byte(`{"latest":{"temp":"21","humi":"40","lux":"300"},"seats":[
		{"seat_id":"A1","state":"FREE"},
		{"seat_id":"A2","state":"IN_USE","active_reservation":{"id":3,"user":"alice","status":"IN_USE"}},
		{"seat_id":"A3","state":"RESERVED","active_reservation":{"id":4,"user":"bob","status":"ACTIVE"}}
	]}`)
	first, err := Reconcile(body, "alice")
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	second, err := Reconcile(body, "alice")
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Reconcile not idempotent:\n%#v\n%#v", first, second)
	}
	if first.Seats[1].Active == second.Seats[1].Active {
		t.Fatal("results share reservation pointers, want independent records")
	}
}

func TestRecord_ActionLabel(t *testing.T) {
	inUse := Record{State: StateInUse, Active: &Reservation{ID: 1}}
	if got := inUse.ActionLabel(); got != "check out" {
		t.Fatalf("ActionLabel = %q, want check out", got)
	}
	reserved := Record{State: StateReserved, Active: &Reservation{ID: 1}}
	if got := reserved.ActionLabel(); got != "cancel reservation" {
		t.Fatalf("ActionLabel = %q, want cancel reservation", got)
	}
}
