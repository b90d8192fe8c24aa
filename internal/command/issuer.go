package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/five82/carrel/internal/seat"
	"github.com/five82/carrel/internal/session"
	"github.com/five82/carrel/internal/state"
)

// DefaultMinutes is the reservation length used when none is chosen.
const DefaultMinutes = 120

// DurationChoices are the reservation lengths offered to users, in minutes.
var DurationChoices = []int{30, 60, 120, 240}

// Doer is the part of session.Client the issuer needs.
type Doer interface {
	Do(ctx context.Context, method, path string, body any) (*session.Response, error)
	Username() string
}

// Snapshotter exposes the latest reconciled state.
type Snapshotter interface {
	Snapshot() state.Snapshot
}

// Refresher forces an out-of-band state refresh.
type Refresher interface {
	RefreshNow(ctx context.Context) error
}

// Issuer sends reserve and cancel commands. It works whether or not the
// poller is running.
type Issuer struct {
	client    Doer
	store     Snapshotter
	refresher Refresher
	logger    *slog.Logger
}

// NewIssuer builds an Issuer. refresher may be nil.
func NewIssuer(client Doer, store Snapshotter, refresher Refresher, logger *slog.Logger) *Issuer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Issuer{client: client, store: store, refresher: refresher, logger: logger}
}

type reserveRequest struct {
	SeatID  string `json:"seat_id"`
	Minutes int    `json:"minutes"`
	User    string `json:"user,omitempty"`
}

type cancelRequest struct {
	ReservationID int `json:"reservation_id"`
}

type cancelSeatRequest struct {
	SeatID string `json:"seat_id"`
}

type reply struct {
	OK    *bool  `json:"ok"`
	Error string `json:"error"`
}

// Vocabulary used to classify reserve rejections.
var (
	bindingMarkers = []string{"绑定", "bind"}
	existsMarkers  = []string{"已有", "已被", "already", "exists"}
)

// Reserve books seatID for minutes. When the latest snapshot already shows
// an active reservation for the user it fails with ErrAlreadyReserved
// without contacting the server.
func (i *Issuer) Reserve(ctx context.Context, seatID string, minutes int) error {
	seatID = strings.TrimSpace(seatID)
	if seatID == "" {
		return fmt.Errorf("%w: seat id is required", ErrInvalidArgument)
	}
	if minutes <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d minutes", ErrInvalidArgument, minutes)
	}
	if i.store != nil && i.store.Snapshot().HasMineActive {
		i.logger.Info("reserve refused locally", "seat", seatID, "reason", "active reservation")
		return ErrAlreadyReserved
	}

	req := reserveRequest{SeatID: seatID, Minutes: minutes, User: i.client.Username()}
	r, err := i.post(ctx, "/api/reserve", req)
	if err != nil {
		return err
	}
	if r.ok() {
		i.logger.Info("seat reserved", "seat", seatID, "minutes", minutes)
		i.refresh(ctx)
		return nil
	}

	msg := strings.TrimSpace(r.Error)
	switch {
	case containsAny(msg, bindingMarkers):
		i.logger.Info("reserve needs card binding", "seat", seatID, "message", msg)
		return fmt.Errorf("%w: %s", ErrBindingRequired, msg)
	case containsAny(msg, existsMarkers):
		i.logger.Info("reserve conflict", "seat", seatID, "message", msg)
		// Local view was stale; pull the server's version.
		i.refresh(ctx)
		return fmt.Errorf("%w: %s", ErrAlreadyReserved, msg)
	default:
		i.logger.Info("reserve rejected", "seat", seatID, "message", msg)
		return &RejectedError{Op: "reserve", Message: msg}
	}
}

// Cancel releases a reservation: a cancellation while ACTIVE, a check-out
// while IN_USE. The caller must already have checked ownership, see
// state.Snapshot.OwnedReservation.
func (i *Issuer) Cancel(ctx context.Context, reservationID int) error {
	if reservationID <= 0 {
		return fmt.Errorf("%w: reservation id must be positive, got %d", ErrInvalidArgument, reservationID)
	}
	return i.release(ctx, "/api/cancel", cancelRequest{ReservationID: reservationID}, "reservation", reservationID)
}

// CancelSeat releases the reservation on seatID through the seat-keyed
// endpoint.
func (i *Issuer) CancelSeat(ctx context.Context, seatID string) error {
	seatID = strings.TrimSpace(seatID)
	if seatID == "" {
		return fmt.Errorf("%w: seat id is required", ErrInvalidArgument)
	}
	return i.release(ctx, "/api/cancel_reserve", cancelSeatRequest{SeatID: seatID}, "seat", seatID)
}

func (i *Issuer) release(ctx context.Context, path string, body any, key string, value any) error {
	r, err := i.post(ctx, path, body)
	if err != nil {
		return err
	}
	if !r.ok() {
		i.logger.Info("cancel rejected", key, value, "message", r.Error)
		return &RejectedError{Op: "cancel", Message: strings.TrimSpace(r.Error)}
	}
	i.logger.Info("reservation released", key, value)
	i.refresh(ctx)
	return nil
}

func (i *Issuer) post(ctx context.Context, path string, body any) (reply, error) {
	resp, err := i.client.Do(ctx, http.MethodPost, path, body)
	data, err := session.ReplyBody(resp, err)
	if err != nil {
		i.logger.Warn("command failed", "path", path, "error", err)
		return reply{}, err
	}
	var r reply
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return reply{}, &seat.ParseError{Body: data, Err: fmt.Errorf("%s reply is not a JSON object", path)}
	}
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return reply{}, &seat.ParseError{Body: data, Err: err}
	}
	return r, nil
}

func (r reply) ok() bool {
	return r.OK != nil && *r.OK
}

func (i *Issuer) refresh(ctx context.Context) {
	if i.refresher == nil {
		return
	}
	if err := i.refresher.RefreshNow(ctx); err != nil {
		i.logger.Warn("refresh after command failed", "error", err)
	}
}

func containsAny(s string, markers []string) bool {
	lower := strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
