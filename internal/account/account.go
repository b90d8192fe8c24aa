// Package account wraps the account endpoints that sit beside the seat
// workflow: registration, the user profile and card binding. A negative
// {ok:false} reply surfaces as *command.RejectedError.
package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/five82/carrel/internal/command"
	"github.com/five82/carrel/internal/seat"
	"github.com/five82/carrel/internal/session"
)

// Doer is the part of session.Client this package needs.
type Doer interface {
	Do(ctx context.Context, method, path string, body any) (*session.Response, error)
}

// Profile is the server's view of the logged-in account.
type Profile struct {
	Username string
	CardID   string // empty when no card is bound
}

// Bound reports whether a card is bound to the account.
func (p Profile) Bound() bool {
	return strings.TrimSpace(p.CardID) != ""
}

// Service calls the account endpoints.
type Service struct {
	client Doer
}

// New returns a Service using client.
func New(client Doer) *Service {
	return &Service{client: client}
}

// Register creates an account. It needs no session.
func (s *Service) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", command.ErrInvalidArgument)
	}
	body := map[string]string{"username": username, "password": password}
	return s.expectOK(ctx, "register", "/api/register", body)
}

// Profile fetches the logged-in user's profile.
func (s *Service) Profile(ctx context.Context) (Profile, error) {
	resp, err := s.client.Do(ctx, http.MethodGet, "/api/user/profile", nil)
	if err != nil {
		return Profile{}, err
	}
	var payload struct {
		OK       *bool           `json:"ok"`
		Error    string          `json:"error"`
		Username string          `json:"username"`
		UID      json.RawMessage `json:"uid"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return Profile{}, &seat.ParseError{Body: resp.Body, Err: err}
	}
	// ok is optional here; only an explicit false is a rejection.
	if payload.OK != nil && !*payload.OK {
		return Profile{}, &command.RejectedError{Op: "profile", Message: strings.TrimSpace(payload.Error)}
	}
	return Profile{Username: payload.Username, CardID: rawText(payload.UID)}, nil
}

// BindCard binds a physical card ID to the account, the remedy for a
// reserve rejected with command.ErrBindingRequired.
func (s *Service) BindCard(ctx context.Context, cardID string) error {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return fmt.Errorf("%w: card id is required", command.ErrInvalidArgument)
	}
	return s.expectOK(ctx, "bind", "/api/user/bind", map[string]string{"uid": cardID})
}

func (s *Service) expectOK(ctx context.Context, op, path string, body any) error {
	resp, err := s.client.Do(ctx, http.MethodPost, path, body)
	data, err := session.ReplyBody(resp, err)
	if err != nil {
		return err
	}
	var reply struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(data), &reply); err != nil {
		return &seat.ParseError{Body: data, Err: err}
	}
	if !reply.OK {
		return &command.RejectedError{Op: op, Message: strings.TrimSpace(reply.Error)}
	}
	return nil
}

func rawText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(trimmed, &s) == nil {
		return strings.TrimSpace(s)
	}
	return string(trimmed)
}
