package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/five82/carrel/internal/seat"
	"github.com/five82/carrel/internal/session"
)

var (
	// ErrAlreadyReserved means the user already holds an active reservation.
	ErrAlreadyReserved = errors.New("already holding an active reservation")
	// ErrBindingRequired means the account has no card bound yet.
	ErrBindingRequired = errors.New("a card must be bound before reserving")
	// ErrInvalidArgument reports a command rejected before any request.
	ErrInvalidArgument = errors.New("invalid argument")
)

// RejectedError is a business rejection whose cause is not recognized.
type RejectedError struct {
	Op      string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return e.Op + " rejected"
	}
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Message)
}

// Describe turns any command or session error into a short message for the
// user.
func Describe(err error) string {
	var (
		rejected *RejectedError
		network  *session.NetworkError
		status   *session.StatusError
		parse    *seat.ParseError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyReserved):
		return "You already have an active reservation. Cancel or check out first."
	case errors.Is(err, ErrBindingRequired):
		return "Bind your card on the profile page before reserving."
	case errors.Is(err, session.ErrInvalidCredentials):
		return "Login failed: " + err.Error()
	case errors.Is(err, session.ErrUnauthorized):
		return "Session expired. Please log in again."
	case errors.Is(err, ErrInvalidArgument):
		return err.Error()
	case errors.As(err, &rejected):
		if rejected.Message == "" {
			return "The server rejected the request."
		}
		return "Rejected: " + rejected.Message
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Request cancelled or timed out."
	case errors.As(err, &network):
		return "Network error. Check the server address."
	case errors.As(err, &status):
		return fmt.Sprintf("Server error (HTTP %d).", status.Code)
	case errors.As(err, &parse):
		return "Unexpected response from server."
	default:
		return err.Error()
	}
}
