package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ecobin-network/ecobin/internal/domain"
)

// RejectedError is an expected rejection reported by the server.
// errors.Is matches the domain sentinel named by Reason.
type RejectedError struct {
	Status           int
	Reason           string
	Message          string
	RemainingSeconds int
}

func (e *RejectedError) Error() string { return e.Message }

// Unwrap exposes the domain sentinel for errors.Is.
func (e *RejectedError) Unwrap() error {
	switch e.Reason {
	case domain.ReasonBelowMinimum:
		return domain.ErrBelowMinimum
	case domain.ReasonInsufficientPoints:
		return domain.ErrInsufficientPoints
	case domain.ReasonUnknownItem:
		return domain.ErrUnknownCatalogItem
	case domain.ReasonCooldown:
		return domain.ErrCooldownActive
	case domain.ReasonNoDetection:
		return domain.ErrNoDetection
	default:
		return nil
	}
}

// Validation reports a rejected request shape. The server does not say
// which field, so there is no single sentinel to unwrap to.
func (e *RejectedError) Validation() bool { return e.Reason == domain.ReasonValidation }

// ServerError is a non-rejection failure (5xx, unexpected 4xx).
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

func decodeError(status int, data []byte) error {
	var body struct {
		Status           string `json:"status"`
		Reason           string `json:"reason"`
		Message          string `json:"message"`
		RemainingSeconds int    `json:"remaining_seconds"`
		Error            struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return &ServerError{Status: status, Message: string(data)}
	}
	if body.Status == "rejected" {
		return &RejectedError{
			Status:           status,
			Reason:           body.Reason,
			Message:          body.Message,
			RemainingSeconds: body.RemainingSeconds,
		}
	}
	msg := body.Error.Message
	if msg == "" {
		msg = string(data)
	}
	return &ServerError{Status: status, Message: msg}
}
