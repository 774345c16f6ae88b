package domain

import (
	"errors"
	"fmt"
	"time"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.
// Everything except ErrPersistenceUnavailable is an expected rejection: it is
// reported to the caller and never leaves the ledger mutated.

var (
	// Validation errors
	ErrEmptyIdentity = errors.New("user identity must not be empty")
	ErrInvalidWeight = errors.New("invalid deposit reading")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrUnknownKind   = errors.New("unknown redemption kind")

	// Redemption rejections
	ErrBelowMinimum       = errors.New("amount below minimum cash redemption")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrUnknownCatalogItem = errors.New("unknown catalog item")

	// Deposit rejections
	ErrCooldownActive = errors.New("deposit cooldown active")
	ErrNoDetection    = errors.New("no waste detected yet")

	// Storage errors
	ErrPersistenceUnavailable = errors.New("ledger store unreadable or corrupt")
)

// CooldownError carries the remaining wait of a rejected deposit.
// errors.Is(err, ErrCooldownActive) holds for it.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: retry in %ds", ErrCooldownActive, CooldownDecision{Remaining: e.Remaining}.RemainingSeconds())
}

func (e *CooldownError) Is(target error) bool { return target == ErrCooldownActive }

// RemainingSeconds is the wait rounded up to whole seconds.
func (e *CooldownError) RemainingSeconds() int {
	return CooldownDecision{Remaining: e.Remaining}.RemainingSeconds()
}

// ─── Classification ─────────────────────────────────────────────────────────

// Rejection reason codes, stable across the API and metrics.
const (
	ReasonValidation         = "validation"
	ReasonBelowMinimum       = "below_minimum"
	ReasonInsufficientPoints = "insufficient_points"
	ReasonUnknownItem        = "unknown_item"
	ReasonCooldown           = "cooldown_active"
	ReasonNoDetection        = "no_detection"
)

// IsValidation reports whether err belongs to the ValidationError family.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyIdentity) ||
		errors.Is(err, ErrInvalidWeight) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrUnknownKind)
}

// RejectionReason maps an expected rejection onto its reason code.
// Returns "" for infrastructure failures.
func RejectionReason(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return ReasonValidation
	case errors.Is(err, ErrBelowMinimum):
		return ReasonBelowMinimum
	case errors.Is(err, ErrInsufficientPoints):
		return ReasonInsufficientPoints
	case errors.Is(err, ErrUnknownCatalogItem):
		return ReasonUnknownItem
	case errors.Is(err, ErrCooldownActive):
		return ReasonCooldown
	case errors.Is(err, ErrNoDetection):
		return ReasonNoDetection
	default:
		return ""
	}
}

// IsRejection reports whether err is an expected, recoverable outcome.
func IsRejection(err error) bool {
	return RejectionReason(err) != ""
}
