package domain

import (
	"context"
	"time"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// LedgerStore is the durable user → (weight, points) mapping.
// Apply and Debit serialize their whole read-modify-write-persist cycle.
type LedgerStore interface {
	// Apply creates the user if absent, then adds weight and points.
	Apply(ctx context.Context, userID string, weightGrams, points int64) (Balance, error)

	// Debit removes points, rejecting with ErrInsufficientPoints before mutation.
	Debit(ctx context.Context, userID string, points int64) (Balance, error)

	// Touch creates a zero record on first sighting.
	Touch(ctx context.Context, userID string) (User, error)

	// Get returns a committed user record.
	Get(userID string) (User, bool)

	// Snapshot returns the latest fully-committed state.
	Snapshot() LedgerSnapshot
}

// DepositLog is the append-only history of accepted deposits.
type DepositLog interface {
	Record(ctx context.Context, event DepositEvent) error
	HistoryFor(ctx context.Context, userID string, limit int) ([]DepositEvent, error)
	TotalsFor(ctx context.Context, userID string) (weightGrams, points int64, err error)
}

// RedemptionLog keeps every resolved redemption for audit and display.
type RedemptionLog interface {
	RecordRedemption(ctx context.Context, r Redemption) error
	RedemptionsFor(ctx context.Context, userID string, limit int) ([]Redemption, error)
}

// Classifier is the narrow, polled signal from the camera process.
// Returns ErrNoDetection while nothing has been recognised.
type Classifier interface {
	Classify(ctx context.Context) (Reading, error)
}

// RateLimiter gates deposit attempts. Never blocks.
type RateLimiter interface {
	TryAcquire(ctx context.Context, binID, userID string, now time.Time) (CooldownDecision, error)
}

// DefaultHistoryLimit applies when a caller asks for limit <= 0.
const DefaultHistoryLimit = 10
