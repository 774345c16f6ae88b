// Package memlog keeps deposit and redemption history in process memory.
// Used for session retention: history is lost when the process exits.
package memlog

import (
	"context"
	"sync"

	"github.com/ecobin-network/ecobin/internal/domain"
)

// Log implements DepositLog and RedemptionLog over append-only slices.
type Log struct {
	mu          sync.RWMutex
	deposits    map[string][]domain.DepositEvent
	redemptions map[string][]domain.Redemption
}

var (
	_ domain.DepositLog    = (*Log)(nil)
	_ domain.RedemptionLog = (*Log)(nil)
)

// New returns an empty session log.
func New() *Log {
	return &Log{
		deposits:    make(map[string][]domain.DepositEvent),
		redemptions: make(map[string][]domain.Redemption),
	}
}

// ─── Deposits ───────────────────────────────────────────────────────────────

func (l *Log) Record(ctx context.Context, ev domain.DepositEvent) error {
	if ev.UserID == "" {
		return domain.ErrEmptyIdentity
	}
	l.mu.Lock()
	l.deposits[ev.UserID] = append(l.deposits[ev.UserID], ev)
	l.mu.Unlock()
	return nil
}

func (l *Log) HistoryFor(ctx context.Context, userID string, limit int) ([]domain.DepositEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return newestFirst(l.deposits[userID], limit), nil
}

func (l *Log) TotalsFor(ctx context.Context, userID string) (weightGrams, points int64, err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, ev := range l.deposits[userID] {
		weightGrams += ev.WeightGrams
		points += ev.PointsAwarded
	}
	return weightGrams, points, nil
}

// ─── Redemptions ────────────────────────────────────────────────────────────

func (l *Log) RecordRedemption(ctx context.Context, r domain.Redemption) error {
	l.mu.Lock()
	l.redemptions[r.UserID] = append(l.redemptions[r.UserID], r)
	l.mu.Unlock()
	return nil
}

func (l *Log) RedemptionsFor(ctx context.Context, userID string, limit int) ([]domain.Redemption, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return newestFirst(l.redemptions[userID], limit), nil
}

// newestFirst copies up to limit items from the tail of in, reversed.
func newestFirst[T any](in []T, limit int) []T {
	if limit <= 0 {
		limit = domain.DefaultHistoryLimit
	}
	n := min(limit, len(in))
	out := make([]T, 0, n)
	for i := len(in) - 1; i >= len(in)-n; i-- {
		out = append(out, in[i])
	}
	return out
}
