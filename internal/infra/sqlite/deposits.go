package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ecobin-network/ecobin/internal/domain"
)

// ─── Deposit Events ─────────────────────────────────────────────────────────

// DepositLog is the durable, append-only deposit history.
type DepositLog struct{ db *DB }

var _ domain.DepositLog = (*DepositLog)(nil)

// Deposits returns the deposit history backed by db.
func (db *DB) Deposits() *DepositLog { return &DepositLog{db: db} }

// Record appends an accepted deposit.
func (l *DepositLog) Record(ctx context.Context, ev domain.DepositEvent) error {
	if ev.UserID == "" {
		return domain.ErrEmptyIdentity
	}
	_, err := l.db.db.ExecContext(ctx, `
		INSERT INTO deposit_events (id, user_id, bin_id, category, weight_grams, points_awarded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.ID.String(), ev.UserID, ev.BinID, string(ev.Category), ev.WeightGrams, ev.PointsAwarded, formatTime(ev.Timestamp))
	if err != nil {
		return fmt.Errorf("record deposit %s: %w", ev.ID, err)
	}
	return nil
}

// HistoryFor returns up to limit events for userID, most recent first.
func (l *DepositLog) HistoryFor(ctx context.Context, userID string, limit int) ([]domain.DepositEvent, error) {
	if limit <= 0 {
		limit = domain.DefaultHistoryLimit
	}
	rows, err := l.db.db.QueryContext(ctx, `
		SELECT id, user_id, bin_id, category, weight_grams, points_awarded, created_at
		FROM deposit_events WHERE user_id = ?
		ORDER BY seq DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query deposits: %w", err)
	}
	defer rows.Close()

	var events []domain.DepositEvent
	for rows.Next() {
		var (
			ev       domain.DepositEvent
			id, cat  string
			recorded string
		)
		if err := rows.Scan(&id, &ev.UserID, &ev.BinID, &cat, &ev.WeightGrams, &ev.PointsAwarded, &recorded); err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		if ev.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("deposit id %q: %w", id, err)
		}
		if ev.Timestamp, err = parseTime(recorded); err != nil {
			return nil, fmt.Errorf("deposit %s timestamp: %w", id, err)
		}
		ev.Category = domain.Category(cat)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// TotalsFor sums every recorded deposit of userID.
func (l *DepositLog) TotalsFor(ctx context.Context, userID string) (weightGrams, points int64, err error) {
	err = l.db.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(weight_grams), 0), COALESCE(SUM(points_awarded), 0)
		FROM deposit_events WHERE user_id = ?
	`, userID).Scan(&weightGrams, &points)
	if err != nil {
		return 0, 0, fmt.Errorf("sum deposits: %w", err)
	}
	return weightGrams, points, nil
}
