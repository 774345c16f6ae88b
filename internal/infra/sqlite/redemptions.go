package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecobin-network/ecobin/internal/domain"
)

// ─── Redemptions ────────────────────────────────────────────────────────────

// RedemptionLog keeps approved and rejected redemptions.
type RedemptionLog struct{ db *DB }

var _ domain.RedemptionLog = (*RedemptionLog)(nil)

// Redemptions returns the redemption log backed by db.
func (db *DB) Redemptions() *RedemptionLog { return &RedemptionLog{db: db} }

// RecordRedemption appends a resolved redemption.
func (l *RedemptionLog) RecordRedemption(ctx context.Context, r domain.Redemption) error {
	_, err := l.db.db.ExecContext(ctx, `
		INSERT INTO redemptions (id, user_id, kind, item_id, amount, points_cost, status, reason, balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID.String(), r.UserID, string(r.Kind), r.CatalogItemID, r.Amount.String(),
		r.PointsCost, string(r.Status), r.Reason, r.Balance, formatTime(r.Timestamp))
	if err != nil {
		return fmt.Errorf("record redemption %s: %w", r.ID, err)
	}
	return nil
}

// RedemptionsFor returns up to limit redemptions for userID, most recent first.
func (l *RedemptionLog) RedemptionsFor(ctx context.Context, userID string, limit int) ([]domain.Redemption, error) {
	if limit <= 0 {
		limit = domain.DefaultHistoryLimit
	}
	rows, err := l.db.db.QueryContext(ctx, `
		SELECT id, user_id, kind, item_id, amount, points_cost, status, reason, balance, created_at
		FROM redemptions WHERE user_id = ?
		ORDER BY seq DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query redemptions: %w", err)
	}
	defer rows.Close()

	var out []domain.Redemption
	for rows.Next() {
		var (
			r                        domain.Redemption
			id, kind, amount, status string
			recorded                 string
		)
		if err := rows.Scan(&id, &r.UserID, &kind, &r.CatalogItemID, &amount, &r.PointsCost,
			&status, &r.Reason, &r.Balance, &recorded); err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("redemption id %q: %w", id, err)
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("redemption %s amount: %w", id, err)
		}
		if r.Timestamp, err = parseTime(recorded); err != nil {
			return nil, fmt.Errorf("redemption %s timestamp: %w", id, err)
		}
		r.Kind = domain.RedemptionKind(kind)
		r.Status = domain.RedemptionStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
