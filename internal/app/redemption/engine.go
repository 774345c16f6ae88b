// Package redemption converts points into cash, coupons, and gift cards.
//
// Validation order for one request:
//  1. Identity and kind
//  2. Cash: amount > 0, then amount >= minimum
//  3. Cost: amount × points-per-unit (rounded up) for cash, catalog
//     lookup for coupons and gift cards
//  4. Cost against the current balance
//
// The ledger debit is the only mutation and re-checks the balance under
// the ledger lock. Every resolved request, approved or rejected, is
// appended to the redemption log.
package redemption

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ecobin-network/ecobin/internal/domain"
	"github.com/ecobin-network/ecobin/internal/infra/observability"
)

// Engine validates and executes redemptions.
type Engine struct {
	ledger  domain.LedgerStore
	history domain.RedemptionLog
	catalog domain.Catalog
	log     zerolog.Logger
	now     func() time.Time
}

// New creates a redemption engine over an immutable catalog.
func New(ledger domain.LedgerStore, history domain.RedemptionLog, catalog domain.Catalog, log zerolog.Logger) *Engine {
	return &Engine{
		ledger:  ledger,
		history: history,
		catalog: catalog,
		log:     log.With().Str("component", "redemption").Logger(),
		now:     time.Now,
	}
}

// Catalog returns the active reward catalog.
func (e *Engine) Catalog() domain.Catalog { return e.catalog }

// Redeem resolves one request. Expected rejections return the rejected
// Redemption together with an error matching the domain sentinel.
func (e *Engine) Redeem(ctx context.Context, userID string, req domain.RedemptionRequest) (domain.Redemption, error) {
	r := domain.Redemption{
		ID:            uuid.New(),
		UserID:        userID,
		Kind:          req.Kind,
		CatalogItemID: req.CatalogItemID,
		Amount:        req.Amount,
		Timestamp:     e.now(),
	}
	if userID == "" {
		return e.reject(ctx, r, domain.ErrEmptyIdentity)
	}

	// An unknown user has a zero balance; Debit rejects without creating them.
	u, _ := e.ledger.Get(userID)
	r.Balance = u.Points

	cost, err := e.price(&r)
	if err != nil {
		return e.reject(ctx, r, err)
	}
	r.PointsCost = cost

	if cost > u.Points {
		return e.reject(ctx, r, fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientPoints, u.Points, cost))
	}

	balance, err := e.ledger.Debit(ctx, userID, cost)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientPoints) {
			u, _ := e.ledger.Get(userID) // zero for a user Debit did not create
			r.Balance = u.Points
			return e.reject(ctx, r, err)
		}
		e.log.Error().Err(err).Str("user", userID).Str("kind", string(r.Kind)).Msg("redemption debit failed")
		return domain.Redemption{}, fmt.Errorf("debit %d points: %w", cost, err)
	}

	r.Status = domain.StatusApproved
	r.Balance = balance.Points
	e.record(ctx, r)
	e.log.Info().
		Str("user", userID).
		Str("kind", string(r.Kind)).
		Str("item", r.CatalogItemID).
		Str("amount", r.Amount.String()).
		Int64("points", cost).
		Int64("balance", r.Balance).
		Msg("redemption approved")
	return r, nil
}

// price validates the kind-specific fields and returns the points cost.
// Catalog redemptions take their amount from the item.
func (e *Engine) price(r *domain.Redemption) (int64, error) {
	switch r.Kind {
	case domain.KindCash:
		r.CatalogItemID = ""
		if !r.Amount.IsPositive() {
			return 0, fmt.Errorf("%w: cash amount must be positive, got %s", domain.ErrInvalidAmount, r.Amount)
		}
		if r.Amount.LessThan(e.catalog.MinCash) {
			return 0, fmt.Errorf("%w: %s < %s", domain.ErrBelowMinimum, r.Amount, e.catalog.MinCash)
		}
		return e.catalog.PointsCost(r.Amount)

	case domain.KindCoupon, domain.KindGiftCard:
		item, ok := e.catalog.Lookup(r.Kind, r.CatalogItemID)
		if !ok {
			return 0, fmt.Errorf("%w: %s %q", domain.ErrUnknownCatalogItem, r.Kind, r.CatalogItemID)
		}
		r.Amount = item.MonetaryValue
		return item.PointsCost, nil

	default:
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownKind, r.Kind)
	}
}

func (e *Engine) reject(ctx context.Context, r domain.Redemption, err error) (domain.Redemption, error) {
	r.Status = domain.StatusRejected
	r.Reason = domain.RejectionReason(err)
	if r.UserID != "" {
		e.record(ctx, r)
	} else {
		observability.ObserveRedemption(r)
	}
	e.log.Info().Err(err).Str("user", r.UserID).Str("kind", string(r.Kind)).Str("reason", r.Reason).
		Msg("redemption rejected")
	return r, err
}

func (e *Engine) record(ctx context.Context, r domain.Redemption) {
	observability.ObserveRedemption(r)
	if err := e.history.RecordRedemption(ctx, r); err != nil {
		e.log.Error().Err(err).Str("redemption", r.ID.String()).Msg("redemption history write failed")
	}
}

// History returns recent redemptions for userID, most recent first.
func (e *Engine) History(ctx context.Context, userID string, limit int) ([]domain.Redemption, error) {
	if userID == "" {
		return nil, domain.ErrEmptyIdentity
	}
	return e.history.RedemptionsFor(ctx, userID, limit)
}
