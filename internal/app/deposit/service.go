// Package deposit runs the deposit pipeline.
//
// One call to Deposit:
//  1. Validates the identity
//  2. Obtains a reading (explicit, or polled from the classifier)
//  3. Validates the reading and its points
//  4. Acquires the cooldown
//  5. Computes points and commits them to the ledger
//  6. Appends the event to the deposit log
//
// Nothing is mutated before step 5. An empty detection, an invalid reading,
// or points that would overflow the balance do not consume the cooldown.
package deposit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ecobin-network/ecobin/internal/domain"
	"github.com/ecobin-network/ecobin/internal/infra/observability"
)

// DefaultBinID is used when the caller does not name a bin.
const DefaultBinID = "bin-1"

// Request is one deposit attempt. Leave Category empty to poll the
// classifier for the reading.
type Request struct {
	UserID      string
	BinID       string
	Category    domain.Category
	WeightGrams int64
}

// Service wires the deposit collaborators.
type Service struct {
	ledger     domain.LedgerStore
	deposits   domain.DepositLog
	limiter    domain.RateLimiter
	classifier domain.Classifier
	rates      domain.RewardRates
	log        zerolog.Logger
	now        func() time.Time
}

// New creates a deposit service. classifier may be nil, in which case
// every request must carry an explicit reading.
func New(ledger domain.LedgerStore, deposits domain.DepositLog, limiter domain.RateLimiter,
	classifier domain.Classifier, rates domain.RewardRates, log zerolog.Logger) *Service {
	return &Service{
		ledger:     ledger,
		deposits:   deposits,
		limiter:    limiter,
		classifier: classifier,
		rates:      rates,
		log:        log.With().Str("component", "deposit").Logger(),
		now:        time.Now,
	}
}

// Rates returns the active reward multipliers.
func (s *Service) Rates() domain.RewardRates { return s.rates }

// Deposit runs the pipeline for one attempt.
func (s *Service) Deposit(ctx context.Context, req Request) (domain.DepositReceipt, error) {
	receipt, err := s.deposit(ctx, req)
	if err != nil {
		observability.ObserveDepositRejection(err)
		ev := s.log.Info()
		if !domain.IsRejection(err) {
			ev = s.log.Error()
		}
		ev.Err(err).Str("user", req.UserID).Str("bin", req.BinID).Msg("deposit rejected")
		return domain.DepositReceipt{}, err
	}
	observability.ObserveDeposit(receipt.Event)
	s.log.Info().
		Str("user", receipt.Event.UserID).
		Str("bin", receipt.Event.BinID).
		Str("category", string(receipt.Event.Category)).
		Int64("weight_grams", receipt.Event.WeightGrams).
		Int64("points", receipt.Event.PointsAwarded).
		Int64("balance", receipt.Balance.Points).
		Msg("deposit accepted")
	return receipt, nil
}

func (s *Service) deposit(ctx context.Context, req Request) (domain.DepositReceipt, error) {
	if req.UserID == "" {
		return domain.DepositReceipt{}, domain.ErrEmptyIdentity
	}
	binID := req.BinID
	if binID == "" {
		binID = DefaultBinID
	}

	reading, err := s.reading(ctx, req)
	if err != nil {
		return domain.DepositReceipt{}, err
	}
	if err := reading.Validate(); err != nil {
		return domain.DepositReceipt{}, err
	}
	points, err := s.rates.CheckedPointsFor(reading.Category, reading.WeightGrams)
	if err != nil {
		return domain.DepositReceipt{}, err
	}
	if u, ok := s.ledger.Get(req.UserID); ok &&
		(reading.WeightGrams > math.MaxInt64-u.WeightGrams || points > math.MaxInt64-u.Points) {
		return domain.DepositReceipt{}, fmt.Errorf("%w: deposit would overflow the balance of %q", domain.ErrInvalidAmount, req.UserID)
	}

	now := s.now()
	decision, err := s.limiter.TryAcquire(ctx, binID, req.UserID, now)
	if err != nil {
		return domain.DepositReceipt{}, err
	}
	if !decision.Allowed {
		return domain.DepositReceipt{}, &domain.CooldownError{Remaining: decision.Remaining}
	}

	balance, err := s.ledger.Apply(ctx, req.UserID, reading.WeightGrams, points)
	if err != nil {
		return domain.DepositReceipt{}, fmt.Errorf("apply deposit: %w", err)
	}

	event := domain.DepositEvent{
		ID:            uuid.New(),
		UserID:        req.UserID,
		BinID:         binID,
		Category:      reading.Category,
		WeightGrams:   reading.WeightGrams,
		PointsAwarded: points,
		Timestamp:     now,
	}
	// A failed history write is logged; the deposit stays committed.
	if err := s.deposits.Record(ctx, event); err != nil {
		s.log.Error().Err(err).Str("event", event.ID.String()).Str("user", req.UserID).
			Msg("deposit committed but history write failed")
	}

	return domain.DepositReceipt{Event: event, Balance: balance}, nil
}

func (s *Service) reading(ctx context.Context, req Request) (domain.Reading, error) {
	if req.Category != "" {
		return domain.Reading{Category: req.Category, WeightGrams: req.WeightGrams}, nil
	}
	if req.WeightGrams != 0 {
		return domain.Reading{}, fmt.Errorf("%w: weight given without category", domain.ErrInvalidWeight)
	}
	if s.classifier == nil {
		return domain.Reading{}, domain.ErrNoDetection
	}
	return s.classifier.Classify(ctx)
}

// ─── Queries ────────────────────────────────────────────────────────────────

// History returns recent deposits for userID, most recent first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]domain.DepositEvent, error) {
	if userID == "" {
		return nil, domain.ErrEmptyIdentity
	}
	return s.deposits.HistoryFor(ctx, userID, limit)
}

// Reconciliation compares the ledger with the deposit history of one user.
type Reconciliation struct {
	UserID        string `json:"user"`
	LedgerWeight  int64  `json:"ledger_weight_grams"`
	LoggedWeight  int64  `json:"logged_weight_grams"`
	LedgerPoints  int64  `json:"ledger_points"`
	AwardedPoints int64  `json:"awarded_points"`
	Consistent    bool   `json:"consistent"`
}

// Reconcile sums the history of userID against the ledger. Weight only
// ever grows through deposits, so the two weights must agree; points may
// be lower in the ledger because redemptions debit them.
func (s *Service) Reconcile(ctx context.Context, userID string) (Reconciliation, error) {
	if userID == "" {
		return Reconciliation{}, domain.ErrEmptyIdentity
	}
	weight, points, err := s.deposits.TotalsFor(ctx, userID)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("deposit totals: %w", err)
	}
	u, _ := s.ledger.Get(userID)
	r := Reconciliation{
		UserID:        userID,
		LedgerWeight:  u.WeightGrams,
		LoggedWeight:  weight,
		LedgerPoints:  u.Points,
		AwardedPoints: points,
	}
	r.Consistent = r.LedgerWeight == r.LoggedWeight && r.LedgerPoints <= r.AwardedPoints
	return r, nil
}
