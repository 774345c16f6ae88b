// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of the reward ledger: users, deposits, redemptions
// and the read-only views derived from them. It depends on nothing but value
// libraries (uuid, decimal).
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Waste Categories ───────────────────────────────────────────────────────

// Category is the classifier's label for a deposited item.
type Category string

const (
	CategoryPlastic Category = "Plastic"
	CategoryMetal   Category = "Metal"
	CategoryPaper   Category = "Paper"
)

// Categories lists every accepted category in display order.
func Categories() []Category {
	return []Category{CategoryPlastic, CategoryMetal, CategoryPaper}
}

// ParseCategory maps a classifier label onto a Category.
// Labels are case-sensitive, matching what the camera process writes.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryPlastic, CategoryMetal, CategoryPaper:
		return Category(s), true
	default:
		return "", false
	}
}

// ─── Ledger Types ───────────────────────────────────────────────────────────

// User is one ledger row. Created lazily with zero defaults.
type User struct {
	ID          string `json:"user"`
	WeightGrams int64  `json:"weight_grams"`
	Points      int64  `json:"points"`
}

// Balance is the state of a user immediately after a committed mutation.
type Balance struct {
	UserID      string `json:"user"`
	WeightGrams int64  `json:"weight_grams"`
	Points      int64  `json:"points"`
	Created     bool   `json:"created,omitempty"` // true when this mutation created the record
}

// LedgerSnapshot is a read-only, point-in-time copy of all users.
// Users are kept in first-seen order; the leaderboard relies on it for ties.
type LedgerSnapshot struct {
	Users   []User    `json:"users"`
	TakenAt time.Time `json:"taken_at"`
}

// Get returns a user from the snapshot.
func (s LedgerSnapshot) Get(userID string) (User, bool) {
	for _, u := range s.Users {
		if u.ID == userID {
			return u, true
		}
	}
	return User{}, false
}

// TotalWeightGrams sums weight over every user.
func (s LedgerSnapshot) TotalWeightGrams() int64 {
	var total int64
	for _, u := range s.Users {
		total += u.WeightGrams
	}
	return total
}

// TotalPoints sums outstanding points over every user.
func (s LedgerSnapshot) TotalPoints() int64 {
	var total int64
	for _, u := range s.Users {
		total += u.Points
	}
	return total
}

// ─── Deposit Types ──────────────────────────────────────────────────────────

// Reading is one classifier result: what was dropped in and how much it weighed.
type Reading struct {
	Category    Category `json:"category"`
	WeightGrams int64    `json:"weight_grams"`
}

// Validate checks the reading before any state is touched.
func (r Reading) Validate() error {
	if _, ok := ParseCategory(string(r.Category)); !ok {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidWeight, r.Category)
	}
	if r.WeightGrams <= 0 {
		return fmt.Errorf("%w: %d g", ErrInvalidWeight, r.WeightGrams)
	}
	return nil
}

// DepositEvent is an immutable, append-only record of an accepted deposit.
type DepositEvent struct {
	ID            uuid.UUID `json:"id"`
	UserID        string    `json:"user"`
	BinID         string    `json:"bin_id"`
	Category      Category  `json:"category"`
	WeightGrams   int64     `json:"weight_grams"`
	PointsAwarded int64     `json:"points_awarded"`
	Timestamp     time.Time `json:"timestamp"`
}

// DepositReceipt is returned to the caller of an accepted deposit.
type DepositReceipt struct {
	Event   DepositEvent `json:"event"`
	Balance Balance      `json:"balance"`
}

// ─── Cooldown Types ─────────────────────────────────────────────────────────

// CooldownScope selects what a cooldown window is keyed on.
type CooldownScope string

const (
	ScopeBin  CooldownScope = "bin"  // shared by every user of a bin
	ScopeUser CooldownScope = "user" // per user, across bins
)

// CooldownDecision is the outcome of a non-blocking cooldown check.
type CooldownDecision struct {
	Allowed   bool          `json:"allowed"`
	Remaining time.Duration `json:"-"`
}

// RemainingSeconds rounds the remaining wait up to whole seconds.
func (d CooldownDecision) RemainingSeconds() int {
	if d.Allowed || d.Remaining <= 0 {
		return 0
	}
	secs := d.Remaining / time.Second
	if d.Remaining%time.Second != 0 {
		secs++
	}
	return int(secs)
}

// ─── Redemption Types ───────────────────────────────────────────────────────

// RedemptionKind is the tagged variant of a redemption request.
type RedemptionKind string

const (
	KindCash     RedemptionKind = "cash"
	KindCoupon   RedemptionKind = "coupon"
	KindGiftCard RedemptionKind = "gift_card"
)

// ParseRedemptionKind accepts the wire names of the three kinds.
func ParseRedemptionKind(s string) (RedemptionKind, bool) {
	switch RedemptionKind(s) {
	case KindCash, KindCoupon, KindGiftCard:
		return RedemptionKind(s), true
	default:
		return "", false
	}
}

// RedemptionStatus is the resolved state of a request.
type RedemptionStatus string

const (
	StatusApproved RedemptionStatus = "approved"
	StatusRejected RedemptionStatus = "rejected"
)

// RedemptionRequest asks to convert points into a reward.
// CatalogItemID is empty for cash; Amount is only meaningful for cash.
type RedemptionRequest struct {
	Kind          RedemptionKind  `json:"kind"`
	CatalogItemID string          `json:"item_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
}

// Redemption is a resolved request, approved or rejected.
type Redemption struct {
	ID            uuid.UUID        `json:"id"`
	UserID        string           `json:"user"`
	Kind          RedemptionKind   `json:"kind"`
	CatalogItemID string           `json:"item_id,omitempty"`
	Amount        decimal.Decimal  `json:"amount"`
	PointsCost    int64            `json:"points_cost"`
	Status        RedemptionStatus `json:"status"`
	Reason        string           `json:"reason,omitempty"`
	Balance       int64            `json:"balance"`
	Timestamp     time.Time        `json:"timestamp"`
}
