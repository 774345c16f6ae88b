package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// maxPoints is the largest balance a ledger row can hold.
var maxPoints = decimal.NewFromInt(math.MaxInt64)

// ─── Reward Rules ───────────────────────────────────────────────────────────
// These live in domain because they represent core business rules.
// Points are whole numbers; fractional results are floored.

// RewardRates holds the points-per-gram multiplier for each category.
type RewardRates struct {
	Plastic decimal.Decimal `json:"plastic"`
	Metal   decimal.Decimal `json:"metal"`
	Paper   decimal.Decimal `json:"paper"`
}

// DefaultRewardRates returns Metal=2, Plastic=1, Paper=0.5.
func DefaultRewardRates() RewardRates {
	return RewardRates{
		Plastic: decimal.NewFromInt(1),
		Metal:   decimal.NewFromInt(2),
		Paper:   decimal.RequireFromString("0.5"),
	}
}

// Multiplier returns the rate for a category (zero for unknown labels).
func (r RewardRates) Multiplier(c Category) decimal.Decimal {
	switch c {
	case CategoryPlastic:
		return r.Plastic
	case CategoryMetal:
		return r.Metal
	case CategoryPaper:
		return r.Paper
	default:
		return decimal.Zero
	}
}

// PointsFor computes floor(weightGrams × multiplier). Pure; never fails.
// Results beyond int64 saturate at math.MaxInt64; use CheckedPointsFor
// to reject them instead.
func (r RewardRates) PointsFor(c Category, weightGrams int64) int64 {
	points, err := r.CheckedPointsFor(c, weightGrams)
	if err != nil {
		return math.MaxInt64
	}
	return points
}

// CheckedPointsFor is PointsFor that reports ErrInvalidWeight when the
// points do not fit in int64.
func (r RewardRates) CheckedPointsFor(c Category, weightGrams int64) (int64, error) {
	if weightGrams <= 0 {
		return 0, nil
	}
	points := decimal.NewFromInt(weightGrams).Mul(r.Multiplier(c)).Floor()
	if points.IsNegative() || points.GreaterThan(maxPoints) {
		return 0, fmt.Errorf("%w: %d g of %s overflows the points balance", ErrInvalidWeight, weightGrams, c)
	}
	return points.IntPart(), nil
}

// PointsFor applies the default rates.
func PointsFor(c Category, weightGrams int64) int64 {
	return DefaultRewardRates().PointsFor(c, weightGrams)
}
