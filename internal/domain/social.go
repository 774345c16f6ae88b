package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ─── Leaderboard Types ──────────────────────────────────────────────────────
// Standings are derived from a ledger snapshot, never stored.

// Medal is awarded to the top three positions.
type Medal string

const (
	MedalNone   Medal = ""
	MedalGold   Medal = "gold"
	MedalSilver Medal = "silver"
	MedalBronze Medal = "bronze"
)

// MedalFor maps a 1-based rank to its medal.
func MedalFor(rank int) Medal {
	switch rank {
	case 1:
		return MedalGold
	case 2:
		return MedalSilver
	case 3:
		return MedalBronze
	default:
		return MedalNone
	}
}

// Standing is one leaderboard row.
type Standing struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user"`
	Points int64  `json:"points"`
	Medal  Medal  `json:"medal,omitempty"`
}

// Rank orders users by points, descending. Equal points keep snapshot order
// (first seen first), so ties never reshuffle between calls.
func Rank(s LedgerSnapshot) []Standing {
	out := make([]Standing, len(s.Users))
	for i, u := range s.Users {
		out[i] = Standing{UserID: u.ID, Points: u.Points}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Points > out[j].Points
	})
	for i := range out {
		out[i].Rank = i + 1
		out[i].Medal = MedalFor(i + 1)
	}
	return out
}

// RankOf returns the 1-based position of userID, or 0 when absent.
func RankOf(userID string, ranking []Standing) int {
	for i, st := range ranking {
		if st.UserID == userID {
			return i + 1
		}
	}
	return 0
}

// ─── Eco Impact ─────────────────────────────────────────────────────────────
// The coefficients are policy constants chosen by the operator, not physical
// constants.

// ImpactCoefficients converts recycled mass into displayed savings.
type ImpactCoefficients struct {
	CO2KgPerKg decimal.Decimal `json:"co2_kg_per_kg"`
	TreesPerKg decimal.Decimal `json:"trees_per_kg"`
}

// DefaultImpactCoefficients returns 1.5 kg CO₂ and 0.02 trees per kg.
func DefaultImpactCoefficients() ImpactCoefficients {
	return ImpactCoefficients{
		CO2KgPerKg: decimal.RequireFromString("1.5"),
		TreesPerKg: decimal.RequireFromString("0.02"),
	}
}

// EcoImpact is the aggregate dashboard view.
type EcoImpact struct {
	TotalWeightGrams int64           `json:"total_weight_grams"`
	TotalKg          decimal.Decimal `json:"total_kg"`
	CO2SavedKg       decimal.Decimal `json:"co2_saved_kg"`
	TreesSaved       decimal.Decimal `json:"trees_saved"`
}

// Compute derives the metrics from the total weight across all users.
func (c ImpactCoefficients) Compute(totalWeightGrams int64) EcoImpact {
	kg := decimal.NewFromInt(totalWeightGrams).Div(decimal.NewFromInt(1000))
	return EcoImpact{
		TotalWeightGrams: totalWeightGrams,
		TotalKg:          kg,
		CO2SavedKg:       kg.Mul(c.CO2KgPerKg),
		TreesSaved:       kg.Mul(c.TreesPerKg),
	}
}
