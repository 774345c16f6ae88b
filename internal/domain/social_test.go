package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

// ─── Leaderboard Tests ──────────────────────────────────────────────────────

func TestRank_StableTieBreak(t *testing.T) {
	snap := LedgerSnapshot{Users: []User{
		{ID: "A", Points: 500},
		{ID: "B", Points: 900},
		{ID: "C", Points: 500},
	}}

	got := Rank(snap)
	want := []string{"B", "A", "C"}
	if len(got) != len(want) {
		t.Fatalf("Rank() returned %d rows, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].UserID != id {
			t.Errorf("position %d = %s, want %s", i+1, got[i].UserID, id)
		}
		if got[i].Rank != i+1 {
			t.Errorf("%s Rank = %d, want %d", id, got[i].Rank, i+1)
		}
	}
	if got[0].Medal != MedalGold || got[1].Medal != MedalSilver || got[2].Medal != MedalBronze {
		t.Errorf("medals = %q %q %q", got[0].Medal, got[1].Medal, got[2].Medal)
	}

	// Repeated ranking never reshuffles ties.
	for i := 0; i < 10; i++ {
		again := Rank(snap)
		if again[1].UserID != "A" || again[2].UserID != "C" {
			t.Fatalf("tie order changed on iteration %d", i)
		}
	}
}

func TestRank_Empty(t *testing.T) {
	if got := Rank(LedgerSnapshot{}); len(got) != 0 {
		t.Errorf("Rank(empty) = %v, want empty", got)
	}
}

func TestRankOf(t *testing.T) {
	ranking := Rank(LedgerSnapshot{Users: []User{
		{ID: "A", Points: 500},
		{ID: "B", Points: 900},
		{ID: "C", Points: 500},
		{ID: "D", Points: 100},
	}})
	tests := map[string]int{"B": 1, "A": 2, "C": 3, "D": 4, "nobody": 0}
	for id, want := range tests {
		if got := RankOf(id, ranking); got != want {
			t.Errorf("RankOf(%s) = %d, want %d", id, got, want)
		}
	}
}

func TestMedalFor(t *testing.T) {
	tests := []struct {
		rank int
		want Medal
	}{
		{1, MedalGold},
		{2, MedalSilver},
		{3, MedalBronze},
		{4, MedalNone},
		{0, MedalNone},
	}
	for _, tt := range tests {
		if got := MedalFor(tt.rank); got != tt.want {
			t.Errorf("MedalFor(%d) = %q, want %q", tt.rank, got, tt.want)
		}
	}
}

// ─── Eco Impact Tests ───────────────────────────────────────────────────────

func TestImpact_Compute(t *testing.T) {
	got := DefaultImpactCoefficients().Compute(2000)

	if got.TotalKg.StringFixed(2) != "2.00" {
		t.Errorf("TotalKg = %s, want 2.00", got.TotalKg.StringFixed(2))
	}
	if got.CO2SavedKg.StringFixed(2) != "3.00" {
		t.Errorf("CO2SavedKg = %s, want 3.00", got.CO2SavedKg.StringFixed(2))
	}
	if got.TreesSaved.StringFixed(2) != "0.04" {
		t.Errorf("TreesSaved = %s, want 0.04", got.TreesSaved.StringFixed(2))
	}
	if !got.TreesSaved.Equal(decimal.RequireFromString("0.04")) {
		t.Errorf("TreesSaved not exact: %s", got.TreesSaved)
	}
}

func TestImpact_CustomCoefficients(t *testing.T) {
	c := ImpactCoefficients{
		CO2KgPerKg: decimal.NewFromInt(2),
		TreesPerKg: decimal.RequireFromString("0.1"),
	}
	got := c.Compute(500)
	if !got.CO2SavedKg.Equal(decimal.NewFromInt(1)) {
		t.Errorf("CO2SavedKg = %s, want 1", got.CO2SavedKg)
	}
	if !got.TreesSaved.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("TreesSaved = %s, want 0.05", got.TreesSaved)
	}
}

func TestImpact_Zero(t *testing.T) {
	got := DefaultImpactCoefficients().Compute(0)
	if !got.TotalKg.IsZero() || !got.CO2SavedKg.IsZero() || !got.TreesSaved.IsZero() {
		t.Errorf("Compute(0) = %+v, want zeros", got)
	}
}
