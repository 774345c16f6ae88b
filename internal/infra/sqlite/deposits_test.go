package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecobin-network/ecobin/internal/domain"
)

func depositAt(user string, cat domain.Category, grams int64, at time.Time) domain.DepositEvent {
	return domain.DepositEvent{
		ID:            uuid.New(),
		UserID:        user,
		BinID:         "bin-1",
		Category:      cat,
		WeightGrams:   grams,
		PointsAwarded: domain.PointsFor(cat, grams),
		Timestamp:     at,
	}
}

// ─── Record / HistoryFor ────────────────────────────────────────────────────

func TestDeposits_RecordAndHistory(t *testing.T) {
	ctx := context.Background()
	log := newTestDB(t).Deposits()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := depositAt("alice", domain.CategoryMetal, 300, base)
	second := depositAt("alice", domain.CategoryPaper, 300, base.Add(time.Minute))
	other := depositAt("bob", domain.CategoryPlastic, 100, base)
	for _, ev := range []domain.DepositEvent{first, other, second} {
		require.NoError(t, log.Record(ctx, ev))
	}

	got, err := log.HistoryFor(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second, got[0], "most recent first")
	assert.Equal(t, first, got[1])
}

func TestDeposits_HistoryOrderFollowsAppendOrder(t *testing.T) {
	ctx := context.Background()
	log := newTestDB(t).Deposits()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Identical timestamps still come back newest-appended first.
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		ev := depositAt("alice", domain.CategoryPlastic, int64(100+i), at)
		ids = append(ids, ev.ID)
		require.NoError(t, log.Record(ctx, ev))
	}

	got, err := log.HistoryFor(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ids[2], got[0].ID)
	assert.Equal(t, ids[0], got[2].ID)
}

func TestDeposits_HistoryLimit(t *testing.T) {
	ctx := context.Background()
	log := newTestDB(t).Deposits()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 15; i++ {
		require.NoError(t, log.Record(ctx, depositAt("alice", domain.CategoryMetal, 100, base.Add(time.Duration(i)*time.Second))))
	}

	tests := []struct {
		limit int
		want  int
	}{
		{0, domain.DefaultHistoryLimit},
		{-3, domain.DefaultHistoryLimit},
		{5, 5},
		{50, 15},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit=%d", tt.limit), func(t *testing.T) {
			got, err := log.HistoryFor(ctx, "alice", tt.limit)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestDeposits_UnknownUserIsEmpty(t *testing.T) {
	got, err := newTestDB(t).Deposits().HistoryFor(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeposits_RecordRejectsEmptyUser(t *testing.T) {
	err := newTestDB(t).Deposits().Record(context.Background(), depositAt("", domain.CategoryMetal, 1, time.Now()))
	assert.ErrorIs(t, err, domain.ErrEmptyIdentity)
}

func TestDeposits_DuplicateIDRejected(t *testing.T) {
	ctx := context.Background()
	log := newTestDB(t).Deposits()
	ev := depositAt("alice", domain.CategoryMetal, 10, time.Now())

	require.NoError(t, log.Record(ctx, ev))
	assert.Error(t, log.Record(ctx, ev))
}

// ─── TotalsFor ──────────────────────────────────────────────────────────────

func TestDeposits_TotalsFor(t *testing.T) {
	ctx := context.Background()
	log := newTestDB(t).Deposits()
	now := time.Now()

	require.NoError(t, log.Record(ctx, depositAt("alice", domain.CategoryMetal, 300, now)))
	require.NoError(t, log.Record(ctx, depositAt("alice", domain.CategoryPaper, 300, now)))

	w, p, err := log.TotalsFor(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 600, w)
	assert.EqualValues(t, 750, p)

	w, p, err = log.TotalsFor(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, w)
	assert.Zero(t, p)
}

func TestDeposits_SurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.Deposits().Record(ctx, depositAt("alice", domain.CategoryMetal, 300, time.Now())))
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.Deposits().HistoryFor(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.EqualValues(t, 600, got[0].PointsAwarded)
}
