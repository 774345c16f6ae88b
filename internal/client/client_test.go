package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecobin-network/ecobin/internal/api"
	"github.com/ecobin-network/ecobin/internal/app/deposit"
	"github.com/ecobin-network/ecobin/internal/app/redemption"
	"github.com/ecobin-network/ecobin/internal/domain"
	"github.com/ecobin-network/ecobin/internal/infra/cooldown"
	"github.com/ecobin-network/ecobin/internal/infra/ledger"
	"github.com/ecobin-network/ecobin/internal/infra/memlog"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	store, err := ledger.Open(ctx, filepath.Join(t.TempDir(), "users.csv"), zerolog.Nop())
	require.NoError(t, err)
	limiter, err := cooldown.New(cooldown.NewMemoryStore(), 10*time.Second, domain.ScopeBin, zerolog.Nop())
	require.NoError(t, err)
	history := memlog.New()

	srv := api.NewServer(store,
		deposit.New(store, history, limiter, nil, domain.DefaultRewardRates(), zerolog.Nop()),
		redemption.New(store, history, domain.DefaultCatalog(), zerolog.Nop()),
		domain.DefaultImpactCoefficients(), zerolog.Nop())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL + "/")
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	require.NoError(t, c.Health(ctx))

	u, err := c.User(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.User)
	assert.Equal(t, 1, u.Rank)

	receipt, err := c.Deposit(ctx, "alice", DepositInput{BinID: "bin-1", Category: "Metal", WeightGrams: 3000})
	require.NoError(t, err)
	assert.EqualValues(t, 6000, receipt.Balance.Points)

	events, err := c.Deposits(ctx, "alice", 5)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, receipt.Event.ID, events[0].ID)

	red, err := c.Redeem(ctx, "alice", domain.RedemptionRequest{Kind: domain.KindCoupon, CatalogItemID: "grocery-5"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, red.Status)
	assert.EqualValues(t, 1000, red.Balance)

	list, err := c.Redemptions(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	board, err := c.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board.Standings, 1)
	assert.Equal(t, domain.MedalGold, board.Standings[0].Medal)

	im, err := c.Impact(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "3.00", im.TotalKg)
	assert.Equal(t, "4.50", im.CO2SavedKg)

	cat, err := c.Catalog(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, cat.Catalog.PointsPerUnit)
	assert.True(t, cat.Rates.Metal.Equal(decimal.NewFromInt(2)))
}

func TestClient_Rejections(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	_, err := c.Deposit(ctx, "alice", DepositInput{BinID: "bin-1"})
	assert.ErrorIs(t, err, domain.ErrNoDetection)

	_, err = c.Deposit(ctx, "alice", DepositInput{BinID: "bin-1", Category: "Plastic", WeightGrams: 100})
	require.NoError(t, err)
	_, err = c.Deposit(ctx, "alice", DepositInput{BinID: "bin-1", Category: "Plastic", WeightGrams: 100})
	require.ErrorIs(t, err, domain.ErrCooldownActive)
	var rej *RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, http.StatusTooManyRequests, rej.Status)
	assert.Positive(t, rej.RemainingSeconds)

	_, err = c.Redeem(ctx, "alice", domain.RedemptionRequest{Kind: domain.KindCash, Amount: decimal.NewFromInt(4)})
	assert.ErrorIs(t, err, domain.ErrBelowMinimum)

	_, err = c.Redeem(ctx, "alice", domain.RedemptionRequest{Kind: "crypto"})
	require.True(t, errors.As(err, &rej))
	assert.True(t, rej.Validation())
}

func TestClient_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"ledger storage unavailable","type":"error"}}`))
	}))
	defer ts.Close()

	_, err := New(ts.URL).User(context.Background(), "alice")
	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
	assert.Contains(t, se.Error(), "ledger storage unavailable")
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	err := New(url).Health(context.Background())
	assert.Error(t, err)
}
