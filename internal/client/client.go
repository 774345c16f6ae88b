// Package client talks to a running ecobin API server.
// The CLI uses it for every command except serve.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ecobin-network/ecobin/internal/domain"
)

// DefaultServer is the API address used when none is configured.
const DefaultServer = "http://127.0.0.1:8080"

// Client is a thin JSON client for the ecobin API.
type Client struct {
	base       string
	httpClient *http.Client
}

// New creates a client for baseURL.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultServer
	}
	return &Client{
		base:       strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ─── Response Types ─────────────────────────────────────────────────────────

// UserView is a user's balance and standing.
type UserView struct {
	User        string       `json:"user"`
	WeightGrams int64        `json:"weight_grams"`
	Points      int64        `json:"points"`
	Rank        int          `json:"rank"`
	Medal       domain.Medal `json:"medal"`
	TotalUsers  int          `json:"total_users"`
}

// Leaderboard is the ranked list of users.
type Leaderboard struct {
	Standings  []domain.Standing `json:"standings"`
	TotalUsers int               `json:"total_users"`
}

// Impact is the environmental impact at two decimal places.
type Impact struct {
	Scope            string `json:"scope"`
	TotalWeightGrams int64  `json:"total_weight_grams"`
	TotalKg          string `json:"total_kg"`
	CO2SavedKg       string `json:"co2_saved_kg"`
	TreesSaved       string `json:"trees_saved"`
}

// CatalogView lists reward rates and redeemable items.
type CatalogView struct {
	Rates   domain.RewardRates `json:"rates"`
	Catalog domain.Catalog     `json:"catalog"`
}

// DepositInput is an attempt; leave Category empty to use the bin camera.
type DepositInput struct {
	BinID       string `json:"bin_id"`
	Category    string `json:"category,omitempty"`
	WeightGrams int64  `json:"weight_grams,omitempty"`
}

// ─── Calls ──────────────────────────────────────────────────────────────────

// Health checks the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]string
	return c.do(ctx, http.MethodGet, "/health", nil, &out)
}

// User registers the user on first sighting and returns their standing.
func (c *Client) User(ctx context.Context, user string) (UserView, error) {
	var out UserView
	err := c.do(ctx, http.MethodGet, userPath(user, ""), nil, &out)
	return out, err
}

// Deposit submits a deposit attempt.
func (c *Client) Deposit(ctx context.Context, user string, in DepositInput) (domain.DepositReceipt, error) {
	var out domain.DepositReceipt
	err := c.do(ctx, http.MethodPost, userPath(user, "/deposits"), in, &out)
	return out, err
}

// Deposits lists recent deposits, most recent first.
func (c *Client) Deposits(ctx context.Context, user string, limit int) ([]domain.DepositEvent, error) {
	var out struct {
		Deposits []domain.DepositEvent `json:"deposits"`
	}
	err := c.do(ctx, http.MethodGet, userPath(user, "/deposits")+limitQuery(limit), nil, &out)
	return out.Deposits, err
}

// Redeem submits a redemption request.
func (c *Client) Redeem(ctx context.Context, user string, req domain.RedemptionRequest) (domain.Redemption, error) {
	var out domain.Redemption
	err := c.do(ctx, http.MethodPost, userPath(user, "/redemptions"), req, &out)
	return out, err
}

// Redemptions lists recent redemptions, most recent first.
func (c *Client) Redemptions(ctx context.Context, user string, limit int) ([]domain.Redemption, error) {
	var out struct {
		Redemptions []domain.Redemption `json:"redemptions"`
	}
	err := c.do(ctx, http.MethodGet, userPath(user, "/redemptions")+limitQuery(limit), nil, &out)
	return out.Redemptions, err
}

// Leaderboard returns the top limit users (all when limit is 0).
func (c *Client) Leaderboard(ctx context.Context, limit int) (Leaderboard, error) {
	var out Leaderboard
	err := c.do(ctx, http.MethodGet, "/api/leaderboard"+limitQuery(limit), nil, &out)
	return out, err
}

// Impact returns community impact, or one user's when user is set.
func (c *Client) Impact(ctx context.Context, user string) (Impact, error) {
	path := "/api/impact"
	if user != "" {
		path += "?user=" + url.QueryEscape(user)
	}
	var out Impact
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Catalog returns the reward rates and redemption catalog.
func (c *Client) Catalog(ctx context.Context) (CatalogView, error) {
	var out CatalogView
	err := c.do(ctx, http.MethodGet, "/api/catalog", nil, &out)
	return out, err
}

// ─── Transport ──────────────────────────────────────────────────────────────

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func userPath(user, suffix string) string {
	return "/api/users/" + url.PathEscape(user) + suffix
}

func limitQuery(limit int) string {
	if limit <= 0 {
		return ""
	}
	return "?limit=" + strconv.Itoa(limit)
}
