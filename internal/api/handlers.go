package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ecobin-network/ecobin/internal/app/deposit"
	"github.com/ecobin-network/ecobin/internal/domain"
)

// ─── Ledger REST API ────────────────────────────────────────────────────────
//
// GET  /api/users/{user}              first sighting + balance, rank, medal
// POST /api/users/{user}/deposits     run the deposit pipeline
// GET  /api/users/{user}/deposits     recent deposits
// POST /api/users/{user}/redemptions  redeem points
// GET  /api/users/{user}/redemptions  recent redemptions
// GET  /api/users/{user}/reconcile    ledger vs. deposit history
// GET  /api/catalog                   reward rates and redemption catalog
// GET  /api/leaderboard               ranking with medals
// GET  /api/impact                    CO2 and trees saved
// GET  /api/detection                 live classifier verdict

const maxBodyBytes = 1 << 16

// userResponse is the dashboard view of one user.
type userResponse struct {
	User        string       `json:"user"`
	WeightGrams int64        `json:"weight_grams"`
	Points      int64        `json:"points"`
	Rank        int          `json:"rank"`
	Medal       domain.Medal `json:"medal,omitempty"`
	TotalUsers  int          `json:"total_users"`
}

// depositBody is the POST /deposits payload. Omit category to poll the
// classifier.
type depositBody struct {
	BinID       string `json:"bin_id"`
	Category    string `json:"category,omitempty"`
	WeightGrams int64  `json:"weight_grams,omitempty"`
}

// handleUser registers the user on first sighting and returns their standing.
func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user")
	u, err := s.ledger.Touch(r.Context(), userID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	ranking := domain.Rank(s.ledger.Snapshot())
	rank := domain.RankOf(u.ID, ranking)
	writeJSON(w, http.StatusOK, userResponse{
		User:        u.ID,
		WeightGrams: u.WeightGrams,
		Points:      u.Points,
		Rank:        rank,
		Medal:       domain.MedalFor(rank),
		TotalUsers:  len(ranking),
	})
}

// handleDeposit runs one deposit attempt.
func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var body depositBody
	if err := decodeBody(w, r, &body); err != nil {
		writeRejection(w, http.StatusBadRequest, domain.ReasonValidation, err.Error(), nil)
		return
	}

	receipt, err := s.deposits.Deposit(r.Context(), deposit.Request{
		UserID:      chi.URLParam(r, "user"),
		BinID:       body.BinID,
		Category:    domain.Category(body.Category),
		WeightGrams: body.WeightGrams,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleDepositHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeRejection(w, http.StatusBadRequest, domain.ReasonValidation, err.Error(), nil)
		return
	}
	events, err := s.deposits.History(r.Context(), chi.URLParam(r, "user"), limit)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if events == nil {
		events = []domain.DepositEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deposits": events})
}

// handleRedeem resolves one redemption. Rejections carry the recorded
// redemption alongside the reason.
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req domain.RedemptionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeRejection(w, http.StatusBadRequest, domain.ReasonValidation, err.Error(), nil)
		return
	}

	red, err := s.redemptions.Redeem(r.Context(), chi.URLParam(r, "user"), req)
	if err != nil {
		if domain.IsRejection(err) {
			writeRejection(w, statusFor(err), domain.RejectionReason(err), err.Error(), map[string]interface{}{
				"redemption": red,
			})
			return
		}
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, red)
}

func (s *Server) handleRedemptionHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeRejection(w, http.StatusBadRequest, domain.ReasonValidation, err.Error(), nil)
		return
	}
	list, err := s.redemptions.History(r.Context(), chi.URLParam(r, "user"), limit)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if list == nil {
		list = []domain.Redemption{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"redemptions": list})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deposits.Reconcile(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ─── Read-Only Views ────────────────────────────────────────────────────────

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rates":   s.deposits.Rates(),
		"catalog": s.redemptions.Catalog(),
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeRejection(w, http.StatusBadRequest, domain.ReasonValidation, err.Error(), nil)
		return
	}
	ranking := domain.Rank(s.ledger.Snapshot())
	total := len(ranking)
	if limit > 0 && limit < total {
		ranking = ranking[:limit]
	}
	if ranking == nil {
		ranking = []domain.Standing{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"standings":   ranking,
		"total_users": total,
	})
}

// handleImpact reports community impact, or one user's with ?user=.
func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()
	grams := snap.TotalWeightGrams()
	scope := "community"
	if userID := r.URL.Query().Get("user"); userID != "" {
		u, _ := snap.Get(userID)
		grams = u.WeightGrams
		scope = userID
	}

	im := s.impact.Compute(grams)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scope":              scope,
		"total_weight_grams": im.TotalWeightGrams,
		"total_kg":           im.TotalKg.StringFixed(2),
		"co2_saved_kg":       im.CO2SavedKg.StringFixed(2),
		"trees_saved":        im.TreesSaved.StringFixed(2),
	})
}

func (s *Server) handleDetection(w http.ResponseWriter, r *http.Request) {
	if s.detector == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"detected": false})
		return
	}
	cat, err := s.detector.Detect(r.Context())
	if errors.Is(err, domain.ErrNoDetection) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"detected": false})
		return
	}
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"detected": true, "category": cat})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// parseLimit reads ?limit=; absent means 0 (callee default).
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("limit must be a non-negative integer, got %q", raw)
	}
	return n, nil
}
