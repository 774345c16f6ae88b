// Package api provides the HTTP server for the reward ledger.
// It exposes the deposit, redemption, and read-only views as a JSON API.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ecobin-network/ecobin/internal/app/deposit"
	"github.com/ecobin-network/ecobin/internal/app/redemption"
	"github.com/ecobin-network/ecobin/internal/domain"
)

// Version is reported by /health.
var Version = "dev"

// Detector reports the current classifier verdict without weighing.
type Detector interface {
	Detect(ctx context.Context) (domain.Category, error)
}

// Server is the ecobin HTTP API server.
type Server struct {
	ledger         domain.LedgerStore
	deposits       *deposit.Service
	redemptions    *redemption.Engine
	impact         domain.ImpactCoefficients
	detector       Detector // nil when no camera is attached
	metricsEnabled bool
	log            zerolog.Logger
}

// NewServer creates a new API server.
func NewServer(ledger domain.LedgerStore, deposits *deposit.Service, redemptions *redemption.Engine,
	impact domain.ImpactCoefficients, log zerolog.Logger) *Server {
	return &Server{
		ledger:      ledger,
		deposits:    deposits,
		redemptions: redemptions,
		impact:      impact,
		log:         log.With().Str("component", "api").Logger(),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetDetector exposes live detection at /api/detection.
func (s *Server) SetDetector(d Detector) { s.detector = d }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": Version,
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/users/{user}", func(r chi.Router) {
			r.Get("/", s.handleUser)
			r.Post("/deposits", s.handleDeposit)
			r.Get("/deposits", s.handleDepositHistory)
			r.Post("/redemptions", s.handleRedeem)
			r.Get("/redemptions", s.handleRedemptionHistory)
			r.Get("/reconcile", s.handleReconcile)
		})
		r.Get("/catalog", s.handleCatalog)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/impact", s.handleImpact)
		r.Get("/detection", s.handleDetection)
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for the kiosk page served from the bin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			ev := log.Debug()
			if ww.Status() >= http.StatusInternalServerError {
				ev = log.Warn()
			}
			ev.Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
