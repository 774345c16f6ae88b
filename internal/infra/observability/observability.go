// Package observability holds the Prometheus collectors for the reward ledger.
//
// This provides:
//   - Deposit counters by category and rejection reason
//   - Redemption counters by kind and status
//   - Ledger persistence latency and size
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ecobin-network/ecobin/internal/domain"
)

// ─── Deposit Metrics ────────────────────────────────────────────────────────

// DepositsAccepted tracks accepted deposits by category.
var DepositsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ecobin",
	Subsystem: "deposit",
	Name:      "accepted_total",
	Help:      "Total accepted deposits by waste category.",
}, []string{"category"})

// DepositWeightGrams tracks recycled mass by category.
var DepositWeightGrams = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ecobin",
	Subsystem: "deposit",
	Name:      "weight_grams_total",
	Help:      "Total deposited weight in grams by waste category.",
}, []string{"category"})

// PointsAwarded tracks points credited by deposits.
var PointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ecobin",
	Subsystem: "deposit",
	Name:      "points_awarded_total",
	Help:      "Total points credited by accepted deposits.",
})

// DepositsRejected tracks rejected deposit attempts by reason.
var DepositsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ecobin",
	Subsystem: "deposit",
	Name:      "rejected_total",
	Help:      "Total rejected deposit attempts by reason.",
}, []string{"reason"})

// ─── Redemption Metrics ─────────────────────────────────────────────────────

// Redemptions tracks resolved redemptions by kind and status.
var Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ecobin",
	Subsystem: "redemption",
	Name:      "resolved_total",
	Help:      "Total resolved redemptions by kind, status and reason.",
}, []string{"kind", "status", "reason"})

// PointsRedeemed tracks points debited by approved redemptions.
var PointsRedeemed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ecobin",
	Subsystem: "redemption",
	Name:      "points_total",
	Help:      "Total points debited by approved redemptions.",
}, []string{"kind"})

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// LedgerPersistSeconds tracks the duration of full-file atomic rewrites.
var LedgerPersistSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "ecobin",
	Subsystem: "ledger",
	Name:      "persist_seconds",
	Help:      "Duration of ledger write-then-rename commits.",
	Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
})

// LedgerPersistFailures tracks commits that failed to reach disk.
var LedgerPersistFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ecobin",
	Subsystem: "ledger",
	Name:      "persist_failures_total",
	Help:      "Total ledger commits that failed before the rename.",
})

// LedgerUsers tracks the number of users in the committed ledger.
var LedgerUsers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "ecobin",
	Subsystem: "ledger",
	Name:      "users",
	Help:      "Number of users in the committed ledger.",
})

// ─── Helpers ────────────────────────────────────────────────────────────────

// ObserveDeposit records an accepted deposit.
func ObserveDeposit(ev domain.DepositEvent) {
	cat := string(ev.Category)
	DepositsAccepted.WithLabelValues(cat).Inc()
	DepositWeightGrams.WithLabelValues(cat).Add(float64(ev.WeightGrams))
	PointsAwarded.Add(float64(ev.PointsAwarded))
}

// ObserveDepositRejection records a rejected attempt. Infrastructure
// failures are counted under "error".
func ObserveDepositRejection(err error) {
	reason := domain.RejectionReason(err)
	if reason == "" {
		reason = "error"
	}
	DepositsRejected.WithLabelValues(reason).Inc()
}

// ObserveRedemption records a resolved redemption. Kinds outside the
// known set share the "unknown" label.
func ObserveRedemption(r domain.Redemption) {
	kind := "unknown"
	if k, ok := domain.ParseRedemptionKind(string(r.Kind)); ok {
		kind = string(k)
	}
	Redemptions.WithLabelValues(kind, string(r.Status), r.Reason).Inc()
	if r.Status == domain.StatusApproved {
		PointsRedeemed.WithLabelValues(kind).Add(float64(r.PointsCost))
	}
}

// ObservePersist records one ledger commit attempt.
func ObservePersist(start time.Time, users int, err error) {
	LedgerPersistSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		LedgerPersistFailures.Inc()
		return
	}
	LedgerUsers.Set(float64(users))
}
