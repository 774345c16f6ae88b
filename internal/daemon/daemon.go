package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecobin-network/ecobin/internal/api"
	"github.com/ecobin-network/ecobin/internal/app/deposit"
	"github.com/ecobin-network/ecobin/internal/app/redemption"
	"github.com/ecobin-network/ecobin/internal/domain"
	"github.com/ecobin-network/ecobin/internal/infra/classifier"
	"github.com/ecobin-network/ecobin/internal/infra/cooldown"
	"github.com/ecobin-network/ecobin/internal/infra/ledger"
	"github.com/ecobin-network/ecobin/internal/infra/logger"
	"github.com/ecobin-network/ecobin/internal/infra/memlog"
	"github.com/ecobin-network/ecobin/internal/infra/sqlite"
)

// history is what the daemon needs from either retention backend.
type history interface {
	domain.DepositLog
	domain.RedemptionLog
}

// Daemon owns every long-lived component of the ecobin service.
type Daemon struct {
	cfg Config
	log zerolog.Logger

	Ledger      *ledger.Store
	Deposits    *deposit.Service
	Redemptions *redemption.Engine
	Server      *api.Server

	closers []func() error
}

// New wires the service from cfg. A corrupt ledger file is logged and the
// service starts with an empty ledger.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Daemon, error) {
	d := &Daemon{cfg: cfg, log: logger.Component(log, "daemon")}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	rates, err := cfg.RewardRates()
	if err != nil {
		return nil, err
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	impact, err := cfg.ImpactCoefficients()
	if err != nil {
		return nil, err
	}

	// ─── Ledger ─────────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.Ledger.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	store, err := ledger.Open(ctx, cfg.Ledger.Path, log)
	if err != nil {
		if !errors.Is(err, domain.ErrPersistenceUnavailable) {
			return nil, err
		}
		d.log.Warn().Err(err).Msg("ledger unreadable, starting with an empty ledger")
	}
	d.Ledger = store

	// ─── History ────────────────────────────────────────────────────────
	hist, err := d.openHistory(ctx)
	if err != nil {
		return nil, err
	}

	// ─── Cooldown ───────────────────────────────────────────────────────
	limiter, err := d.openLimiter(ctx)
	if err != nil {
		return nil, err
	}

	// ─── Classifier ─────────────────────────────────────────────────────
	var cls domain.Classifier
	var det api.Detector
	if cfg.Classifier.Enabled {
		scale, err := classifier.NewSimulatedScale(cfg.Classifier.MinWeight, cfg.Classifier.MaxWeight)
		if err != nil {
			return nil, err
		}
		fc := classifier.NewFileClassifier(cfg.Classifier.DetectionFile, scale, log)
		cls, det = fc, fc
	}

	// ─── Services ───────────────────────────────────────────────────────
	d.Deposits = deposit.New(store, hist, limiter, cls, rates, log)
	d.Redemptions = redemption.New(store, hist, catalog, log)

	d.Server = api.NewServer(store, d.Deposits, d.Redemptions, impact, log)
	if det != nil {
		d.Server.SetDetector(det)
	}
	if cfg.Metrics.Enabled {
		d.Server.EnableMetrics()
	}

	ok = true
	return d, nil
}

func (d *Daemon) openHistory(ctx context.Context) (history, error) {
	if d.cfg.History.Retention == RetentionSession {
		d.log.Info().Msg("history kept in memory for this session only")
		return memlog.New(), nil
	}

	db, err := sqlite.Open(ctx, d.cfg.History.Path)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, db.Close)
	d.log.Info().Str("path", db.Path()).Msg("history database ready")
	return struct {
		*sqlite.DepositLog
		*sqlite.RedemptionLog
	}{db.Deposits(), db.Redemptions()}, nil
}

func (d *Daemon) openLimiter(ctx context.Context) (*cooldown.Limiter, error) {
	window, err := d.cfg.CooldownWindow()
	if err != nil {
		return nil, err
	}
	scope, err := d.cfg.CooldownScope()
	if err != nil {
		return nil, err
	}

	var store cooldown.Store
	switch d.cfg.Cooldown.Backend {
	case BackendRedis:
		rc := d.cfg.Redis
		client, err := cooldown.OpenRedis(ctx, rc.Addr, rc.Password, rc.DB)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, client.Close)
		store = cooldown.NewRedisStore(client, rc.KeyPrefix)
	default:
		store = cooldown.NewMemoryStore()
	}

	d.log.Info().
		Str("backend", d.cfg.Cooldown.Backend).
		Str("scope", string(scope)).
		Dur("window", window).
		Msg("deposit cooldown configured")
	return cooldown.New(store, window, scope, d.log)
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.cfg.Addr(), err)
	}
	return d.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (d *Daemon) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           d.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		d.log.Info().Str("addr", ln.Addr().String()).Msg("api listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	d.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the history database and redis client.
func (d *Daemon) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
