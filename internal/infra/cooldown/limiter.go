// Package cooldown enforces the minimum interval between accepted deposits.
//
// The Limiter keys attempts by bin or by user depending on scope and asks a
// Store whether the window has elapsed. Checks never block and never queue;
// a successful acquisition records the attempt time before returning.
package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecobin-network/ecobin/internal/domain"
)

// DefaultWindow is the cooldown applied when none is configured.
const DefaultWindow = 10 * time.Second

// Store records the last accepted attempt per key.
type Store interface {
	// Acquire records now for key when at least window has passed since the
	// last accepted attempt. Otherwise it reports the remaining wait.
	Acquire(ctx context.Context, key string, now time.Time, window time.Duration) (allowed bool, remaining time.Duration, err error)
}

// Limiter implements domain.RateLimiter.
type Limiter struct {
	store  Store
	window time.Duration
	scope  domain.CooldownScope
	log    zerolog.Logger
}

var _ domain.RateLimiter = (*Limiter)(nil)

// New builds a limiter. A zero window means DefaultWindow; an empty scope
// means per-bin.
func New(store Store, window time.Duration, scope domain.CooldownScope, log zerolog.Logger) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("cooldown store is required")
	}
	if window == 0 {
		window = DefaultWindow
	}
	if window < 0 {
		return nil, fmt.Errorf("cooldown window must be positive, got %s", window)
	}
	switch scope {
	case "":
		scope = domain.ScopeBin
	case domain.ScopeBin, domain.ScopeUser:
	default:
		return nil, fmt.Errorf("unknown cooldown scope %q (want %q or %q)", scope, domain.ScopeBin, domain.ScopeUser)
	}
	return &Limiter{
		store:  store,
		window: window,
		scope:  scope,
		log:    log.With().Str("component", "cooldown").Logger(),
	}, nil
}

// Window returns the configured interval.
func (l *Limiter) Window() time.Duration { return l.window }

// Scope returns what attempts are keyed on.
func (l *Limiter) Scope() domain.CooldownScope { return l.scope }

// TryAcquire decides whether an attempt at now may proceed.
func (l *Limiter) TryAcquire(ctx context.Context, binID, userID string, now time.Time) (domain.CooldownDecision, error) {
	key, err := l.key(binID, userID)
	if err != nil {
		return domain.CooldownDecision{}, err
	}

	allowed, remaining, err := l.store.Acquire(ctx, key, now, l.window)
	if err != nil {
		return domain.CooldownDecision{}, fmt.Errorf("cooldown %s: %w", key, err)
	}
	d := domain.CooldownDecision{Allowed: allowed, Remaining: remaining}
	if !allowed {
		l.log.Debug().Str("key", key).Int("remaining_seconds", d.RemainingSeconds()).Msg("attempt inside cooldown")
	}
	return d, nil
}

func (l *Limiter) key(binID, userID string) (string, error) {
	if l.scope == domain.ScopeUser {
		if userID == "" {
			return "", domain.ErrEmptyIdentity
		}
		return "user:" + userID, nil
	}
	if binID == "" {
		return "", fmt.Errorf("%w: bin id required", domain.ErrEmptyIdentity)
	}
	return "bin:" + binID, nil
}
