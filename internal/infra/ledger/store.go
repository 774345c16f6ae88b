// Package ledger implements the durable user → (weight, points) store.
//
// The ledger is a small CSV file rewritten whole on every mutation using
// write-temp, fsync, rename, fsync-dir. Writers are serialized by a single
// mutex held across the full read-modify-write-persist cycle; readers load
// the last committed state from an atomic pointer and never block.
package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecobin-network/ecobin/internal/domain"
	"github.com/ecobin-network/ecobin/internal/infra/observability"
)

// state is an immutable committed ledger. Never modified after publish.
type state struct {
	users []domain.User
	index map[string]int
}

func newState(users []domain.User) *state {
	s := &state{users: users, index: make(map[string]int, len(users))}
	for i, u := range users {
		s.index[u.ID] = i
	}
	return s
}

// with returns a copy of s with u stored (appended when new).
func (s *state) with(u domain.User) *state {
	users := make([]domain.User, len(s.users), len(s.users)+1)
	copy(users, s.users)
	if i, ok := s.index[u.ID]; ok {
		users[i] = u
	} else {
		users = append(users, u)
	}
	return newState(users)
}

func (s *state) get(userID string) (domain.User, bool) {
	i, ok := s.index[userID]
	if !ok {
		return domain.User{}, false
	}
	return s.users[i], true
}

// Store is the file-backed LedgerStore.
type Store struct {
	path string
	log  zerolog.Logger
	now  func() time.Time

	rename func(oldpath, newpath string) error

	mu      sync.Mutex // serializes mutations and their persistence
	current atomic.Pointer[state]
	sealed  error // set when a bad file could not be moved aside; guarded by mu
}

var _ domain.LedgerStore = (*Store)(nil)

// New creates a store for path with an empty committed state.
// Call Load to read existing data from disk.
func New(path string, log zerolog.Logger) *Store {
	s := &Store{
		path:   path,
		log:    log.With().Str("component", "ledger").Logger(),
		now:    time.Now,
		rename: os.Rename,
	}
	s.current.Store(newState(nil))
	return s
}

// Open is New followed by Load. A corrupt file that was moved aside still
// yields a usable, empty store alongside the ErrPersistenceUnavailable error.
func Open(ctx context.Context, path string, log zerolog.Logger) (*Store, error) {
	s := New(path, log)
	_, err := s.Load(ctx)
	return s, err
}

// Path returns the ledger file location.
func (s *Store) Path() string { return s.path }

// ─── Load ───────────────────────────────────────────────────────────────────

// Load replaces the in-memory state with the file contents.
// A missing file is an empty ledger. An unreadable or malformed file is
// moved aside to <path>.corrupt-<unix> and the store starts empty,
// returning ErrPersistenceUnavailable for the caller to report. If the file
// cannot be moved aside, mutations are refused until a later Load succeeds.
func (s *Store) Load(ctx context.Context) (domain.LedgerSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.LedgerSnapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.sealed = nil
		s.current.Store(newState(nil))
		return s.Snapshot(), nil
	}
	if err != nil {
		return s.Snapshot(), s.quarantine(fmt.Errorf("read: %w", err))
	}

	users, err := decode(bytes.NewReader(data))
	if err != nil {
		return s.Snapshot(), s.quarantine(err)
	}

	s.sealed = nil
	s.current.Store(newState(users))
	observability.LedgerUsers.Set(float64(len(users)))
	s.log.Info().Str("path", s.path).Int("users", len(users)).Msg("ledger loaded")
	return s.Snapshot(), nil
}

// quarantine moves a bad ledger file aside and resets to an empty state.
// Called with mu held.
func (s *Store) quarantine(cause error) error {
	s.current.Store(newState(nil))
	observability.LedgerUsers.Set(0)

	aside := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().Unix())
	if err := s.rename(s.path, aside); err != nil {
		s.sealed = fmt.Errorf("%w: %s: %v (quarantine failed: %v)",
			domain.ErrPersistenceUnavailable, s.path, cause, err)
		s.log.Error().Str("path", s.path).Err(s.sealed).
			Msg("ledger file unusable and could not be moved aside, refusing writes")
		return s.sealed
	}

	s.sealed = nil
	s.log.Warn().Str("path", s.path).Str("moved_to", aside).Err(cause).
		Msg("ledger file unusable, starting empty")
	return fmt.Errorf("%w: %s: %v (moved to %s)",
		domain.ErrPersistenceUnavailable, s.path, cause, aside)
}

// ─── Reads ──────────────────────────────────────────────────────────────────

// Get returns the committed record for userID.
func (s *Store) Get(userID string) (domain.User, bool) {
	return s.current.Load().get(userID)
}

// Snapshot returns a copy of the last committed state.
func (s *Store) Snapshot() domain.LedgerSnapshot {
	st := s.current.Load()
	users := make([]domain.User, len(st.users))
	copy(users, st.users)
	return domain.LedgerSnapshot{Users: users, TakenAt: s.now()}
}

// ─── Mutations ──────────────────────────────────────────────────────────────

// Apply creates the user if absent and adds weight and points.
// Success is returned only after the new state is on disk.
func (s *Store) Apply(ctx context.Context, userID string, weightGrams, points int64) (domain.Balance, error) {
	if userID == "" {
		return domain.Balance{}, domain.ErrEmptyIdentity
	}
	if weightGrams < 0 || points < 0 {
		return domain.Balance{}, fmt.Errorf("%w: negative credit (weight %d, points %d)",
			domain.ErrInvalidAmount, weightGrams, points)
	}

	return s.mutate(ctx, userID, true, func(u domain.User) (domain.User, error) {
		if u.WeightGrams > math.MaxInt64-weightGrams || u.Points > math.MaxInt64-points {
			return u, fmt.Errorf("%w: balance overflow for %q", domain.ErrInvalidAmount, userID)
		}
		u.WeightGrams += weightGrams
		u.Points += points
		return u, nil
	})
}

// Debit removes points from an existing user. Rejects with
// ErrInsufficientPoints, leaving the ledger untouched, when the balance
// does not cover the amount.
func (s *Store) Debit(ctx context.Context, userID string, points int64) (domain.Balance, error) {
	if userID == "" {
		return domain.Balance{}, domain.ErrEmptyIdentity
	}
	if points <= 0 {
		return domain.Balance{}, fmt.Errorf("%w: debit must be positive, got %d", domain.ErrInvalidAmount, points)
	}

	return s.mutate(ctx, userID, false, func(u domain.User) (domain.User, error) {
		if u.Points < points {
			return u, fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientPoints, u.Points, points)
		}
		u.Points -= points
		return u, nil
	})
}

// Touch creates a zero record on first sighting and persists it.
// Existing users are returned unchanged without a write.
func (s *Store) Touch(ctx context.Context, userID string) (domain.User, error) {
	if userID == "" {
		return domain.User{}, domain.ErrEmptyIdentity
	}
	if u, ok := s.Get(userID); ok {
		return u, nil
	}

	b, err := s.mutate(ctx, userID, true, func(u domain.User) (domain.User, error) { return u, nil })
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{ID: b.UserID, WeightGrams: b.WeightGrams, Points: b.Points}, nil
}

// mutate runs one serialized read-modify-write-persist cycle.
// When create is false an unknown user is seen by fn as a zero balance
// and is never inserted.
func (s *Store) mutate(ctx context.Context, userID string, create bool, fn func(domain.User) (domain.User, error)) (domain.Balance, error) {
	if err := ctx.Err(); err != nil {
		return domain.Balance{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed != nil {
		return domain.Balance{}, s.sealed
	}

	cur := s.current.Load()
	u, exists := cur.get(userID)
	if !exists {
		u = domain.User{ID: userID}
	}

	next, err := fn(u)
	if err != nil {
		return domain.Balance{}, err
	}
	if !exists && !create {
		return domain.Balance{}, fmt.Errorf("%w: unknown user %q", domain.ErrInsufficientPoints, userID)
	}
	if exists && next == u {
		return balanceOf(u, false), nil
	}

	nextState := cur.with(next)
	if err := s.persist(nextState.users); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("ledger persist failed, keeping previous state")
		return domain.Balance{}, fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
	s.current.Store(nextState)

	s.log.Debug().Str("user", userID).Int64("weight_grams", next.WeightGrams).
		Int64("points", next.Points).Bool("created", !exists).Msg("ledger committed")
	return balanceOf(next, !exists), nil
}

func balanceOf(u domain.User, created bool) domain.Balance {
	return domain.Balance{UserID: u.ID, WeightGrams: u.WeightGrams, Points: u.Points, Created: created}
}

// ─── Persistence ────────────────────────────────────────────────────────────

// persist atomically replaces the ledger file with users.
func (s *Store) persist(users []domain.User) (err error) {
	start := time.Now()
	defer func() { observability.ObservePersist(start, len(users), err) }()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if err = encode(tmp, users); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	// The new file is already visible; a failed directory sync only
	// weakens durability across power loss.
	if derr := syncDir(dir); derr != nil {
		s.log.Warn().Err(derr).Str("dir", dir).Msg("ledger directory sync failed")
	}
	return nil
}

// syncDir makes the rename itself durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync dir: %w", err)
	}
	return nil
}
