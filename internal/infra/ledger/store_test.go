package ledger

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecobin-network/ecobin/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.csv")
	s, err := Open(context.Background(), path, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// ─── Apply ──────────────────────────────────────────────────────────────────

func TestApply_CreatesAndPersists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	b, err := s.Apply(ctx, "alice", 300, 600)
	require.NoError(t, err)
	assert.Equal(t, domain.Balance{UserID: "alice", WeightGrams: 300, Points: 600, Created: true}, b)

	b, err = s.Apply(ctx, "alice", 100, 50)
	require.NoError(t, err)
	assert.False(t, b.Created)
	assert.EqualValues(t, 400, b.WeightGrams)
	assert.EqualValues(t, 650, b.Points)

	_, err = s.Apply(ctx, "bob", 200, 100)
	require.NoError(t, err)

	assert.Equal(t, "user,weightGrams,points\nalice,400,650\nbob,200,100\n", readFile(t, s.Path()))
}

func TestApply_ConcurrentCreditsSum(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var wg sync.WaitGroup
	for _, pts := range []int64{100, 200} {
		wg.Add(1)
		go func(p int64) {
			defer wg.Done()
			_, err := s.Apply(ctx, "alice", p, p)
			assert.NoError(t, err)
		}(pts)
	}
	wg.Wait()

	u, ok := s.Get("alice")
	require.True(t, ok)
	assert.EqualValues(t, 300, u.Points)
	assert.EqualValues(t, 300, u.WeightGrams)
}

func TestApply_ManyWriters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	const writers = 40
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Apply(ctx, "alice", 10, 5)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	u, _ := s.Get("alice")
	assert.EqualValues(t, writers*10, u.WeightGrams)
	assert.EqualValues(t, writers*5, u.Points)

	reloaded, err := Open(ctx, s.Path(), zerolog.Nop())
	require.NoError(t, err)
	ru, _ := reloaded.Get("alice")
	assert.Equal(t, u, ru)
}

func TestApply_Rejections(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Apply(ctx, "", 1, 1)
	assert.ErrorIs(t, err, domain.ErrEmptyIdentity)

	_, err = s.Apply(ctx, "alice", -1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = s.Apply(ctx, "alice", 1, math.MaxInt64)
	require.NoError(t, err)
	_, err = s.Apply(ctx, "alice", 0, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	u, _ := s.Get("alice")
	assert.EqualValues(t, math.MaxInt64, u.Points, "overflowing credit must not mutate")
}

func TestApply_PersistFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.Mkdir(dir, 0o755))
	s, err := Open(ctx, filepath.Join(dir, "users.csv"), zerolog.Nop())
	require.NoError(t, err)

	_, err = s.Apply(ctx, "alice", 300, 600)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(dir))

	_, err = s.Apply(ctx, "alice", 300, 600)
	require.ErrorIs(t, err, domain.ErrPersistenceUnavailable)

	u, _ := s.Get("alice")
	assert.EqualValues(t, 600, u.Points, "failed commit must leave previous state")
}

func TestApply_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Apply(ctx, "alice", 1, 1)
	assert.ErrorIs(t, err, context.Canceled)
	_, ok := s.Get("alice")
	assert.False(t, ok)
}

// ─── Debit ──────────────────────────────────────────────────────────────────

func TestDebit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Apply(ctx, "alice", 5000, 5000)
	require.NoError(t, err)

	b, err := s.Debit(ctx, "alice", 3000)
	require.NoError(t, err)
	assert.EqualValues(t, 2000, b.Points)
	assert.EqualValues(t, 5000, b.WeightGrams, "debit never touches weight")
	assert.Contains(t, readFile(t, s.Path()), "alice,5000,2000")
}

func TestDebit_InsufficientLeavesLedgerUntouched(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Apply(ctx, "alice", 5000, 5000)
	require.NoError(t, err)
	before := readFile(t, s.Path())

	_, err = s.Debit(ctx, "alice", 10000)
	require.ErrorIs(t, err, domain.ErrInsufficientPoints)

	u, _ := s.Get("alice")
	assert.EqualValues(t, 5000, u.Points)
	assert.Equal(t, before, readFile(t, s.Path()))
}

func TestDebit_UnknownUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Debit(ctx, "ghost", 1)
	require.ErrorIs(t, err, domain.ErrInsufficientPoints)
	_, ok := s.Get("ghost")
	assert.False(t, ok, "debit must not create users")
}

func TestDebit_InvalidAmount(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Debit(context.Background(), "alice", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestDebit_ConcurrentNeverNegative(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Apply(ctx, "alice", 1000, 1000)
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		approved int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Debit(ctx, "alice", 300); err == nil {
				mu.Lock()
				approved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	u, _ := s.Get("alice")
	assert.Equal(t, 3, approved)
	assert.EqualValues(t, 100, u.Points)
}

// ─── Touch ──────────────────────────────────────────────────────────────────

func TestTouch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u, err := s.Touch(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: "carol"}, u)
	assert.Equal(t, "user,weightGrams,points\ncarol,0,0\n", readFile(t, s.Path()))

	_, err = s.Apply(ctx, "carol", 10, 10)
	require.NoError(t, err)
	u, err = s.Touch(ctx, "carol")
	require.NoError(t, err)
	assert.EqualValues(t, 10, u.Points)

	_, err = s.Touch(ctx, "")
	assert.ErrorIs(t, err, domain.ErrEmptyIdentity)
}

// ─── Load ───────────────────────────────────────────────────────────────────

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)
	assert.Empty(t, s.Snapshot().Users)
	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err), "load must not create the file")
}

func TestLoad_PreservesFirstSeenOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(path, []byte("user,weightGrams,points\nzed,1,2\namy,3,4\n"), 0o644))

	s, err := Open(context.Background(), path, zerolog.Nop())
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Len(t, snap.Users, 2)
	assert.Equal(t, "zed", snap.Users[0].ID)
	assert.Equal(t, "amy", snap.Users[1].ID)
}

func TestLoad_CorruptFileQuarantined(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.csv")
	garbage := "user,weightGrams,points\nalice,lots,600\n"
	require.NoError(t, os.WriteFile(path, []byte(garbage), 0o644))

	s := New(path, zerolog.Nop())
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, domain.ErrPersistenceUnavailable)
	assert.Empty(t, s.Snapshot().Users)

	aside := path + ".corrupt-1700000000"
	assert.Equal(t, garbage, readFile(t, aside))

	// The store keeps working and never overwrites the quarantined copy.
	_, err = s.Apply(ctx, "bob", 10, 20)
	require.NoError(t, err)
	assert.Equal(t, "user,weightGrams,points\nbob,10,20\n", readFile(t, path))
	assert.Equal(t, garbage, readFile(t, aside))
}

func TestLoad_UnreadableFileQuarantined(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.csv")
	// A directory at the ledger path fails to read with something other than ErrNotExist.
	require.NoError(t, os.Mkdir(path, 0o755))

	s := New(path, zerolog.Nop())
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, domain.ErrPersistenceUnavailable)
	assert.Empty(t, s.Snapshot().Users)

	info, err := os.Stat(path + ".corrupt-1700000000")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = s.Apply(ctx, "bob", 10, 20)
	require.NoError(t, err)
	assert.Equal(t, "user,weightGrams,points\nbob,10,20\n", readFile(t, path))
}

func TestLoad_QuarantineFailureRefusesWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.csv")
	garbage := "user,weightGrams,points\nalice,lots,600\n"
	require.NoError(t, os.WriteFile(path, []byte(garbage), 0o644))

	s := New(path, zerolog.Nop())
	s.rename = func(string, string) error { return os.ErrPermission }

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, domain.ErrPersistenceUnavailable)

	_, err = s.Apply(ctx, "bob", 10, 20)
	require.ErrorIs(t, err, domain.ErrPersistenceUnavailable)
	_, err = s.Debit(ctx, "alice", 1)
	require.ErrorIs(t, err, domain.ErrPersistenceUnavailable)
	_, err = s.Touch(ctx, "bob")
	require.ErrorIs(t, err, domain.ErrPersistenceUnavailable)
	assert.Equal(t, garbage, readFile(t, path), "unreadable ledger must not be overwritten")

	// Once the file is repaired a successful Load re-enables writes.
	require.NoError(t, os.WriteFile(path, []byte("user,weightGrams,points\nalice,300,600\n"), 0o644))
	_, err = s.Load(ctx)
	require.NoError(t, err)

	b, err := s.Apply(ctx, "alice", 100, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(650), b.Points)
}

// ─── Snapshot ───────────────────────────────────────────────────────────────

func TestSnapshot_IsACopy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Apply(ctx, "alice", 1, 1)
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Users[0].Points = 999

	u, _ := s.Get("alice")
	assert.EqualValues(t, 1, u.Points)
}

// ─── File Format ────────────────────────────────────────────────────────────

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr string
	}{
		{"empty file", "", 0, ""},
		{"header only", "user,weightGrams,points\n", 0, ""},
		{"quoted name", "user,weightGrams,points\n\"smith, j\",5,5\n", 1, ""},
		{"wrong header", "name,weight,points\n", 0, "header column 1"},
		{"negative", "user,weightGrams,points\nalice,-1,0\n", 0, "negative"},
		{"duplicate", "user,weightGrams,points\nalice,1,1\nalice,2,2\n", 0, "duplicate"},
		{"empty user", "user,weightGrams,points\n,1,1\n", 0, "empty user"},
		{"short row", "user,weightGrams,points\nalice,1\n", 0, "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := decode(strings.NewReader(tt.in))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, users, tt.want)
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []domain.User{{ID: "smith, j", WeightGrams: 5, Points: 10}, {ID: "bob", WeightGrams: 0, Points: 0}}
	var sb strings.Builder
	require.NoError(t, encode(&sb, in))

	out, err := decode(strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
