package classifier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ecobin-network/ecobin/internal/domain"
)

func newTestClassifier(t *testing.T, scale Scale) (*FileClassifier, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultDetectionFile)
	return NewFileClassifier(path, scale, zerolog.Nop()), path
}

// ─── Detection File ─────────────────────────────────────────────────────────

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		want    domain.Category
		wantErr error
	}{
		{"missing file", nil, "", domain.ErrNoDetection},
		{"none", ptr("None"), "", domain.ErrNoDetection},
		{"empty", ptr(""), "", domain.ErrNoDetection},
		{"garbage", ptr("Glass"), "", domain.ErrNoDetection},
		{"lowercase is not a label", ptr("metal"), "", domain.ErrNoDetection},
		{"plastic", ptr("Plastic"), domain.CategoryPlastic, nil},
		{"metal with newline", ptr("Metal\n"), domain.CategoryMetal, nil},
		{"paper", ptr("  Paper "), domain.CategoryPaper, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, path := newTestClassifier(t, StaticScale(300))
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			r, err := c.Classify(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Classify() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Classify() error: %v", err)
			}
			if r.Category != tt.want || r.WeightGrams != 300 {
				t.Errorf("Classify() = %+v, want %s/300", r, tt.want)
			}
		})
	}
}

type failingScale struct{}

func (failingScale) Weigh(context.Context) (int64, error) { return 0, errors.New("load cell offline") }

func TestClassify_ScaleFailure(t *testing.T) {
	c, path := newTestClassifier(t, failingScale{})
	if err := WriteDetection(path, domain.CategoryMetal); err != nil {
		t.Fatal(err)
	}
	_, err := c.Classify(context.Background())
	if err == nil || errors.Is(err, domain.ErrNoDetection) {
		t.Errorf("Classify() error = %v, want scale failure", err)
	}
}

func TestWriteDetection_RoundTrip(t *testing.T) {
	c, path := newTestClassifier(t, StaticScale(1))

	if err := WriteDetection(path, domain.CategoryPaper); err != nil {
		t.Fatalf("WriteDetection() error: %v", err)
	}
	if cat, err := c.Detect(context.Background()); err != nil || cat != domain.CategoryPaper {
		t.Errorf("Detect() = %q, %v; want Paper", cat, err)
	}

	if err := WriteDetection(path, ""); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != NoneLabel {
		t.Errorf("file = %q, want %q", data, NoneLabel)
	}
	if _, err := c.Detect(context.Background()); !errors.Is(err, domain.ErrNoDetection) {
		t.Errorf("Detect() after None = %v, want ErrNoDetection", err)
	}
}

func TestCategoryForLabel(t *testing.T) {
	tests := []struct {
		label  string
		want   domain.Category
		wantOK bool
	}{
		{"bottle", domain.CategoryPlastic, true},
		{"Cup", domain.CategoryPlastic, true},
		{"can", domain.CategoryMetal, true},
		{"book", domain.CategoryPaper, true},
		{"paper", domain.CategoryPaper, true},
		{"Metal", domain.CategoryMetal, true},
		{"banana", "", false},
	}
	for _, tt := range tests {
		got, ok := CategoryForLabel(tt.label)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("CategoryForLabel(%q) = %q, %v; want %q, %v", tt.label, got, ok, tt.want, tt.wantOK)
		}
	}
}

// ─── Scale ──────────────────────────────────────────────────────────────────

func TestSimulatedScale_Range(t *testing.T) {
	s, err := NewSeededScale(DefaultMinWeight, DefaultMaxWeight, 42)
	if err != nil {
		t.Fatal(err)
	}
	seenMin, seenMax := int64(DefaultMaxWeight), int64(DefaultMinWeight)
	for i := 0; i < 5000; i++ {
		w, err := s.Weigh(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if w < DefaultMinWeight || w > DefaultMaxWeight {
			t.Fatalf("Weigh() = %d, outside [%d, %d]", w, DefaultMinWeight, DefaultMaxWeight)
		}
		seenMin, seenMax = min(seenMin, w), max(seenMax, w)
	}
	if seenMin > DefaultMinWeight+20 || seenMax < DefaultMaxWeight-20 {
		t.Errorf("range poorly covered: [%d, %d]", seenMin, seenMax)
	}
}

func TestSimulatedScale_Deterministic(t *testing.T) {
	a, _ := NewSeededScale(1, 1000, 7)
	b, _ := NewSeededScale(1, 1000, 7)
	for i := 0; i < 10; i++ {
		wa, _ := a.Weigh(context.Background())
		wb, _ := b.Weigh(context.Background())
		if wa != wb {
			t.Fatalf("draw %d differs: %d vs %d", i, wa, wb)
		}
	}
}

func TestNewSeededScale_InvalidRange(t *testing.T) {
	for _, r := range [][2]int64{{0, 10}, {10, 5}, {-1, 1}} {
		if _, err := NewSeededScale(r[0], r[1], 1); err == nil {
			t.Errorf("NewSeededScale(%d, %d) should fail", r[0], r[1])
		}
	}
}

func ptr(s string) *string { return &s }
