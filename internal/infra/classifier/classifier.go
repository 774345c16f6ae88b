// Package classifier adapts the camera process and the bin's scale to the
// domain.Classifier signal.
//
// The camera process writes its latest verdict to a small text file
// (Plastic, Metal, Paper, or None). FileClassifier polls that file and pairs
// a recognised category with a weight from a Scale.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ecobin-network/ecobin/internal/domain"
)

// DefaultDetectionFile is the file name the camera process writes.
const DefaultDetectionFile = "detected_waste.txt"

// NoneLabel is written by the camera when nothing recyclable is in view.
const NoneLabel = "None"

// FileClassifier implements domain.Classifier over the detection file.
type FileClassifier struct {
	path  string
	scale Scale
	log   zerolog.Logger
}

var _ domain.Classifier = (*FileClassifier)(nil)

// NewFileClassifier polls path and weighs with scale.
func NewFileClassifier(path string, scale Scale, log zerolog.Logger) *FileClassifier {
	return &FileClassifier{
		path:  path,
		scale: scale,
		log:   log.With().Str("component", "classifier").Logger(),
	}
}

// Path returns the polled detection file.
func (c *FileClassifier) Path() string { return c.path }

// Detect returns the current category without weighing.
// A missing file, None, or any unrecognised content is ErrNoDetection.
func (c *FileClassifier) Detect(ctx context.Context) (domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", domain.ErrNoDetection
	}
	if err != nil {
		return "", fmt.Errorf("read detection file: %w", err)
	}

	label := strings.TrimSpace(string(data))
	cat, ok := domain.ParseCategory(label)
	if !ok {
		if label != "" && label != NoneLabel {
			c.log.Debug().Str("label", label).Msg("unrecognised detection label")
		}
		return "", domain.ErrNoDetection
	}
	return cat, nil
}

// Classify reads the current detection and weighs the item.
func (c *FileClassifier) Classify(ctx context.Context) (domain.Reading, error) {
	cat, err := c.Detect(ctx)
	if err != nil {
		return domain.Reading{}, err
	}
	grams, err := c.scale.Weigh(ctx)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("weigh %s: %w", cat, err)
	}
	c.log.Debug().Str("category", string(cat)).Int64("weight_grams", grams).Msg("item classified")
	return domain.Reading{Category: cat, WeightGrams: grams}, nil
}

// ─── Camera Side ────────────────────────────────────────────────────────────

// labelCategories maps object-detector labels onto waste categories.
var labelCategories = map[string]domain.Category{
	"bottle": domain.CategoryPlastic,
	"cup":    domain.CategoryPlastic,
	"can":    domain.CategoryMetal,
	"book":   domain.CategoryPaper,
	"paper":  domain.CategoryPaper,
}

// CategoryForLabel maps a detector label (or a category name) to a
// category. Unknown labels report false.
func CategoryForLabel(label string) (domain.Category, bool) {
	if cat, ok := domain.ParseCategory(label); ok {
		return cat, true
	}
	cat, ok := labelCategories[strings.ToLower(strings.TrimSpace(label))]
	return cat, ok
}

// WriteDetection replaces the detection file with cat, or None when cat is
// empty. Used by the camera side and by operators simulating it.
func WriteDetection(path string, cat domain.Category) error {
	content := NoneLabel
	if cat != "" {
		content = string(cat)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".detection-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write detection: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close detection: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename detection: %w", err)
	}
	return nil
}
