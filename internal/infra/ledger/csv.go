package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/ecobin-network/ecobin/internal/domain"
)

// ─── File Format ────────────────────────────────────────────────────────────
// user,weightGrams,points
// alice,300,600
// One row per user in first-seen order. The file is always rewritten whole.

var header = []string{"user", "weightGrams", "points"}

// encode writes the header and every user row.
func encode(w io.Writer, users []domain.User) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, u := range users {
		row := []string{
			u.ID,
			strconv.FormatInt(u.WeightGrams, 10),
			strconv.FormatInt(u.Points, 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// decode parses a ledger file. Any structural problem is reported as a
// single error naming the offending line; the caller treats it as corrupt.
func decode(r io.Reader) ([]domain.User, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	for i, name := range header {
		if head[i] != name {
			return nil, fmt.Errorf("header column %d = %q, want %q", i+1, head[i], name)
		}
	}

	var users []domain.User
	seen := make(map[string]bool)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		u := domain.User{ID: rec[0]}
		if u.ID == "" {
			return nil, fmt.Errorf("line %d: empty user", line)
		}
		if seen[u.ID] {
			return nil, fmt.Errorf("line %d: duplicate user %q", line, u.ID)
		}
		seen[u.ID] = true

		if u.WeightGrams, err = parseCount(rec[1]); err != nil {
			return nil, fmt.Errorf("line %d: weightGrams: %w", line, err)
		}
		if u.Points, err = parseCount(rec[2]); err != nil {
			return nil, fmt.Errorf("line %d: points: %w", line, err)
		}
		users = append(users, u)
	}
	return users, nil
}

func parseCount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}
