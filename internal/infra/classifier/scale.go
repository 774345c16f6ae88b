package classifier

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Default simulated weight range in grams.
const (
	DefaultMinWeight = 100
	DefaultMaxWeight = 700
)

// Scale measures the deposited item.
type Scale interface {
	Weigh(ctx context.Context) (int64, error)
}

// SimulatedScale returns a uniform weight in [Min, Max] grams.
// Stands in for a load cell until one is attached to the bin.
type SimulatedScale struct {
	min, max int64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedScale builds a scale seeded from the clock.
func NewSimulatedScale(minGrams, maxGrams int64) (*SimulatedScale, error) {
	seed := uint64(time.Now().UnixNano())
	return NewSeededScale(minGrams, maxGrams, seed)
}

// NewSeededScale builds a deterministic scale.
func NewSeededScale(minGrams, maxGrams int64, seed uint64) (*SimulatedScale, error) {
	if minGrams <= 0 || maxGrams < minGrams {
		return nil, fmt.Errorf("invalid weight range [%d, %d]", minGrams, maxGrams)
	}
	return &SimulatedScale{
		min: minGrams,
		max: maxGrams,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

func (s *SimulatedScale) Weigh(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.min + s.rng.Int64N(s.max-s.min+1), nil
}

// StaticScale always reports the same weight.
type StaticScale int64

func (s StaticScale) Weigh(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(s), nil
}
