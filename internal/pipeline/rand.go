package pipeline

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Rand is a goroutine-safe random source shared by the simulated stages.
type Rand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a deterministic source for the given seed.
func NewRand(seed uint64) *Rand {
	return &Rand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewTimeRand returns a source seeded from the wall clock.
func NewTimeRand() *Rand {
	return NewRand(uint64(time.Now().UnixNano()))
}

// Float64 returns a value in [0,1).
func (r *Rand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Float64()
}

// Uniform returns a value in [lo,hi).
func (r *Rand) Uniform(lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// IntRange returns an int in [lo,hi).
func (r *Rand) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + r.r.IntN(hi-lo)
}

// Int64Range returns an int64 in [lo,hi).
func (r *Rand) Int64Range(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + r.r.Int64N(hi-lo)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// Base36 returns n random lowercase base36 characters.
func (r *Rand) Base36(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[r.r.IntN(len(base36))]
	}
	return string(b)
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
