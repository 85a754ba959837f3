package source

import (
	"math/rand"
	"time"
)

// Sampler defaults
const (
	DefaultSeed      int64 = 100
	DefaultMaxOffset       = 11000
	DefaultMaxSleep        = 2 * time.Second
)

// SamplerOptions configures a Sampler. Zero values fall back to defaults.
type SamplerOptions struct {
	Seed      int64         `mapstructure:"seed"`
	MaxOffset int           `mapstructure:"maxOffset"`
	MaxSleep  time.Duration `mapstructure:"maxSleep"`
}

// Sampler draws row offsets and inter-iteration sleeps from a seeded source.
// Offsets are uniform over [0, MaxOffset] regardless of the real table size,
// and repeats are allowed. A Sampler is not safe for concurrent use.
type Sampler struct {
	rng       *rand.Rand
	maxOffset int
	maxSleep  time.Duration
}

// NewSampler returns a Sampler for opts.
func NewSampler(opts SamplerOptions) *Sampler {
	if opts.Seed == 0 {
		opts.Seed = DefaultSeed
	}
	if opts.MaxOffset <= 0 {
		opts.MaxOffset = DefaultMaxOffset
	}
	switch {
	case opts.MaxSleep == 0:
		opts.MaxSleep = DefaultMaxSleep
	case opts.MaxSleep < 0:
		// negative disables sleeping
		opts.MaxSleep = 0
	}
	return &Sampler{
		rng:       rand.New(rand.NewSource(opts.Seed)),
		maxOffset: opts.MaxOffset,
		maxSleep:  opts.MaxSleep,
	}
}

// NextOffset returns an offset in [0, MaxOffset].
func (s *Sampler) NextOffset() int {
	return s.rng.Intn(s.maxOffset + 1)
}

// NextSleep returns a whole number of seconds in [0, MaxSleep).
// MaxSleep below one second always yields zero.
func (s *Sampler) NextSleep() time.Duration {
	n := int(s.maxSleep / time.Second)
	if n <= 0 {
		return 0
	}
	return time.Duration(s.rng.Intn(n)) * time.Second
}

// Offsets returns the first n offsets drawn by a fresh sampler for opts,
// interleaving sleep draws exactly as the emulation loop does.
func Offsets(opts SamplerOptions, n int) []int {
	s := NewSampler(opts)
	out := make([]int, 0, n)
	for range n {
		s.NextSleep()
		out = append(out, s.NextOffset())
	}
	return out
}
