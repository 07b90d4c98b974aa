// Package rng provides the deterministic pseudo-random streams owned by jobs.
package rng

import (
	"fmt"
	"math/rand/v2"

	"logosim.ai/internal/sim/world/logic/mathx"
)

// Stream is a seeded generator. A Stream is owned by exactly one job; child
// jobs receive a stream derived with Split so that nested execution is
// reproducible without sharing state.
type Stream struct {
	seed  int64
	src   *rand.PCG
	r     *rand.Rand
	draws uint64
}

func New(seed int64) *Stream {
	s := &Stream{seed: seed}
	s.src = rand.NewPCG(mathx.Mix(seed, 1), mathx.Mix(seed, 2))
	s.r = rand.New(s.src)
	return s
}

func (s *Stream) Seed() int64 { return s.seed }

// Draws reports how many values have been taken from the stream.
func (s *Stream) Draws() uint64 { return s.draws }

// Split derives an independent child stream, advancing the parent once.
func (s *Stream) Split() *Stream {
	s.draws++
	return New(int64(s.r.Uint64()))
}

// Intn returns a value in [0, n). n must be positive.
func (s *Stream) Intn(n int) int {
	s.draws++
	return s.r.IntN(n)
}

func (s *Stream) Float64() float64 {
	s.draws++
	return s.r.Float64()
}

// Uniform returns a value in [0, max).
func (s *Stream) Uniform(max float64) float64 {
	return s.Float64() * max
}

// Range returns a value in [lo, hi).
func (s *Stream) Range(lo, hi float64) float64 {
	return lo + s.Float64()*(hi-lo)
}

// Reseed resets the stream as if freshly created with seed.
func (s *Stream) Reseed(seed int64) {
	s.seed = seed
	s.src.Seed(mathx.Mix(seed, 1), mathx.Mix(seed, 2))
	s.draws = 0
}

// StreamState is a stream position that can be restored exactly.
type StreamState struct {
	Seed  int64  `json:"seed"`
	Draws uint64 `json:"draws"`
	PCG   []byte `json:"pcg"`
}

func (s *Stream) State() StreamState {
	b, _ := s.src.MarshalBinary()
	return StreamState{Seed: s.seed, Draws: s.draws, PCG: b}
}

// Restore moves the stream to a position captured by State.
func (s *Stream) Restore(st StreamState) error {
	if err := s.src.UnmarshalBinary(st.PCG); err != nil {
		return fmt.Errorf("rng: restore: %w", err)
	}
	s.seed, s.draws = st.Seed, st.Draws
	return nil
}
