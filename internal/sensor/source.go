// Package sensor produces synthetic readings for the simulated rig.
package sensor

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"github.com/chrissnell/volcanomonitor/internal/constants"
	"github.com/chrissnell/volcanomonitor/internal/types"
)

// Range is an inclusive [Min, Max] interval for one channel.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies in the range, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Ranges holds the physical range of every channel, indexed like types.Reading.
var Ranges = [constants.NumInputs]Range{
	types.WaterTemp: {Min: 30.0, Max: 100.0},
	types.FlowRate:  {Min: 0.0, Max: 10.0},
	types.SO2:       {Min: 0.0, Max: 5.0},
	types.H2S:       {Min: 0.0, Max: 25.0},
}

// RandomSource yields uniform values in [min, max].
type RandomSource interface {
	UniformRange(min, max float64) float64
}

// PRNG adapts a math/rand/v2 generator to RandomSource.
type PRNG struct {
	r *rand.Rand
}

// NewPRNG wraps r.
func NewPRNG(r *rand.Rand) *PRNG {
	return &PRNG{r: r}
}

// NewEntropySource returns a ChaCha8 generator keyed from the operating
// system's entropy pool, so every process start produces a different stream.
func NewEntropySource() (*PRNG, error) {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("could not read entropy for sensor seed: %w", err)
	}
	return NewPRNG(rand.New(rand.NewChaCha8(seed))), nil
}

// NewSeededSource returns a reproducible generator.
func NewSeededSource(seed uint64) *PRNG {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	return NewPRNG(rand.New(rand.NewChaCha8(key)))
}

// UniformRange implements RandomSource. The result is clamped so rounding in
// the affine transform can never step outside [min, max].
func (p *PRNG) UniformRange(min, max float64) float64 {
	v := min + p.r.Float64()*(max-min)
	if v > max {
		return max
	}
	return v
}

// Source generates readings from a RandomSource.
type Source struct {
	rng RandomSource
}

// NewSource creates a Source drawing from rng.
func NewSource(rng RandomSource) *Source {
	return &Source{rng: rng}
}

// Sample draws one independent value per channel.
func (s *Source) Sample() types.Reading {
	var r types.Reading
	for i, rg := range Ranges {
		r[i] = s.rng.UniformRange(rg.Min, rg.Max)
	}
	return r
}
