// Package random provides the seedable byte stream that drives pixel synthesis.
//
// A Source is a pure function of its seed and algorithm: the same pair yields
// the same stream on every platform, because both generators come from
// math/rand/v2 whose algorithms are fixed.
package random

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strings"
)

// Algorithm selects the underlying generator.
type Algorithm string

const (
	PCG     Algorithm = "pcg"     // 128-bit permuted congruential generator (default)
	ChaCha8 Algorithm = "chacha8" // ChaCha8-based generator
)

// AllAlgorithms returns all supported algorithms.
func AllAlgorithms() []Algorithm {
	return []Algorithm{PCG, ChaCha8}
}

// ParseAlgorithm parses an algorithm name. Empty means PCG.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pcg":
		return PCG, nil
	case "chacha8", "chacha":
		return ChaCha8, nil
	default:
		return "", fmt.Errorf("unknown rng algorithm %q, valid: %v", s, AllAlgorithms())
	}
}

// Source is a deterministic random stream. It is not safe for concurrent use;
// every request owns its own Source.
type Source struct {
	seed uint64
	alg  Algorithm
	gen  rand.Source

	// leftover bytes of the last drawn word, so the byte stream does not
	// depend on how callers chunk their reads
	spare  [8]byte
	nspare int
}

// New returns a PCG source seeded with seed.
func New(seed uint64) *Source {
	return &Source{seed: seed, alg: PCG, gen: rand.NewPCG(seed, seed)}
}

// NewWithAlgorithm returns a source using the given algorithm.
func NewWithAlgorithm(seed uint64, alg Algorithm) (*Source, error) {
	switch alg {
	case "", PCG:
		return New(seed), nil
	case ChaCha8:
		return &Source{seed: seed, alg: ChaCha8, gen: rand.NewChaCha8(chachaKey(seed))}, nil
	default:
		return nil, fmt.Errorf("unknown rng algorithm %q", alg)
	}
}

// chachaKey expands a 64-bit seed into a 32-byte key with SplitMix64.
func chachaKey(seed uint64) [32]byte {
	var key [32]byte
	x := seed
	for i := 0; i < 4; i++ {
		x += 0x9e3779b97f4a7c15
		z := x
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31
		binary.LittleEndian.PutUint64(key[i*8:], z)
	}
	return key
}

// Seed returns the seed the source was created with.
func (s *Source) Seed() uint64 { return s.seed }

// Algorithm returns the generator in use.
func (s *Source) Algorithm() Algorithm { return s.alg }

// NextU64 returns the next 64-bit word. Pending spare bytes from a previous
// NextBytes call are discarded so words always start on a fresh draw.
func (s *Source) NextU64() uint64 {
	s.nspare = 0
	return s.gen.Uint64()
}

// NextBytes returns the next n bytes of the stream.
func (s *Source) NextBytes(n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	p := make([]byte, n)
	s.fill(p)
	return p
}

// Read fills p with the next len(p) bytes. It never returns an error.
func (s *Source) Read(p []byte) (int, error) {
	s.fill(p)
	return len(p), nil
}

func (s *Source) fill(p []byte) {
	i := 0
	if s.nspare > 0 {
		off := 8 - s.nspare
		n := copy(p, s.spare[off:])
		s.nspare -= n
		i = n
	}
	for ; i+8 <= len(p); i += 8 {
		binary.LittleEndian.PutUint64(p[i:], s.gen.Uint64())
	}
	if i < len(p) {
		binary.LittleEndian.PutUint64(s.spare[:], s.gen.Uint64())
		n := copy(p[i:], s.spare[:])
		s.nspare = 8 - n
	}
}
