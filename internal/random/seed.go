package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSeed is returned when a seed cannot be represented as a uint64.
var ErrInvalidSeed = errors.New("invalid seed")

// ParseSeed parses a decimal or 0x-prefixed hexadecimal seed covering the
// full uint64 range.
func ParseSeed(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidSeed)
	}
	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q (use a decimal or 0x-prefixed hex value up to %d)", ErrInvalidSeed, s, uint64(1<<64-1))
	}
	return v, nil
}

// NewSeed returns a fresh seed from the system entropy source, falling back
// to the clock if entropy is unavailable.
func NewSeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err == nil {
		return binary.LittleEndian.Uint64(b[:])
	}
	return uint64(time.Now().UnixNano())
}

// SeedFromPhrase derives a seed from a phrase (FNV-64a), so the same name
// always yields the same image.
func SeedFromPhrase(phrase string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(phrase)) // hash.Write never returns an error
	return h.Sum64()
}
