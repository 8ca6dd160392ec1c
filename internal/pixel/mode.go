// Package pixel synthesizes random pixel buffers from a seeded stream.
package pixel

import (
	"fmt"
	"strings"
)

// ColorMode is the channel layout of a pixel.
type ColorMode int

const (
	Grayscale ColorMode = iota + 1
	RGB
	RGBA
)

// AllColorModes returns all supported color modes.
func AllColorModes() []ColorMode {
	return []ColorMode{Grayscale, RGB, RGBA}
}

// Channels returns the number of samples per pixel.
func (m ColorMode) Channels() int {
	switch m {
	case Grayscale:
		return 1
	case RGB:
		return 3
	case RGBA:
		return 4
	default:
		return 0
	}
}

// HasAlpha reports whether the last channel is alpha.
func (m ColorMode) HasAlpha() bool { return m == RGBA }

func (m ColorMode) String() string {
	switch m {
	case Grayscale:
		return "gray"
	case RGB:
		return "rgb"
	case RGBA:
		return "rgba"
	default:
		return fmt.Sprintf("ColorMode(%d)", int(m))
	}
}

// IsValid reports whether m is one of the supported modes.
func (m ColorMode) IsValid() bool { return m.Channels() > 0 }

// ParseColorMode parses a color mode name, case-insensitively.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gray", "grey", "grayscale", "greyscale", "l":
		return Grayscale, nil
	case "rgb":
		return RGB, nil
	case "rgba":
		return RGBA, nil
	default:
		return 0, fmt.Errorf("invalid color mode %q (valid: gray, rgb, rgba)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m ColorMode) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("invalid color mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ColorMode) UnmarshalText(text []byte) error {
	parsed, err := ParseColorMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Depth is the number of bits per sample.
type Depth int

const (
	Depth8  Depth = 8
	Depth16 Depth = 16
)

// BytesPerSample returns the storage size of one sample.
func (d Depth) BytesPerSample() int {
	switch d {
	case Depth8:
		return 1
	case Depth16:
		return 2
	default:
		return 0
	}
}

// IsValid reports whether d is 8 or 16.
func (d Depth) IsValid() bool { return d.BytesPerSample() > 0 }

// MaxSample returns the largest sample value.
func (d Depth) MaxSample() uint16 {
	if d == Depth16 {
		return 0xffff
	}
	return 0xff
}

// ParseDepth parses "8" or "16".
func ParseDepth(s string) (Depth, error) {
	switch strings.TrimSpace(s) {
	case "8", "":
		return Depth8, nil
	case "16":
		return Depth16, nil
	default:
		return 0, fmt.Errorf("invalid bit depth %q (valid: 8, 16)", s)
	}
}
