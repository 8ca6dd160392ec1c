// Package encode serializes pixel buffers into image container formats.
package encode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mrsinham/randimage/internal/pixel"
)

var (
	// ErrEncoding reports an internal inconsistency between a buffer and its
	// declared geometry. It indicates a programming error and is never retried.
	ErrEncoding = errors.New("encoding error")
	// ErrUnsupported is returned when a format cannot carry the requested
	// color mode or bit depth.
	ErrUnsupported = errors.New("unsupported by format")
)

// Format is an output container.
type Format string

const (
	PNG   Format = "png"
	BMP   Format = "bmp"
	TIFF  Format = "tiff"
	DICOM Format = "dicom"
)

// AllFormats returns all supported formats.
func AllFormats() []Format {
	return []Format{PNG, BMP, TIFF, DICOM}
}

// ParseFormat parses a format name or common extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "png":
		return PNG, nil
	case "bmp":
		return BMP, nil
	case "tif", "tiff":
		return TIFF, nil
	case "dcm", "dicom":
		return DICOM, nil
	default:
		return "", fmt.Errorf("unknown format %q, valid formats: %v", s, AllFormats())
	}
}

// FormatFromPath guesses the format from a file extension. ok is false when
// the extension is missing or unknown.
func FormatFromPath(path string) (Format, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", false
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return "", false
	}
	return f, true
}

// Extension returns the conventional file extension, with the dot.
func (f Format) Extension() string {
	switch f {
	case TIFF:
		return ".tiff"
	case DICOM:
		return ".dcm"
	default:
		return "." + string(f)
	}
}

// ContentType returns the MIME type.
func (f Format) ContentType() string {
	switch f {
	case BMP:
		return "image/bmp"
	case TIFF:
		return "image/tiff"
	case DICOM:
		return "application/dicom"
	default:
		return "image/png"
	}
}

// Supports reports whether the format can store mode at depth.
func (f Format) Supports(mode pixel.ColorMode, depth pixel.Depth) bool {
	switch f {
	case PNG, TIFF:
		return mode.IsValid() && depth.IsValid()
	case BMP:
		// the bitmap info header has no alpha mask
		return (mode == pixel.Grayscale || mode == pixel.RGB) && depth == pixel.Depth8
	case DICOM:
		return (mode == pixel.Grayscale || mode == pixel.RGB) && depth.IsValid()
	default:
		return false
	}
}

// TextField is a keyword/value pair stored as container metadata where the
// format allows it.
type TextField struct {
	Keyword string
	Text    string
}

// Options tunes encoders. The zero value is valid.
type Options struct {
	Compression Compression
	Filter      Filter
	// IDATSize caps the payload of each PNG IDAT chunk (default 64 KiB).
	IDATSize int
	Text     []TextField
	// Seed feeds deterministic identifiers (DICOM UIDs).
	Seed uint64
	// Instance > 0 places a DICOM image in a series shared by every image
	// encoded with the same SeriesSeed, at that instance number.
	SeriesSeed uint64
	Instance   int
}

// Encoder writes one buffer in a container format.
type Encoder interface {
	Encode(w io.Writer, buf *pixel.Buffer) error
}

// New returns the encoder for format.
func New(format Format, opts Options) (Encoder, error) {
	switch format {
	case PNG:
		return newPNGEncoder(opts)
	case BMP:
		return bmpEncoder{}, nil
	case TIFF:
		return tiffEncoder{}, nil
	case DICOM:
		return newDICOMEncoder(opts), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// Encode produces the complete encoded image in memory.
func Encode(buf *pixel.Buffer, format Format, opts Options) ([]byte, error) {
	enc, err := New(format, opts)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := enc.Encode(&out, buf); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// checkBuffer validates buf and format support before any byte is produced.
func checkBuffer(format Format, buf *pixel.Buffer) error {
	if err := buf.Check(); err != nil {
		return fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if !format.Supports(buf.Mode, buf.Depth) {
		return fmt.Errorf("%w: %s cannot store %s at %d bits", ErrUnsupported, format, buf.Mode, buf.Depth)
	}
	return nil
}
