package pixel

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

var (
	// ErrInvalidDimensions is returned for zero or negative width/height.
	ErrInvalidDimensions = errors.New("invalid dimensions")
	// ErrDimensionOverflow is returned when a buffer would exceed the
	// addressable size or the configured byte budget.
	ErrDimensionOverflow = errors.New("dimension overflow")
)

// DefaultMaxBytes is the default pixel buffer budget (1 GiB).
const DefaultMaxBytes int64 = 1 << 30

// maxDimension is the largest width or height any supported container can
// carry (PNG and BMP store dimensions as signed 32-bit values).
const maxDimension = math.MaxInt32

// Buffer holds row-major, channel-interleaved samples. 16-bit samples are
// stored big-endian, which is the PNG and Go image layout.
type Buffer struct {
	Width  int
	Height int
	Mode   ColorMode
	Depth  Depth
	Pix    []byte
}

// Stride returns the number of bytes per row.
func (b *Buffer) Stride() int {
	return b.Width * b.Mode.Channels() * b.Depth.BytesPerSample()
}

// Len returns the number of bytes the buffer must hold for its dimensions.
func (b *Buffer) Len() int {
	return b.Stride() * b.Height
}

// Check verifies that Pix matches the declared geometry.
func (b *Buffer) Check() error {
	if b == nil {
		return errors.New("nil buffer")
	}
	if !b.Mode.IsValid() {
		return fmt.Errorf("unknown color mode %v", b.Mode)
	}
	if !b.Depth.IsValid() {
		return fmt.Errorf("unsupported bit depth %d", b.Depth)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", b.Width, b.Height)
	}
	if len(b.Pix) != b.Len() {
		return fmt.Errorf("buffer length %d does not match %dx%d %s/%d (want %d)",
			len(b.Pix), b.Width, b.Height, b.Mode, b.Depth, b.Len())
	}
	return nil
}

// SampleLen returns width*height*channels*bytesPerSample, failing with
// ErrDimensionOverflow when the product does not fit in an int or exceeds
// limit (limit <= 0 means no budget beyond addressability).
func SampleLen(width, height int, mode ColorMode, depth Depth, limit int64) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: %dx%d (width and height must be > 0)", ErrInvalidDimensions, width, height)
	}
	if width > maxDimension || height > maxDimension {
		return 0, fmt.Errorf("%w: %dx%d exceeds the %d pixel per side limit", ErrDimensionOverflow, width, height, maxDimension)
	}
	per := mode.Channels() * depth.BytesPerSample()
	if per == 0 {
		return 0, fmt.Errorf("invalid pixel format %s/%d", mode, depth)
	}

	maxInt := int(^uint(0) >> 1)
	if width > maxInt/height {
		return 0, fmt.Errorf("%w: %dx%d pixels", ErrDimensionOverflow, width, height)
	}
	pixels := width * height
	if pixels > maxInt/per {
		return 0, fmt.Errorf("%w: %dx%d %s/%d", ErrDimensionOverflow, width, height, mode, depth)
	}
	// each scanline also carries one filter byte in PNG
	if pixels*per > maxInt-height {
		return 0, fmt.Errorf("%w: %dx%d %s/%d", ErrDimensionOverflow, width, height, mode, depth)
	}
	n := pixels * per
	if limit > 0 && int64(n) > limit {
		return 0, fmt.Errorf("%w: %dx%d %s/%d needs %d bytes, limit is %d", ErrDimensionOverflow, width, height, mode, depth, n, limit)
	}
	return n, nil
}

// Image returns an image.Image view of the buffer. For gray, gray16, rgba
// and rgba16 the view shares memory with Pix; RGB buffers are copied into an
// opaque NRGBA (or NRGBA64) image.
func (b *Buffer) Image() image.Image {
	rect := image.Rect(0, 0, b.Width, b.Height)
	stride := b.Stride()
	switch {
	case b.Mode == Grayscale && b.Depth == Depth8:
		return &image.Gray{Pix: b.Pix, Stride: stride, Rect: rect}
	case b.Mode == Grayscale && b.Depth == Depth16:
		return &image.Gray16{Pix: b.Pix, Stride: stride, Rect: rect}
	case b.Mode == RGBA && b.Depth == Depth8:
		return &image.NRGBA{Pix: b.Pix, Stride: stride, Rect: rect}
	case b.Mode == RGBA && b.Depth == Depth16:
		return &image.NRGBA64{Pix: b.Pix, Stride: stride, Rect: rect}
	case b.Mode == RGB && b.Depth == Depth8:
		img := image.NewNRGBA(rect)
		for i, j := 0, 0; i < len(b.Pix); i, j = i+3, j+4 {
			img.Pix[j+0] = b.Pix[i+0]
			img.Pix[j+1] = b.Pix[i+1]
			img.Pix[j+2] = b.Pix[i+2]
			img.Pix[j+3] = 0xff
		}
		return img
	default: // RGB, 16-bit
		img := image.NewNRGBA64(rect)
		for i, j := 0, 0; i < len(b.Pix); i, j = i+6, j+8 {
			copy(img.Pix[j:j+6], b.Pix[i:i+6])
			img.Pix[j+6] = 0xff
			img.Pix[j+7] = 0xff
		}
		return img
	}
}

// FromImage converts any image into a buffer of the given mode and depth.
func FromImage(img image.Image, mode ColorMode, depth Depth) (*Buffer, error) {
	r := img.Bounds()
	n, err := SampleLen(r.Dx(), r.Dy(), mode, depth, 0)
	if err != nil {
		return nil, err
	}
	buf := &Buffer{Width: r.Dx(), Height: r.Dy(), Mode: mode, Depth: depth, Pix: make([]byte, n)}

	i := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			src := img.At(x, y)
			c := color.NRGBA64Model.Convert(src).(color.NRGBA64)
			var samples [4]uint16
			switch mode {
			case Grayscale:
				samples[0] = color.Gray16Model.Convert(src).(color.Gray16).Y
			case RGB:
				samples[0], samples[1], samples[2] = c.R, c.G, c.B
			case RGBA:
				samples[0], samples[1], samples[2], samples[3] = c.R, c.G, c.B, c.A
			}
			for ch := 0; ch < mode.Channels(); ch++ {
				if depth == Depth16 {
					buf.Pix[i] = uint8(samples[ch] >> 8)
					buf.Pix[i+1] = uint8(samples[ch])
					i += 2
				} else {
					buf.Pix[i] = uint8(samples[ch] >> 8)
					i++
				}
			}
		}
	}
	return buf, nil
}
