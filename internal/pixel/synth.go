package pixel

import (
	"context"
	"fmt"
	"io"

	"github.com/mrsinham/randimage/internal/random"
)

// Request describes one image to generate. A nil Seed means "pick one".
type Request struct {
	Width       int
	Height      int
	Mode        ColorMode
	Depth       Depth
	Seed        *uint64
	OpaqueAlpha bool
	Algorithm   random.Algorithm
}

// Validate checks dimensions, mode and depth against the byte budget limit.
func (r Request) Validate(limit int64) error {
	if !r.Mode.IsValid() {
		return fmt.Errorf("invalid color mode %v", r.Mode)
	}
	depth := r.depth()
	if !depth.IsValid() {
		return fmt.Errorf("invalid bit depth %d (valid: 8, 16)", r.Depth)
	}
	_, err := SampleLen(r.Width, r.Height, r.Mode, depth, limit)
	return err
}

func (r Request) depth() Depth {
	if r.Depth == 0 {
		return Depth8
	}
	return r.Depth
}

// ResolvedSeed returns the request seed, drawing a fresh one if absent.
func (r Request) ResolvedSeed() uint64 {
	if r.Seed != nil {
		return *r.Seed
	}
	return random.NewSeed()
}

// WithSeed returns a copy of r with the seed set.
func (r Request) WithSeed(seed uint64) Request {
	r.Seed = &seed
	return r
}

// Synthesize fills a new buffer with samples read from src, row by row in
// channel order. The size is checked before allocation; ctx is checked
// between rows.
func Synthesize(ctx context.Context, req Request, src io.Reader, limit int64) (*Buffer, error) {
	if err := req.Validate(limit); err != nil {
		return nil, err
	}
	depth := req.depth()
	n, _ := SampleLen(req.Width, req.Height, req.Mode, depth, limit)

	buf := &Buffer{
		Width:  req.Width,
		Height: req.Height,
		Mode:   req.Mode,
		Depth:  depth,
		Pix:    make([]byte, n),
	}

	stride := buf.Stride()
	for y := 0; y < req.Height; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := buf.Pix[y*stride : (y+1)*stride]
		if _, err := io.ReadFull(src, row); err != nil {
			return nil, fmt.Errorf("read random stream at row %d: %w", y, err)
		}
		if req.OpaqueAlpha && req.Mode.HasAlpha() {
			forceOpaque(row, depth)
		}
	}
	return buf, nil
}

// forceOpaque overwrites every alpha sample in an RGBA row with the maximum.
func forceOpaque(row []byte, depth Depth) {
	bps := depth.BytesPerSample()
	px := 4 * bps
	for i := 3 * bps; i < len(row); i += px {
		for k := 0; k < bps; k++ {
			row[i+k] = 0xff
		}
	}
}

// Generate seeds a source for req and synthesizes its buffer. It returns the
// seed that was used.
func Generate(ctx context.Context, req Request, limit int64) (*Buffer, uint64, error) {
	if err := req.Validate(limit); err != nil {
		return nil, 0, err
	}
	seed := req.ResolvedSeed()
	src, err := random.NewWithAlgorithm(seed, req.Algorithm)
	if err != nil {
		return nil, seed, err
	}
	buf, err := Synthesize(ctx, req, src, limit)
	return buf, seed, err
}
