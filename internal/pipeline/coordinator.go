package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mrsinham/randimage/internal/encode"
	"github.com/mrsinham/randimage/internal/pixel"
	"github.com/mrsinham/randimage/internal/random"
	"github.com/mrsinham/randimage/internal/thumbnail"
)

// Software is stored in the PNG tEXt metadata of every image.
const Software = "randimage"

// Options configures a Coordinator. The zero value writes PNG.
type Options struct {
	Encode encode.Options
	Format encode.Format
	// Label is drawn on top of every image. {seed}, {width} and {height}
	// are substituted.
	Label string
	// MaxBytes bounds the raw sample buffer (default pixel.DefaultMaxBytes).
	MaxBytes int64
	Logger   *slog.Logger
	// OnState is called synchronously on every transition.
	OnState func(State)
}

// Result describes a completed run.
type Result struct {
	BytesWritten int64
	Seed         uint64
	Format       encode.Format
	Width        int
	Height       int
	States       []State
}

// Coordinator runs requests. It holds no per-request state and is safe for
// concurrent use.
type Coordinator struct {
	opts Options
	log  *slog.Logger
}

// New returns a coordinator with defaults applied.
func New(opts Options) *Coordinator {
	if opts.Format == "" {
		opts.Format = encode.PNG
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = pixel.DefaultMaxBytes
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{opts: opts, log: log}
}

// Format returns the output format.
func (c *Coordinator) Format() encode.Format { return c.opts.Format }

type run struct {
	c        *Coordinator
	instance int
	states   []State
}

func (r *run) enter(s State) {
	r.states = append(r.states, s)
	if r.c.opts.OnState != nil {
		r.c.opts.OnState(s)
	}
}

// Run generates, encodes and writes one image. Nothing reaches sink unless
// encoding succeeded. Failures are not retried.
func (c *Coordinator) Run(ctx context.Context, req pixel.Request, sink Sink) (Result, error) {
	return c.runJob(ctx, Job{Request: req, Sink: sink})
}

func (c *Coordinator) runJob(ctx context.Context, job Job) (Result, error) {
	req, sink := job.Request, job.Sink
	r := &run{c: c, instance: job.Instance}
	r.enter(Idle)

	res := Result{Format: c.opts.Format, Width: req.Width, Height: req.Height}
	data, seed, err := c.render(ctx, req, r, nil)
	res.Seed = seed
	if err != nil {
		r.enter(Failed)
		res.States = r.states
		c.log.Debug("run failed", "seed", seed, "error", err)
		return res, err
	}

	r.enter(Writing)
	n, err := sink.Write(ctx, data)
	res.BytesWritten = n
	if err != nil {
		r.enter(Failed)
		res.States = r.states
		return res, err
	}
	r.enter(Done)
	res.States = r.states

	c.log.Debug("image written",
		"dest", fmt.Sprint(sink),
		"format", c.opts.Format,
		"width", req.Width,
		"height", req.Height,
		"seed", seed,
		"bytes", n)
	return res, nil
}

// Render generates and encodes without writing. It returns the seed used,
// also on failure once one has been drawn.
func (c *Coordinator) Render(ctx context.Context, req pixel.Request) ([]byte, uint64, error) {
	return c.render(ctx, req, &run{c: c}, nil)
}

// RenderThumbnail renders req scaled into a maxW x maxH box. The label, if
// any, is drawn before scaling.
func (c *Coordinator) RenderThumbnail(ctx context.Context, req pixel.Request, maxW, maxH int) ([]byte, uint64, error) {
	if maxW <= 0 || maxH <= 0 {
		return nil, 0, fmt.Errorf("%w: thumbnail box %dx%d", ErrUsage, maxW, maxH)
	}
	return c.render(ctx, req, &run{c: c}, func(buf *pixel.Buffer) (*pixel.Buffer, error) {
		return thumbnail.Make(buf, maxW, maxH)
	})
}

func (c *Coordinator) render(ctx context.Context, req pixel.Request, r *run, transform func(*pixel.Buffer) (*pixel.Buffer, error)) ([]byte, uint64, error) {
	if req.Depth == 0 {
		req.Depth = pixel.Depth8
	}
	if err := req.Validate(c.opts.MaxBytes); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	alg, err := random.ParseAlgorithm(string(req.Algorithm))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	req.Algorithm = alg
	if !c.opts.Format.Supports(req.Mode, req.Depth) {
		return nil, 0, fmt.Errorf("%w: %s cannot store %s at %d bits", encode.ErrUnsupported, c.opts.Format, req.Mode, req.Depth)
	}

	seed := req.ResolvedSeed()
	req = req.WithSeed(seed)

	encOpts := c.opts.Encode
	encOpts.Seed = seed
	encOpts.Instance = r.instance
	encOpts.Text = append([]encode.TextField{
		{Keyword: "Software", Text: Software},
		{Keyword: "Seed", Text: strconv.FormatUint(seed, 10)},
	}, encOpts.Text...)
	enc, err := encode.New(c.opts.Format, encOpts)
	if err != nil {
		return nil, seed, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	r.enter(Generating)
	buf, _, err := pixel.Generate(ctx, req, c.opts.MaxBytes)
	if err != nil {
		return nil, seed, err
	}
	if label := c.label(req, seed); label != "" {
		if err := pixel.Annotate(buf, label); err != nil {
			return nil, seed, fmt.Errorf("draw label: %w", err)
		}
	}

	if transform != nil {
		if buf, err = transform(buf); err != nil {
			return nil, seed, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, seed, err
	}
	r.enter(Encoding)
	var out bytes.Buffer
	out.Grow(buf.Len()/2 + 1024)
	if err := enc.Encode(&out, buf); err != nil {
		return nil, seed, err
	}
	return out.Bytes(), seed, nil
}

func (c *Coordinator) label(req pixel.Request, seed uint64) string {
	if c.opts.Label == "" {
		return ""
	}
	return strings.NewReplacer(
		"{seed}", strconv.FormatUint(seed, 10),
		"{width}", strconv.Itoa(req.Width),
		"{height}", strconv.Itoa(req.Height),
	).Replace(c.opts.Label)
}
