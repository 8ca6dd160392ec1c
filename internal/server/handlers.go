package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mrsinham/randimage/internal/encode"
	"github.com/mrsinham/randimage/internal/pipeline"
	"github.com/mrsinham/randimage/internal/pixel"
	"github.com/mrsinham/randimage/internal/random"
)

// Index is the body of GET /.
type Index struct {
	Name    string        `json:"name"`
	Version string        `json:"version"`
	Uptime  time.Duration `json:"uptime"`
	Usage   string        `json:"usage"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	jsonWrite(http.StatusOK, w, Index{
		Name:    pipeline.Software,
		Version: s.opts.Version,
		Uptime:  time.Since(s.started),
		Usage:   "GET /api/image?width=512&height=512&mode=rgb&seed=42",
	})
}

// imageQuery is a parsed /api/image or /api/thumbnail query.
type imageQuery struct {
	req    pixel.Request
	format encode.Format
	label  string
}

// parseQuery reads the generation parameters. Missing values fall back to
// the server defaults; sizes are capped by max_width and max_height.
func (s *Server) parseQuery(q url.Values) (imageQuery, error) {
	var iq imageQuery
	var err error

	width, err := intParam(q, "width", s.cfg.DefaultWidth)
	if err != nil {
		return iq, err
	}
	height, err := intParam(q, "height", s.cfg.DefaultHeight)
	if err != nil {
		return iq, err
	}
	if width > s.cfg.MaxWidth || height > s.cfg.MaxHeight {
		return iq, fmt.Errorf("%w: %dx%d exceeds the %dx%d limit", pixel.ErrDimensionOverflow, width, height, s.cfg.MaxWidth, s.cfg.MaxHeight)
	}

	mode, err := pixel.ParseColorMode(stringParam(q, "mode", s.cfg.DefaultMode))
	if err != nil {
		return iq, usage(err)
	}
	depth, err := pixel.ParseDepth(q.Get("depth"))
	if err != nil {
		return iq, usage(err)
	}
	iq.format, err = encode.ParseFormat(stringParam(q, "format", s.cfg.DefaultFormat))
	if err != nil {
		return iq, usage(err)
	}
	alg, err := random.ParseAlgorithm(q.Get("rng"))
	if err != nil {
		return iq, usage(err)
	}
	opaque := false
	if v := q.Get("opaque"); v != "" {
		if opaque, err = strconv.ParseBool(v); err != nil {
			return iq, usage(fmt.Errorf("invalid opaque value %q", v))
		}
	}

	iq.req = pixel.Request{
		Width:       width,
		Height:      height,
		Mode:        mode,
		Depth:       depth,
		OpaqueAlpha: opaque,
		Algorithm:   alg,
	}
	switch {
	case q.Get("seed") != "":
		seed, err := random.ParseSeed(q.Get("seed"))
		if err != nil {
			return iq, err
		}
		iq.req = iq.req.WithSeed(seed)
	case q.Get("phrase") != "":
		iq.req = iq.req.WithSeed(random.SeedFromPhrase(q.Get("phrase")))
	}
	iq.label = q.Get("label")
	return iq, nil
}

func (s *Server) coordinator(iq imageQuery) *pipeline.Coordinator {
	return pipeline.New(pipeline.Options{
		Encode:   s.opts.Encode,
		Format:   iq.format,
		Label:    iq.label,
		MaxBytes: s.opts.MaxBytes,
		Logger:   s.log,
	})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	iq, err := s.parseQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}

	// fix the seed first so the header can go out with the body
	explicit := iq.req.Seed != nil
	seed := iq.req.ResolvedSeed()
	iq.req = iq.req.WithSeed(seed)
	setImageHeaders(w, iq.format, seed, explicit)

	_, err = s.coordinator(iq).Run(r.Context(), iq.req, pipeline.WriterSink{W: w, Name: "http response"})
	// Run writes nothing on failure unless the client went away mid-write
	if err != nil && pipeline.Classify(err) != pipeline.KindIO {
		s.writeError(w, err)
	}
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	iq, err := s.parseQuery(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	size, err := intParam(q, "size", s.cfg.ThumbSize)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if size > s.cfg.MaxWidth || size > s.cfg.MaxHeight {
		s.writeError(w, fmt.Errorf("%w: thumbnail size %d over the limit", pixel.ErrDimensionOverflow, size))
		return
	}

	explicit := iq.req.Seed != nil
	data, seed, err := s.coordinator(iq).RenderThumbnail(r.Context(), iq.req, size, size)
	if err != nil {
		s.writeError(w, err)
		return
	}
	setImageHeaders(w, iq.format, seed, explicit)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// FormatInfo describes one output format.
type FormatInfo struct {
	Name        string   `json:"name"`
	Extension   string   `json:"extension"`
	ContentType string   `json:"content_type"`
	Modes       []string `json:"modes"`
	Depths      []int    `json:"depths"`
}

// Formats is the body of GET /api/formats.
type Formats struct {
	Formats    []FormatInfo `json:"formats"`
	Algorithms []string     `json:"algorithms"`
	MaxWidth   int          `json:"max_width"`
	MaxHeight  int          `json:"max_height"`
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	jsonWrite(http.StatusOK, w, describeFormats(s.cfg.MaxWidth, s.cfg.MaxHeight))
}

func describeFormats(maxW, maxH int) Formats {
	out := Formats{MaxWidth: maxW, MaxHeight: maxH}
	for _, alg := range random.AllAlgorithms() {
		out.Algorithms = append(out.Algorithms, string(alg))
	}
	for _, f := range encode.AllFormats() {
		info := FormatInfo{Name: string(f), Extension: f.Extension(), ContentType: f.ContentType(), Modes: []string{}, Depths: []int{}}
		for _, m := range pixel.AllColorModes() {
			if f.Supports(m, pixel.Depth8) || f.Supports(m, pixel.Depth16) {
				info.Modes = append(info.Modes, m.String())
			}
		}
		for _, d := range []pixel.Depth{pixel.Depth8, pixel.Depth16} {
			if f.Supports(pixel.Grayscale, d) {
				info.Depths = append(info.Depths, int(d))
			}
		}
		out.Formats = append(out.Formats, info)
	}
	return out
}

func setImageHeaders(w http.ResponseWriter, format encode.Format, seed uint64, explicit bool) {
	h := w.Header()
	h.Set("Content-Type", format.ContentType())
	h.Set("X-Seed", strconv.FormatUint(seed, 10))
	if explicit {
		// same seed, same bytes
		h.Set("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		h.Set("Cache-Control", "no-store")
	}
}

// writeError maps a pipeline error to a status code and JSON body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := pipeline.Classify(err)
	status := http.StatusInternalServerError
	switch kind {
	case pipeline.KindUsage:
		status = http.StatusBadRequest
	case pipeline.KindCanceled:
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		s.log.Error("request failed", "kind", kind, "error", err)
	}
	h := w.Header()
	h.Del("X-Seed")
	h.Del("Cache-Control")
	jsonWrite(status, w, ErrorResponse{From: kind.String(), Message: err.Error()})
}

func usage(err error) error {
	return fmt.Errorf("%w: %w", pipeline.ErrUsage, err)
}

func intParam(q url.Values, name string, def int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, usage(fmt.Errorf("invalid %s %q", name, v))
	}
	return n, nil
}

func stringParam(q url.Values, name, def string) string {
	if v := q.Get(name); v != "" {
		return v
	}
	return def
}
