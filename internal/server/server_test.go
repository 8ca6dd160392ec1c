package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/mrsinham/randimage/internal/config"
	"github.com/mrsinham/randimage/internal/random"
)

func newTestServer(t *testing.T, mutate func(*config.Server)) (*Server, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default().Server
	cfg.MaxWidth, cfg.MaxHeight = 256, 256
	cfg.DefaultWidth, cfg.DefaultHeight = 16, 8
	cfg.ThumbSize = 20
	if mutate != nil {
		mutate(&cfg)
	}
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))
	return New(cfg, Options{Logger: log, Version: "test"}), &logs
}

func get(t *testing.T, h http.Handler, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

func TestIndexAndHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s.Handler(), "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var idx Index
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &idx))
	assert.Equal(t, "randimage", idx.Name)
	assert.Equal(t, "test", idx.Version)

	rec = get(t, s.Handler(), "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	rec = get(t, s.Handler(), "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImage_Defaults(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/image", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	_, err := strconv.ParseUint(rec.Header().Get("X-Seed"), 10, 64)
	require.NoError(t, err, "X-Seed header carries the seed used")

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds())
}

func TestImage_SeedIsReproducible(t *testing.T) {
	s, _ := newTestServer(t, nil)
	first := get(t, s.Handler(), "/api/image?width=32&height=32&mode=rgba", nil)
	require.Equal(t, http.StatusOK, first.Code)
	seed := first.Header().Get("X-Seed")

	again := get(t, s.Handler(), "/api/image?width=32&height=32&mode=rgba&seed="+seed, nil)
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, first.Body.Bytes(), again.Body.Bytes())
	assert.Equal(t, seed, again.Header().Get("X-Seed"))
	assert.Contains(t, again.Header().Get("Cache-Control"), "immutable")
}

func TestImage_GrayScenario(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/image?width=4&height=4&mode=gray&seed=42", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, random.New(42).NextBytes(16), img.(*image.Gray).Pix)
}

func TestImage_PhraseSeed(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/image?width=2&height=2&phrase=hello", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, strconv.FormatUint(random.SeedFromPhrase("hello"), 10), rec.Header().Get("X-Seed"))
}

func TestImage_OtherFormat(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/image?width=5&height=3&format=bmp&seed=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/bmp", rec.Header().Get("Content-Type"))
	img, err := bmp.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 5, img.Bounds().Dx())
}

func TestImage_UsageErrors(t *testing.T) {
	s, _ := newTestServer(t, nil)
	for _, target := range []string{
		"/api/image?width=0",
		"/api/image?width=-5",
		"/api/image?width=abc",
		"/api/image?width=257",
		"/api/image?mode=cmyk",
		"/api/image?depth=12",
		"/api/image?format=gif",
		"/api/image?seed=xyz",
		"/api/image?rng=mt",
		"/api/image?opaque=maybe",
		"/api/image?format=bmp&depth=16",
		"/api/image?format=dicom&mode=rgba",
	} {
		t.Run(target, func(t *testing.T) {
			rec := get(t, s.Handler(), target, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Empty(t, rec.Header().Get("X-Seed"))
			assert.Equal(t, "usage", decodeError(t, rec).From)
		})
	}
}

func TestThumbnail(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/thumbnail?width=200&height=100&seed=3", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())

	rec = get(t, s.Handler(), "/api/thumbnail?width=100&height=200&size=50", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	img, err = png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 25, 50), img.Bounds())

	rec = get(t, s.Handler(), "/api/thumbnail?size=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = get(t, s.Handler(), "/api/thumbnail?size=1000", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFormats(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/formats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var f Formats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	require.Len(t, f.Formats, 4)
	assert.Equal(t, 256, f.MaxWidth)
	assert.Equal(t, []string{"pcg", "chacha8"}, f.Algorithms)

	byName := map[string]FormatInfo{}
	for _, fi := range f.Formats {
		byName[fi.Name] = fi
	}
	assert.Equal(t, []int{8}, byName["bmp"].Depths)
	assert.Equal(t, []string{"gray", "rgb"}, byName["bmp"].Modes)
	assert.Equal(t, []string{"gray", "rgb"}, byName["dicom"].Modes)
	assert.Equal(t, []string{"gray", "rgb", "rgba"}, byName["png"].Modes)
}

func TestToken(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Server) { c.Token = "s3cret" })

	rec := get(t, s.Handler(), "/api/formats", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = get(t, s.Handler(), "/api/formats", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(t, s.Handler(), "/api/formats", map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, s.Handler(), "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health check stays public")
}

func TestRequestLog(t *testing.T) {
	s, logs := newTestServer(t, nil)
	get(t, s.Handler(), "/healthz", map[string]string{"CF-Connecting-IP": "203.0.113.9", "CF-IPCountry": "FR"})
	assert.Contains(t, logs.String(), "ip=203.0.113.9")
	assert.Contains(t, logs.String(), "country=FR")
	assert.Contains(t, logs.String(), "status=200")

	logs.Reset()
	get(t, s.Handler(), "/healthz", nil)
	assert.Contains(t, logs.String(), "ip=192.0.2.1", "falls back to the peer address")
}

func TestServe_GracefulShutdown(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Server) { c.ShutdownTimeout = time.Second })
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok\n", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
