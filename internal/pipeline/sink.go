package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Sink receives a fully encoded image in one call.
type Sink interface {
	Write(ctx context.Context, data []byte) (int64, error)
}

// FileSink writes to a path through a temporary file in the same directory,
// renamed over the target once synced. Readers never observe a truncated
// image, and a failed write leaves any previous file untouched.
type FileSink struct {
	Path string
	Perm os.FileMode // default 0644
}

// NewFileSink returns a sink for path.
func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

func (s *FileSink) String() string { return s.Path }

func (s *FileSink) Write(ctx context.Context, data []byte) (n int64, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.Path == "" {
		return 0, fmt.Errorf("%w: empty output path", ErrIO)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("%w: create directory %s: %w", ErrIO, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("%w: create temporary file in %s: %w", ErrIO, dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	written, err := tmp.Write(data)
	if err != nil {
		return 0, fmt.Errorf("%w: write %s: %w", ErrIO, s.Path, err)
	}
	if err = tmp.Sync(); err != nil {
		return 0, fmt.Errorf("%w: sync %s: %w", ErrIO, s.Path, err)
	}
	if err = tmp.Close(); err != nil {
		return 0, fmt.Errorf("%w: close %s: %w", ErrIO, s.Path, err)
	}

	perm := s.Perm
	if perm == 0 {
		perm = 0o644
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return 0, fmt.Errorf("%w: chmod %s: %w", ErrIO, s.Path, err)
	}
	if err = os.Rename(tmpName, s.Path); err != nil {
		return 0, fmt.Errorf("%w: rename to %s: %w", ErrIO, s.Path, err)
	}
	return int64(written), nil
}

// WriterSink writes to a stream such as stdout or an HTTP response.
type WriterSink struct {
	W    io.Writer
	Name string
}

func (s WriterSink) String() string {
	if s.Name == "" {
		return "stream"
	}
	return s.Name
}

func (s WriterSink) Write(ctx context.Context, data []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := s.W.Write(data)
	if err != nil {
		return int64(n), fmt.Errorf("%w: write %s: %w", ErrIO, s, err)
	}
	return int64(n), nil
}
