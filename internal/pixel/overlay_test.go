package pixel

import (
	"bytes"
	"context"
	"testing"

	"github.com/mrsinham/randimage/internal/random"
)

func TestAnnotate_ModifiesImage(t *testing.T) {
	for _, mode := range AllColorModes() {
		t.Run(mode.String(), func(t *testing.T) {
			buf, err := Synthesize(context.Background(), Request{Width: 128, Height: 64, Mode: mode}, random.New(42), 0)
			if err != nil {
				t.Fatal(err)
			}
			original := bytes.Clone(buf.Pix)

			if err := Annotate(buf, "seed 42"); err != nil {
				t.Fatalf("Annotate failed: %v", err)
			}
			if bytes.Equal(original, buf.Pix) {
				t.Error("Expected label to modify pixels")
			}
			if err := buf.Check(); err != nil {
				t.Errorf("buffer geometry changed: %v", err)
			}
		})
	}
}

func TestAnnotate_Deterministic(t *testing.T) {
	render := func() []byte {
		buf, _ := Synthesize(context.Background(), Request{Width: 80, Height: 40, Mode: RGB, Depth: Depth16}, random.New(1), 0)
		if err := Annotate(buf, "hello"); err != nil {
			t.Fatal(err)
		}
		return buf.Pix
	}
	if !bytes.Equal(render(), render()) {
		t.Error("annotated output should be deterministic")
	}
}

func TestAnnotate_EmptyTextNoop(t *testing.T) {
	buf, _ := Synthesize(context.Background(), Request{Width: 10, Height: 10, Mode: Grayscale}, random.New(1), 0)
	original := bytes.Clone(buf.Pix)
	if err := Annotate(buf, ""); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(original, buf.Pix) {
		t.Error("empty label should not touch pixels")
	}
}

func TestAnnotate_TinyImageClips(t *testing.T) {
	buf, _ := Synthesize(context.Background(), Request{Width: 1, Height: 1, Mode: RGBA}, random.New(1), 0)
	if err := Annotate(buf, "a label far wider than the image"); err != nil {
		t.Errorf("Annotate on 1x1 should clip, got %v", err)
	}
}

func TestAnnotate_InvalidBuffer(t *testing.T) {
	buf := &Buffer{Width: 4, Height: 4, Mode: RGB, Depth: Depth8, Pix: make([]byte, 5)}
	if err := Annotate(buf, "x"); err == nil {
		t.Error("Expected error for inconsistent buffer")
	}
}
