package encode

import (
	"fmt"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/mrsinham/randimage/internal/pixel"
)

// bmpEncoder writes 8-bit paletted gray or 24-bit RGB bitmaps.
type bmpEncoder struct{}

func (bmpEncoder) Encode(w io.Writer, buf *pixel.Buffer) error {
	if err := checkBuffer(BMP, buf); err != nil {
		return err
	}
	if err := bmp.Encode(w, buf.Image()); err != nil {
		return fmt.Errorf("bmp: %w", err)
	}
	return nil
}

// tiffEncoder writes deflate-compressed TIFF. RGB buffers are stored with an
// opaque alpha sample, as the tiff package has no three-sample writer.
type tiffEncoder struct{}

func (tiffEncoder) Encode(w io.Writer, buf *pixel.Buffer) error {
	if err := checkBuffer(TIFF, buf); err != nil {
		return err
	}
	if err := tiff.Encode(w, buf.Image(), &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("tiff: %w", err)
	}
	return nil
}
