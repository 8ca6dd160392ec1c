// Package thumbnail produces aspect-preserving previews of pixel buffers.
package thumbnail

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/mrsinham/randimage/internal/pixel"
)

// DefaultSize is the bounding box edge used when none is given.
const DefaultSize = 200

// Fit returns the largest size with the aspect ratio of srcW x srcH that fits
// in maxW x maxH. Wide images take the full width, tall and square ones the
// full height. Neither side drops below 1.
func Fit(srcW, srcH, maxW, maxH int) (w, h int) {
	if srcW <= 0 || srcH <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0
	}
	sw, sh := int64(srcW), int64(srcH)
	mw, mh := int64(maxW), int64(maxH)
	if sw*mh > sh*mw {
		w, h = maxW, int((sh*mw+sw/2)/sw)
	} else {
		w, h = int((sw*mh+sh/2)/sh), maxH
	}
	return max(w, 1), max(h, 1)
}

// Make scales buf into a maxW x maxH box with Catmull-Rom resampling. The
// result keeps the color mode and bit depth of buf.
func Make(buf *pixel.Buffer, maxW, maxH int) (*pixel.Buffer, error) {
	if err := buf.Check(); err != nil {
		return nil, fmt.Errorf("thumbnail: %w", err)
	}
	if maxW <= 0 || maxH <= 0 {
		return nil, fmt.Errorf("thumbnail: %w: box %dx%d", pixel.ErrInvalidDimensions, maxW, maxH)
	}

	w, h := Fit(buf.Width, buf.Height, maxW, maxH)
	rect := image.Rect(0, 0, w, h)

	var dst draw.Image
	switch {
	case buf.Mode == pixel.Grayscale && buf.Depth == pixel.Depth16:
		dst = image.NewGray16(rect)
	case buf.Mode == pixel.Grayscale:
		dst = image.NewGray(rect)
	case buf.Depth == pixel.Depth16:
		dst = image.NewNRGBA64(rect)
	default:
		dst = image.NewNRGBA(rect)
	}

	src := buf.Image()
	draw.CatmullRom.Scale(dst, rect, src, src.Bounds(), draw.Src, nil)
	return pixel.FromImage(dst, buf.Mode, buf.Depth)
}
