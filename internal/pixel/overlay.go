package pixel

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Annotate draws text near the top of the buffer, centered horizontally.
//
// Text is white with a black outline so it stays readable on noise. The
// buffer is modified in place; labels that do not fit are clipped.
func Annotate(buf *Buffer, text string) error {
	if err := buf.Check(); err != nil {
		return fmt.Errorf("annotate: %w", err)
	}
	if text == "" {
		return nil
	}

	img := buf.Image()
	dst, ok := img.(draw.Image)
	if !ok {
		return fmt.Errorf("annotate: image type %T is not drawable", img)
	}

	face := basicfont.Face7x13
	paddingTop := int(float64(buf.Height) * 0.05)
	textWidth := font.MeasureString(face, text).Ceil()
	x := (buf.Width - textWidth) / 2
	y := paddingTop + face.Metrics().Ascent.Ceil()

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}

	const outline = 1
	for dx := -outline; dx <= outline; dx++ {
		for dy := -outline; dy <= outline; dy++ {
			if dx != 0 || dy != 0 {
				drawer.Dot = fixed.P(x+dx, y+dy)
				drawer.DrawString(text)
			}
		}
	}

	drawer.Src = image.NewUniform(color.White)
	drawer.Dot = fixed.P(x, y)
	drawer.DrawString(text)

	// RGB views are copies; fold the drawing back into the buffer.
	if buf.Mode == RGB {
		back, err := FromImage(dst, RGB, buf.Depth)
		if err != nil {
			return fmt.Errorf("annotate: %w", err)
		}
		copy(buf.Pix, back.Pix)
	}
	return nil
}
