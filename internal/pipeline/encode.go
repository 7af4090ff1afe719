package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RenderedImage is one fully normalized slice ready for storage: an 8-bit
// 3-channel PNG named after its 1-based position in the original stack, plus
// an optional gallery thumbnail.
type RenderedImage struct {
	Index    int    // 0-based original frame index
	Filename string // slice_0001.png, slice_0002.png, ...
	PNG      []byte
	Thumb    []byte // nil when thumbnails are disabled
}

// EncodeOptions controls the non-essential parts of slice rendering.
type EncodeOptions struct {
	// Label, when non-empty, is burned onto the image near the top edge
	// (e.g. "3/48").
	Label string
	// ThumbWidth, when > 0, produces a resized thumbnail alongside the
	// full-resolution PNG.
	ThumbWidth int
}

// SliceFilename derives the deterministic name for a slice from its 0-based
// frame index. Names are 1-based to match clinical slice numbering and
// zero-padded to four digits so that lexicographic order matches frame order
// for stacks of up to 9999 frames.
func SliceFilename(index int) string {
	return fmt.Sprintf("slice_%04d.png", index+1)
}

// Encode converts a normalized 8-bit frame into a RenderedImage. The single
// gray channel is replicated into RGB for display compatibility with
// consumers that expect full-color rasters.
func Encode(pix []uint8, rows, cols, index int, opts EncodeOptions) (RenderedImage, error) {
	if len(pix) != rows*cols {
		return RenderedImage{}, fmt.Errorf("frame has %d samples, expected %dx%d", len(pix), rows, cols)
	}

	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := pix[y*cols+x]
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}

	if opts.Label != "" {
		drawLabel(img, cols, rows, opts.Label)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return RenderedImage{}, fmt.Errorf("encode slice %d: %w", index+1, err)
	}

	out := RenderedImage{
		Index:    index,
		Filename: SliceFilename(index),
		PNG:      buf.Bytes(),
	}

	if opts.ThumbWidth > 0 && cols > opts.ThumbWidth {
		thumb := imaging.Resize(img, opts.ThumbWidth, 0, imaging.Lanczos)
		var tbuf bytes.Buffer
		if err := png.Encode(&tbuf, thumb); err != nil {
			return RenderedImage{}, fmt.Errorf("encode thumbnail %d: %w", index+1, err)
		}
		out.Thumb = tbuf.Bytes()
	}

	return out, nil
}

// drawLabel draws white text with a black outline, centered horizontally and
// padded 5% from the top edge.
func drawLabel(img *image.RGBA, width, height int, text string) {
	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	x := (width - textWidth) / 2
	y := int(float64(height)*0.05) + face.Height

	point := fixed.Point26_6{
		X: fixed.I(x),
		Y: fixed.I(y),
	}

	// Outline pass for visibility against both bright and dark tissue.
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			drawer := &font.Drawer{
				Dst:  img,
				Src:  image.NewUniform(color.RGBA{0, 0, 0, 255}),
				Face: face,
				Dot: fixed.Point26_6{
					X: point.X + fixed.I(dx),
					Y: point.Y + fixed.I(dy),
				},
			}
			drawer.DrawString(text)
		}
	}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{255, 255, 255, 255}),
		Face: face,
		Dot:  point,
	}
	drawer.DrawString(text)
}
