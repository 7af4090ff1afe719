// Package pipeline converts a DICOM pixel payload into a deterministic
// sequence of normalized 8-bit PNG slices.
//
// The flow is: raw bytes -> Extractor (decode, window, polarity) ->
// Plan (stride or all) -> per selected frame: Normalize -> Encode. All fatal
// conditions are detected before the first image is produced, so a failed run
// never yields a partial batch.
package pipeline

import (
	"fmt"
	"io"
	"log/slog"
)

// OutputBatch is the ordered result of one pipeline run.
type OutputBatch struct {
	// Total is the number of frames in the decoded stack, before selection.
	Total  int
	Images []RenderedImage
}

// Pipeline bundles the per-deployment rendering options. The zero value is a
// working pipeline with labels and thumbnails disabled.
type Pipeline struct {
	Log *slog.Logger
	// Annotate burns a "position/total" label onto every slice.
	Annotate bool
	// ThumbWidth enables gallery thumbnails of the given width.
	ThumbWidth int
}

// Run decodes size bytes of DICOM from r, selects frames per sel, and
// renders each selected frame. Failures are typed: *InvalidInputError for
// undecodable input, *InvalidParameterError for a bad stride,
// *EmptySelectionError for an empty plan.
func (p *Pipeline) Run(r io.Reader, size int64, sel Selection) (*OutputBatch, error) {
	ex := Extractor{Log: p.Log}
	stack, err := ex.Extract(r, size)
	if err != nil {
		return nil, err
	}

	indices, err := Plan(stack.Total(), sel)
	if err != nil {
		return nil, err
	}

	batch := &OutputBatch{
		Total:  stack.Total(),
		Images: make([]RenderedImage, 0, len(indices)),
	}

	for _, idx := range indices {
		opts := EncodeOptions{ThumbWidth: p.ThumbWidth}
		if p.Annotate {
			opts.Label = fmt.Sprintf("%d/%d", idx+1, stack.Total())
		}

		img, err := Encode(Normalize(stack.Frames[idx]), stack.Rows, stack.Cols, idx, opts)
		if err != nil {
			return nil, err
		}
		batch.Images = append(batch.Images, img)

		// Release the frame's samples as soon as its image exists, keeping
		// peak memory near one decoded stack rather than stack plus copies.
		stack.Frames[idx].Pix = nil
	}

	return batch, nil
}
