package pipeline

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// monochrome1 is the photometric interpretation where low sample values are
// displayed bright. Frames tagged with it are inverted so that downstream
// normalization always works on MONOCHROME2-style polarity.
const monochrome1 = "MONOCHROME1"

// Extractor decodes a DICOM pixel payload into a FrameStack. Window/level
// correction and polarity inversion are best-effort: when the relevant tags
// are absent or unparsable the raw decoded values are used and the fallback
// is logged, never surfaced as an error.
type Extractor struct {
	Log *slog.Logger
}

// Extract decodes size bytes from r into a FrameStack. It fails with
// *InvalidInputError when the bytes are not a parseable DICOM stream, the
// pixel payload is missing or undecodable, or the frames disagree on
// dimensions.
func (e *Extractor) Extract(r io.Reader, size int64) (*FrameStack, error) {
	ds, err := dicom.Parse(r, size, nil)
	if err != nil {
		return nil, &InvalidInputError{Err: fmt.Errorf("parse dataset: %w", err)}
	}

	pixelElem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, &InvalidInputError{Err: fmt.Errorf("no pixel data: %w", err)}
	}
	info := dicom.MustGetPixelDataInfo(pixelElem.Value)
	if len(info.Frames) == 0 {
		return nil, &InvalidInputError{Err: fmt.Errorf("pixel data contains no frames")}
	}

	stack := &FrameStack{Frames: make([]Frame, 0, len(info.Frames))}
	for i, fr := range info.Frames {
		img, err := fr.GetImage()
		if err != nil {
			return nil, &InvalidInputError{Err: fmt.Errorf("decode frame %d: %w", i, err)}
		}
		f := frameSamples(img)
		if i == 0 {
			stack.Rows, stack.Cols = f.Rows, f.Cols
		} else if f.Rows != stack.Rows || f.Cols != stack.Cols {
			return nil, &InvalidInputError{Err: fmt.Errorf(
				"frame %d is %dx%d, expected %dx%d", i, f.Rows, f.Cols, stack.Rows, stack.Cols)}
		}
		stack.Frames = append(stack.Frames, f)
	}

	e.applyWindow(stack, &ds)
	e.applyPolarity(stack, &ds)

	return stack, nil
}

// frameSamples copies the decoded frame image into a float64 grid. Gray and
// Gray16 frames (everything the native DICOM path produces) keep their raw
// sample values; anything else is reduced to luminance as a best effort,
// since color payloads are out of scope.
func frameSamples(img image.Image) Frame {
	b := img.Bounds()
	f := Frame{
		Rows: b.Dy(),
		Cols: b.Dx(),
		Pix:  make([]float64, b.Dy()*b.Dx()),
	}

	switch im := img.(type) {
	case *image.Gray16:
		for y := 0; y < f.Rows; y++ {
			for x := 0; x < f.Cols; x++ {
				f.Pix[y*f.Cols+x] = float64(im.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.Gray:
		for y := 0; y < f.Rows; y++ {
			for x := 0; x < f.Cols; x++ {
				f.Pix[y*f.Cols+x] = float64(im.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	default:
		for y := 0; y < f.Rows; y++ {
			for x := 0; x < f.Cols; x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				f.Pix[y*f.Cols+x] = float64(r+g+bl) / 3
			}
		}
	}

	return f
}

// applyWindow rescales every sample through the dataset's linear VOI
// transform (RescaleSlope/Intercept, then WindowCenter/WindowWidth with
// clamping, mapped onto the full BitsAllocated range). Missing or malformed
// window tags leave the stack untouched.
//
// See 'Grayscale Image Display' under
// https://dgobbi.github.io/vtk-dicom/doc/api/image_display.html
func (e *Extractor) applyWindow(stack *FrameStack, ds *dicom.Dataset) {
	center, errC := firstFloat(ds, tag.WindowCenter)
	width, errW := firstFloat(ds, tag.WindowWidth)
	if errC != nil || errW != nil || width < 1 {
		e.log().Debug("window lookup unavailable, using raw pixel values",
			"center_err", errC, "width_err", errW)
		return
	}

	slope := 1.0
	if v, err := firstFloat(ds, tag.RescaleSlope); err == nil && v != 0 {
		slope = v
	}
	intercept := 0.0
	if v, err := firstFloat(ds, tag.RescaleIntercept); err == nil {
		intercept = v
	}
	bits := 16
	if v, err := firstInt(ds, tag.BitsAllocated); err == nil && v > 0 {
		bits = v
	}

	// The output range uses BitsAllocated (e.g. 16), not BitsStored.
	grayLevels := math.Pow(2, float64(bits))
	w := width - 1.0
	c := center - 0.5

	for i := range stack.Frames {
		pix := stack.Frames[i].Pix
		for j, v := range pix {
			modality := v*slope + intercept
			switch {
			case modality <= c-0.5*w:
				pix[j] = 0
			case modality > c+0.5*w:
				pix[j] = grayLevels - 1.0
			default:
				pix[j] = ((modality-c)/w + 0.5) * (grayLevels - 1.0)
			}
		}
	}
}

// applyPolarity inverts MONOCHROME1 payloads against the global payload
// maximum, yielding MONOCHROME2-style display polarity. An absent or
// unreadable photometric tag skips inversion.
func (e *Extractor) applyPolarity(stack *FrameStack, ds *dicom.Dataset) {
	pi, err := firstString(ds, tag.PhotometricInterpretation)
	if err != nil {
		e.log().Debug("photometric interpretation unavailable, skipping inversion", "err", err)
		return
	}
	if !strings.EqualFold(strings.TrimSpace(pi), monochrome1) {
		return
	}

	max := math.Inf(-1)
	for i := range stack.Frames {
		for _, v := range stack.Frames[i].Pix {
			if v > max {
				max = v
			}
		}
	}
	for i := range stack.Frames {
		pix := stack.Frames[i].Pix
		for j := range pix {
			pix[j] = max - pix[j]
		}
	}
}

func (e *Extractor) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

// firstString returns the first string value of the given tag.
func firstString(ds *dicom.Dataset, t tag.Tag) (string, error) {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return "", err
	}
	vals, ok := elem.Value.GetValue().([]string)
	if !ok || len(vals) == 0 {
		return "", fmt.Errorf("tag %v has no string value", t)
	}
	return vals[0], nil
}

// firstFloat parses the first value of a decimal-string tag such as
// WindowCenter. Multi-valued tags (several window presets) use the first
// preset.
func firstFloat(ds *dicom.Dataset, t tag.Tag) (float64, error) {
	s, err := firstString(ds, t)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("tag %v: %w", t, err)
	}
	return f, nil
}

// firstInt returns the first integer value of the given tag.
func firstInt(ds *dicom.Dataset, t tag.Tag) (int, error) {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return 0, err
	}
	vals, ok := elem.Value.GetValue().([]int)
	if !ok || len(vals) == 0 {
		return 0, fmt.Errorf("tag %v has no integer value", t)
	}
	return vals[0], nil
}
