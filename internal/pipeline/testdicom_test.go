package pipeline

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// mustNewElement creates a new DICOM element, panicking on error.
func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}

// writeTestDICOM encodes a little-endian uncompressed dataset whose pixel
// payload holds the given 16-bit frames. Window tags are omitted so raw
// values survive decoding unchanged.
func writeTestDICOM(t *testing.T, frames [][]uint16, rows, cols int, photometric string) []byte {
	t.Helper()

	pixelFrames := make([]*frame.Frame, 0, len(frames))
	for _, pix := range frames {
		if len(pix) != rows*cols {
			t.Fatalf("fixture frame has %d samples, want %d", len(pix), rows*cols)
		}
		nativeFrame := frame.NewNativeFrame[uint16](16, rows, cols, rows*cols, 1)
		copy(nativeFrame.RawData, pix)
		pixelFrames = append(pixelFrames, &frame.Frame{
			Encapsulated: false,
			NativeData:   nativeFrame,
		})
	}

	ds := dicom.Dataset{Elements: []*dicom.Element{
		mustNewElement(tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(tag.SOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.4"}),
		mustNewElement(tag.SOPInstanceUID, []string{"1.2.826.0.1.3680043.8.498.1"}),
		mustNewElement(tag.Rows, []int{rows}),
		mustNewElement(tag.Columns, []int{cols}),
		mustNewElement(tag.BitsAllocated, []int{16}),
		mustNewElement(tag.BitsStored, []int{16}),
		mustNewElement(tag.HighBit, []int{15}),
		mustNewElement(tag.PixelRepresentation, []int{0}),
		mustNewElement(tag.SamplesPerPixel, []int{1}),
		mustNewElement(tag.PhotometricInterpretation, []string{photometric}),
		mustNewElement(tag.NumberOfFrames, []string{fmt.Sprintf("%d", len(frames))}),
		mustNewElement(tag.PixelData, dicom.PixelDataInfo{Frames: pixelFrames}),
	}}

	var buf bytes.Buffer
	if err := dicom.Write(&buf, ds); err != nil {
		t.Fatalf("write fixture dataset: %v", err)
	}
	return buf.Bytes()
}

// gradientFrame fills rows*cols samples with index-proportional values
// offset by base, giving each frame a distinct and predictable range.
func gradientFrame(rows, cols int, base uint16) []uint16 {
	pix := make([]uint16, rows*cols)
	for i := range pix {
		pix[i] = base + uint16(i)
	}
	return pix
}
