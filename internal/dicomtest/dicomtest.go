// Package dicomtest builds small synthetic DICOM datasets for tests.
package dicomtest

import (
	"bytes"
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}

// MultiFrame encodes a little-endian uncompressed MONOCHROME2 dataset of
// numFrames rows*cols 16-bit frames filled with gradient values.
func MultiFrame(numFrames, rows, cols int) []byte {
	pixelFrames := make([]*frame.Frame, 0, numFrames)
	for n := 0; n < numFrames; n++ {
		nativeFrame := frame.NewNativeFrame[uint16](16, rows, cols, rows*cols, 1)
		for i := range nativeFrame.RawData {
			nativeFrame.RawData[i] = uint16(n*1000 + i)
		}
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
		mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
		mustNewElement(tag.NumberOfFrames, []string{fmt.Sprintf("%d", numFrames)}),
		mustNewElement(tag.PixelData, dicom.PixelDataInfo{Frames: pixelFrames}),
	}}

	var buf bytes.Buffer
	if err := dicom.Write(&buf, ds); err != nil {
		panic(fmt.Sprintf("write test dataset: %v", err))
	}
	return buf.Bytes()
}
