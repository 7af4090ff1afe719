package pipeline

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func extractStack(t *testing.T, data []byte) *FrameStack {
	t.Helper()
	ex := Extractor{}
	stack, err := ex.Extract(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	return stack
}

// TestExtract_SingleFrame verifies a one-frame dataset decodes to exactly
// one frame with the right geometry and raw values.
func TestExtract_SingleFrame(t *testing.T) {
	data := writeTestDICOM(t, [][]uint16{{10, 20, 30, 40}}, 2, 2, "MONOCHROME2")

	stack := extractStack(t, data)
	if stack.Total() != 1 {
		t.Fatalf("Total() = %d, want 1", stack.Total())
	}
	if stack.Rows != 2 || stack.Cols != 2 {
		t.Errorf("geometry = %dx%d, want 2x2", stack.Rows, stack.Cols)
	}

	want := []float64{10, 20, 30, 40}
	for i, v := range stack.Frames[0].Pix {
		if v != want[i] {
			t.Errorf("pix[%d] = %v, want %v", i, v, want[i])
		}
	}
	t.Logf("✓ single frame decoded with raw values intact")
}

// TestExtract_MultiFrame verifies frame count and per-frame ordering.
func TestExtract_MultiFrame(t *testing.T) {
	frames := [][]uint16{
		gradientFrame(4, 4, 0),
		gradientFrame(4, 4, 100),
		gradientFrame(4, 4, 200),
	}
	data := writeTestDICOM(t, frames, 4, 4, "MONOCHROME2")

	stack := extractStack(t, data)
	if stack.Total() != 3 {
		t.Fatalf("Total() = %d, want 3", stack.Total())
	}
	for i, f := range stack.Frames {
		if got := f.Pix[0]; got != float64(i*100) {
			t.Errorf("frame %d first sample = %v, want %v", i, got, i*100)
		}
	}
	t.Logf("✓ 3 frames decoded in order")
}

// TestExtract_Monochrome1Inverts verifies polarity correction against the
// maximum of the whole stack, not per frame.
func TestExtract_Monochrome1Inverts(t *testing.T) {
	frames := [][]uint16{
		{0, 1, 2, 3},
		{4, 5, 6, 7},
	}
	data := writeTestDICOM(t, frames, 2, 2, "MONOCHROME1")

	stack := extractStack(t, data)

	// Global max is 7, so frame 0 becomes 7..4 and frame 1 becomes 3..0.
	wantFirst := []float64{7, 6, 5, 4}
	wantSecond := []float64{3, 2, 1, 0}
	for i := range wantFirst {
		if stack.Frames[0].Pix[i] != wantFirst[i] {
			t.Errorf("frame 0 pix[%d] = %v, want %v", i, stack.Frames[0].Pix[i], wantFirst[i])
		}
		if stack.Frames[1].Pix[i] != wantSecond[i] {
			t.Errorf("frame 1 pix[%d] = %v, want %v", i, stack.Frames[1].Pix[i], wantSecond[i])
		}
	}
	t.Logf("✓ MONOCHROME1 inverted against the global maximum")
}

// TestExtract_Monochrome2Unchanged verifies no inversion happens for the
// standard polarity.
func TestExtract_Monochrome2Unchanged(t *testing.T) {
	data := writeTestDICOM(t, [][]uint16{{0, 1, 2, 3}}, 2, 2, "MONOCHROME2")

	stack := extractStack(t, data)
	want := []float64{0, 1, 2, 3}
	for i, v := range stack.Frames[0].Pix {
		if v != want[i] {
			t.Errorf("pix[%d] = %v, want %v", i, v, want[i])
		}
	}
}

// TestExtract_MalformedInput verifies undecodable bytes surface as a typed
// input error rather than a raw parser error.
func TestExtract_MalformedInput(t *testing.T) {
	junk := strings.NewReader("this is not a DICOM payload at all, not even close")

	ex := Extractor{}
	_, err := ex.Extract(junk, 50)
	if err == nil {
		t.Fatal("expected error for malformed input")
	}

	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("error type = %T, want *InvalidInputError", err)
	}
	t.Logf("✓ malformed input rejected: %v", err)
}
