package pipeline

import "testing"

// TestNormalize_FullRange verifies the min maps to 0 and the max to 255.
func TestNormalize_FullRange(t *testing.T) {
	f := Frame{Rows: 1, Cols: 4, Pix: []float64{100, 200, 300, 400}}

	out := Normalize(f)
	if out[0] != 0 {
		t.Errorf("min sample = %d, want 0", out[0])
	}
	if out[3] != 255 {
		t.Errorf("max sample = %d, want 255", out[3])
	}
	// Interior samples keep their relative order.
	if !(out[0] < out[1] && out[1] < out[2] && out[2] < out[3]) {
		t.Errorf("samples not monotonic: %v", out)
	}
}

// TestNormalize_UniformFrame verifies a constant frame maps to all zeros
// instead of dividing by zero.
func TestNormalize_UniformFrame(t *testing.T) {
	f := Frame{Rows: 2, Cols: 2, Pix: []float64{7, 7, 7, 7}}

	out := Normalize(f)
	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %d, want 0", i, v)
		}
	}
	t.Logf("✓ uniform frame normalized to zeros")
}

// TestNormalize_AlreadyByteRange verifies a frame spanning exactly 0..255
// comes through essentially unchanged. Truncation after float division may
// land one level low, which is invisible in an 8-bit render.
func TestNormalize_AlreadyByteRange(t *testing.T) {
	pix := make([]float64, 256)
	for i := range pix {
		pix[i] = float64(i)
	}
	f := Frame{Rows: 16, Cols: 16, Pix: pix}

	out := Normalize(f)
	if out[0] != 0 || out[255] != 255 {
		t.Fatalf("endpoints = %d, %d, want 0, 255", out[0], out[255])
	}
	for i, v := range out {
		if int(v) != i && int(v) != i-1 {
			t.Fatalf("out[%d] = %d, want %d (or one below)", i, v, i)
		}
	}
}

// TestNormalize_PerFrameIndependence verifies each frame is stretched by its
// own range, the property that makes dim slices visible.
func TestNormalize_PerFrameIndependence(t *testing.T) {
	dim := Frame{Rows: 1, Cols: 2, Pix: []float64{10, 12}}
	bright := Frame{Rows: 1, Cols: 2, Pix: []float64{1000, 4000}}

	dimOut := Normalize(dim)
	brightOut := Normalize(bright)

	if dimOut[1] != 255 || brightOut[1] != 255 {
		t.Errorf("both frames should reach 255, got %d and %d", dimOut[1], brightOut[1])
	}
	if dimOut[0] != 0 || brightOut[0] != 0 {
		t.Errorf("both frames should reach 0, got %d and %d", dimOut[0], brightOut[0])
	}
}
