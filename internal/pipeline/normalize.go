package pipeline

import "gonum.org/v1/gonum/floats"

// Normalize contrast-stretches one frame to 8-bit grayscale: subtract the
// frame's own minimum, divide by the resulting maximum, scale to 255 and
// truncate. Each frame is normalized independently of the rest of the stack.
// A uniform frame (max == min) maps to all black; there is no failure path.
func Normalize(f Frame) []uint8 {
	out := make([]uint8, len(f.Pix))
	if len(f.Pix) == 0 {
		return out
	}

	min := floats.Min(f.Pix)
	max := floats.Max(f.Pix) - min

	for i, v := range f.Pix {
		v -= min
		if max > 0 {
			v /= max
		}
		out[i] = uint8(v * 255.0)
	}
	return out
}
