package pipeline

// Frame is a single 2D grid of sample values. Values are kept as float64 so
// that window/level correction and polarity inversion compose without
// worrying about the decoded integer width.
type Frame struct {
	Rows int
	Cols int
	Pix  []float64 // row-major, len == Rows*Cols
}

// FrameStack is the ordered sequence of frames decoded from one dataset. A
// single-image dataset is a stack with Total() == 1; a multi-frame dataset
// (volume or cine) carries one Frame per slice, all sharing the same
// dimensions.
type FrameStack struct {
	Rows   int
	Cols   int
	Frames []Frame
}

// Total returns the number of frames in the stack.
func (s *FrameStack) Total() int { return len(s.Frames) }
