package pipeline

import "fmt"

// InvalidInputError reports that the supplied bytes could not be decoded as a
// DICOM dataset with a readable pixel payload.
type InvalidInputError struct {
	Err error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid DICOM input: %v", e.Err)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// InvalidParameterError reports a slice stride that is missing, non-numeric,
// zero, or negative.
type InvalidParameterError struct {
	Value string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid slice stride %q: must be a positive integer", e.Value)
}

// EmptySelectionError reports a selection plan that contains no frames.
type EmptySelectionError struct {
	Total int
}

func (e *EmptySelectionError) Error() string {
	return fmt.Sprintf("no slices selected from %d frames", e.Total)
}
