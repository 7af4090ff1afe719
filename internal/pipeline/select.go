package pipeline

import (
	"strconv"
	"strings"
)

// Selection is a request for which frames of a stack to materialize: either
// every frame, or every Nth frame starting at the first.
type Selection struct {
	All bool
	N   int
}

// ParseSelection builds a Selection from the raw form values of a request.
// action "show_all" selects every frame and ignores nValue; otherwise nValue
// must parse as a positive integer or the request is rejected with
// *InvalidParameterError.
func ParseSelection(action, nValue string) (Selection, error) {
	if action == "show_all" {
		return Selection{All: true}, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(nValue))
	if err != nil || n <= 0 {
		return Selection{}, &InvalidParameterError{Value: nValue}
	}
	return Selection{N: n}, nil
}

// Plan returns the ordered, strictly increasing frame indices selected from
// total frames. It rejects non-positive strides with
// *InvalidParameterError and an empty result (possible only for an empty
// stack) with *EmptySelectionError.
func Plan(total int, sel Selection) ([]int, error) {
	if !sel.All && sel.N <= 0 {
		return nil, &InvalidParameterError{Value: strconv.Itoa(sel.N)}
	}

	step := 1
	if !sel.All {
		step = sel.N
	}

	var indices []int
	for i := 0; i < total; i += step {
		indices = append(indices, i)
	}
	if len(indices) == 0 {
		return nil, &EmptySelectionError{Total: total}
	}
	return indices, nil
}
