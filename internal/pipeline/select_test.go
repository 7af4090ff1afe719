package pipeline

import (
	"errors"
	"reflect"
	"testing"
)

// TestPlan covers stride selection over representative stack sizes.
func TestPlan(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		sel     Selection
		want    []int
		wantErr any
	}{
		{
			name:  "every_third_of_ten",
			total: 10,
			sel:   Selection{N: 3},
			want:  []int{0, 3, 6, 9},
		},
		{
			name:  "stride_one_keeps_all",
			total: 4,
			sel:   Selection{N: 1},
			want:  []int{0, 1, 2, 3},
		},
		{
			name:  "stride_beyond_total_keeps_first",
			total: 10,
			sel:   Selection{N: 15},
			want:  []int{0},
		},
		{
			name:  "all_single_frame",
			total: 1,
			sel:   Selection{All: true},
			want:  []int{0},
		},
		{
			name:  "all_of_five",
			total: 5,
			sel:   Selection{All: true},
			want:  []int{0, 1, 2, 3, 4},
		},
		{
			name:    "zero_stride_rejected",
			total:   10,
			sel:     Selection{N: 0},
			wantErr: &InvalidParameterError{},
		},
		{
			name:    "negative_stride_rejected",
			total:   10,
			sel:     Selection{N: -2},
			wantErr: &InvalidParameterError{},
		},
		{
			name:    "empty_stack_rejected",
			total:   0,
			sel:     Selection{All: true},
			wantErr: &EmptySelectionError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Plan(tt.total, tt.sel)

			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("expected error, got plan %v", got)
				}
				switch tt.wantErr.(type) {
				case *InvalidParameterError:
					var e *InvalidParameterError
					if !errors.As(err, &e) {
						t.Fatalf("error type = %T, want *InvalidParameterError", err)
					}
				case *EmptySelectionError:
					var e *EmptySelectionError
					if !errors.As(err, &e) {
						t.Fatalf("error type = %T, want *EmptySelectionError", err)
					}
				}
				return
			}

			if err != nil {
				t.Fatalf("Plan failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Plan = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestParseSelection covers the form-level parsing of the selection.
func TestParseSelection(t *testing.T) {
	t.Run("show_all", func(t *testing.T) {
		sel, err := ParseSelection("show_all", "")
		if err != nil {
			t.Fatalf("ParseSelection failed: %v", err)
		}
		if !sel.All {
			t.Error("expected All selection")
		}
	})

	t.Run("show_nth", func(t *testing.T) {
		sel, err := ParseSelection("show_nth", "4")
		if err != nil {
			t.Fatalf("ParseSelection failed: %v", err)
		}
		if sel.All || sel.N != 4 {
			t.Errorf("selection = %+v, want N=4", sel)
		}
	})

	t.Run("non_numeric_rejected", func(t *testing.T) {
		_, err := ParseSelection("show_nth", "abc")
		var e *InvalidParameterError
		if !errors.As(err, &e) {
			t.Fatalf("error = %v, want *InvalidParameterError", err)
		}
	})

	t.Run("zero_rejected", func(t *testing.T) {
		_, err := ParseSelection("show_nth", "0")
		var e *InvalidParameterError
		if !errors.As(err, &e) {
			t.Fatalf("error = %v, want *InvalidParameterError", err)
		}
	})
}
