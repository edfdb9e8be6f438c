package rating

import (
	"fmt"
	"testing"

	"github.com/reviewlens/reviewlens/internal/types"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"fraction slash", "4/5", 4.0},
		{"fraction out of", "3 out of 5", 3.0},
		{"fraction of", "4 of 5", 4.0},
		{"fraction rescaled", "8/10", 4.0},
		{"fraction percent style", "80 out of 100", 4.0},
		{"bare decimal", "4.5", 4.5},
		{"bare integer", "3", 3.0},
		{"bare with spaces", "  4.0  ", 4.0},
		{"star phrase", "4 stars", 4.0},
		{"star phrase singular", "1 star", 1.0},
		{"star phrase decimal", "4.5 stars", 4.5},
		{"star phrase hyphen", "5-star", 5.0},
		{"star phrase embedded", "Rated 3 stars by our readers", 3.0},
		{"unicode stars", "★★★★☆", 4.0},
		{"unicode stars full", "★★★★★", 5.0},
		{"emoji stars", "⭐⭐⭐", 3.0},
		{"number word", "four out of five", 4.0},
		{"number word stars", "three stars", 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(types.String(tt.raw))
			if got == nil {
				t.Fatalf("Normalize(%q) = nil, want %v", tt.raw, tt.want)
			}
			if *got != tt.want {
				t.Errorf("Normalize(%q) = %v, want %v", tt.raw, *got, tt.want)
			}
		})
	}
}

func TestNormalizeUnrecognized(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "garbage"},
		{"empty", ""},
		{"whitespace", "   "},
		{"out of range bare", "6"},
		{"out of range fraction", "7/5"},
		{"negative", "-1"},
		{"zero denominator", "4/0"},
		{"no digits", "excellent product"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(types.String(tt.raw)); got != nil {
				t.Errorf("Normalize(%q) = %v, want nil", tt.raw, *got)
			}
		})
	}
}

func TestNormalizeNil(t *testing.T) {
	if got := Normalize(nil); got != nil {
		t.Errorf("Normalize(nil) = %v, want nil", *got)
	}
}

// Every fraction n/5 with n in range must come back exactly n, and every
// non-nil result must land inside the output scale.
func TestNormalizeFractionRange(t *testing.T) {
	for n := 0; n <= 5; n++ {
		raw := fmt.Sprintf("%d/5", n)
		got := Normalize(types.String(raw))
		if got == nil {
			t.Fatalf("Normalize(%q) = nil", raw)
		}
		if *got != float64(n) {
			t.Errorf("Normalize(%q) = %v, want %d", raw, *got, n)
		}
		if *got < 0 || *got > Scale {
			t.Errorf("Normalize(%q) = %v, outside [0, %v]", raw, *got, Scale)
		}
	}
}

// Formatting a normalized rating and normalizing it again must not change it.
func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"4/5", "3 out of 5", "4.5", "2 stars", "★★★☆☆"}
	for _, raw := range inputs {
		first := Normalize(types.String(raw))
		if first == nil {
			t.Fatalf("Normalize(%q) = nil", raw)
		}
		rendered := fmt.Sprintf("%g", *first)
		second := Normalize(types.String(rendered))
		if second == nil || *second != *first {
			t.Errorf("Normalize(%q) -> %v, re-normalized %q -> %v", raw, *first, rendered, second)
		}
	}
}
