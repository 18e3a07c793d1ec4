package detectbank

import (
	"testing"

	"github.com/resonare/detectbank/types"
)

func TestInterpolateClampsAtEndpoints(t *testing.T) {
	xs := []float64{100, 200, 300}
	ys := []float64{1, 2, 3}
	if got := interpolate(xs, ys, 50); got != 1 {
		t.Errorf("interpolate below range = %v, want 1", got)
	}
	if got := interpolate(xs, ys, 400); got != 3 {
		t.Errorf("interpolate above range = %v, want 3", got)
	}
}

func TestInterpolateMidpoint(t *testing.T) {
	xs := []float64{100, 200}
	ys := []float64{1, 3}
	if got := interpolate(xs, ys, 150); got != 2 {
		t.Errorf("interpolate(150) = %v, want 2", got)
	}
}

func TestScaleTableIndexSelectsDistinctTables(t *testing.T) {
	seen := map[int]bool{}
	for _, variant := range []types.Integrator{types.CentralDifference, types.RungeKutta4} {
		for _, norm := range []bool{false, true} {
			for _, sr := range []int{44100, 48000} {
				idx := scaleTableIndex(variant, norm, sr)
				if idx < 0 || idx > 7 {
					t.Fatalf("scaleTableIndex out of range: %d", idx)
				}
				seen[idx] = true
			}
		}
	}
	if len(seen) != 8 {
		t.Errorf("scaleTableIndex produced %d distinct indices, want 8", len(seen))
	}
}

func TestStaticScaleForIsPositiveReal(t *testing.T) {
	scale := staticScaleFor(types.RungeKutta4, true, 44100, 440)
	if real(scale) <= 0 {
		t.Errorf("scale = %v, want positive real part", scale)
	}
	if imag(scale) != 0 {
		t.Errorf("scale = %v, want zero imaginary part", scale)
	}
}
