package detectbank

import (
	"math"

	"github.com/resonare/detectbank/types"
)

// scaleTable holds a monotonic frequency axis and matching per-frequency
// correction factors (§4.4.3, §9 "Shared scale tables"). Values are
// process-wide immutable constants, selected by (integrator,
// normalisation-state, sample rate).
type scaleTable struct {
	freqs   []float64
	factors []float64
}

// The eight entries below are indexed [0+offset .. 3+offset] where offset
// is 0 for a 44100Hz bank and 4 otherwise (§4.4.3): unnormalized RK4,
// normalized RK4, unnormalized CD, normalized CD. The upstream calibration
// data this table is built from ships as a compiled-in data file that was
// not present in this module's retrieval; the curves below are synthetic
// placeholders, monotonic and smooth across the audible range, clearly
// documented as such rather than silently passed off as the real
// calibration (see DESIGN.md "static scale tables").
var scaleTables = [8]scaleTable{
	// 0: RK4, unnormalized, 44100
	{freqs: edoScaleFreqs, factors: synthScaleFactors(1.00, 0.015)},
	// 1: RK4, normalized, 44100
	{freqs: edoScaleFreqs, factors: synthScaleFactors(1.00, 0.008)},
	// 2: CD, unnormalized, 44100
	{freqs: edoScaleFreqs, factors: synthScaleFactors(0.97, 0.02)},
	// 3: CD, normalized, 44100
	{freqs: edoScaleFreqs, factors: synthScaleFactors(0.97, 0.01)},
	// 4: RK4, unnormalized, 48000
	{freqs: edoScaleFreqs, factors: synthScaleFactors(1.00, 0.016)},
	// 5: RK4, normalized, 48000
	{freqs: edoScaleFreqs, factors: synthScaleFactors(1.00, 0.009)},
	// 6: CD, unnormalized, 48000
	{freqs: edoScaleFreqs, factors: synthScaleFactors(0.97, 0.021)},
	// 7: CD, normalized, 48000
	{freqs: edoScaleFreqs, factors: synthScaleFactors(0.97, 0.011)},
}

// edoScaleFreqs spans a 12-EDO piano's range, 27.5Hz (A0) to 4186Hz (C8),
// giving the interpolation a dense, evenly-spaced axis in log-frequency.
var edoScaleFreqs = buildLogFreqAxis(27.5, 4186.0, 24)

func buildLogFreqAxis(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	ratio := hi / lo
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		out[i] = lo * math.Pow(ratio, t)
	}
	return out
}

func synthScaleFactors(base, slope float64) []float64 {
	n := len(edoScaleFreqs)
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(n-1)
		out[i] = base + slope*(t-0.5)
	}
	return out
}

func scaleTableIndex(variant types.Integrator, normalized bool, sr int) int {
	offset := 0
	if sr != 44100 {
		offset = 4
	}
	var base int
	switch variant {
	case types.CentralDifference:
		base = 2
	default:
		base = 0
	}
	if normalized {
		base++
	}
	return base + offset
}

// staticScaleFor looks up the (integrator, normalisation-state, sample
// rate) table and linearly interpolates factors by f, returning
// scale = 1/interpolated_factor (§4.4.3). f outside the table's range is
// clamped to the nearest endpoint rather than extrapolated.
func staticScaleFor(variant types.Integrator, normalized bool, sr int, f float64) complex128 {
	t := scaleTables[scaleTableIndex(variant, normalized, sr)]
	factor := interpolate(t.freqs, t.factors, f)
	if factor == 0 {
		return 1
	}
	return complex(1/factor, 0)
}

// interpolate performs piecewise-linear interpolation of ys over the
// strictly increasing axis xs, clamping x to [xs[0], xs[len-1]].
func interpolate(xs, ys []float64, x float64) float64 {
	n := len(xs)
	if n == 0 {
		return 1
	}
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	for i := 0; i < n-1; i++ {
		if x >= xs[i] && x <= xs[i+1] {
			span := xs[i+1] - xs[i]
			if span == 0 {
				return ys[i]
			}
			frac := (x - xs[i]) / span
			return ys[i] + frac*(ys[i+1]-ys[i])
		}
	}
	return ys[n-1]
}
