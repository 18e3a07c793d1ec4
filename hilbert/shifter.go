package hilbert

import (
	"math"
	"math/cmplx"
)

// Shifter heterodynes a real input signal by an arbitrary signed
// frequency offset. It computes the input's analytic signal once at
// construction and reuses it for every Shift call, amortising the
// Hilbert transform cost across the many heterodyne buffers a
// DetectorBank may request.
type Shifter struct {
	analytic []complex128
	sr       int
}

// NewShifter builds a Shifter over x using the given Hilbert mode and
// sample rate sr. It fails with ErrInvalidMode for an unrecognized mode.
func NewShifter(x []float64, sr int, mode Mode) (*Shifter, error) {
	op, err := New(mode)
	if err != nil {
		return nil, err
	}
	analytic, err := op.Analytic(x)
	if err != nil {
		return nil, err
	}
	return &Shifter{analytic: analytic, sr: sr}, nil
}

// Shift writes n samples of the real part of A[i]*exp(j*2*pi*f*i/sr) into
// out, for i in [0, n). f may be negative (shift down) or positive (shift
// up). n must not exceed the length of the signal the Shifter was built
// from.
func (s *Shifter) Shift(f float64, out []float64, n int) {
	w := 2 * math.Pi * f / float64(s.sr)
	for i := 0; i < n; i++ {
		out[i] = real(s.analytic[i] * cmplx.Exp(complex(0, w*float64(i))))
	}
}

// Len reports the length of the analytic signal backing this Shifter.
func (s *Shifter) Len() int {
	return len(s.analytic)
}
