// Package hilbert produces an analytic signal from a real signal, and
// uses it to heterodyne (frequency-shift) the original signal.
//
// Two Hilbert transform kernels are provided: an FFT-based operator and a
// windowed-sinc FIR operator. Both are treated as standard, well-known
// signal-processing kernels — per detectbank's design, their numerical
// cores are unremarkable; what matters is the contract they expose.
package hilbert

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrInvalidMode is returned by New for an unrecognized Mode.
var ErrInvalidMode = errors.New("hilbert: invalid mode")

// ErrEmptyInput is returned by Analytic for a zero-length input.
var ErrEmptyInput = errors.New("hilbert: empty input")

// ErrEvenKernelLength is returned when constructing a FIR operator with
// an even kernel length.
var ErrEvenKernelLength = errors.New("hilbert: FIR kernel length must be odd")

// Mode selects which Hilbert transform kernel an Operator uses.
type Mode int

const (
	FFT Mode = iota
	FIR
)

// DefaultFIRLength is the default odd-length windowed-sinc FIR kernel size.
const DefaultFIRLength = 19

// Operator computes an analytic signal from a real signal: a complex
// sequence whose real part equals the input and whose imaginary part
// approximates its Hilbert transform.
type Operator interface {
	// Analytic returns a complex sequence of length len(x). It never
	// modifies x. It fails with ErrEmptyInput if x is empty.
	Analytic(x []float64) ([]complex128, error)
}

// New constructs the Operator for the given mode. FIR uses DefaultFIRLength.
func New(mode Mode) (Operator, error) {
	switch mode {
	case FFT:
		return fftOperator{}, nil
	case FIR:
		return NewFIR(DefaultFIRLength)
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}
}

// fftOperator implements the FFT variant of §4.2: complex FFT of length
// S, zero the negative-frequency bins, scale the DC bin by 1/S and the
// positive-frequency bins (and the Nyquist bin, when S is even) by 2/S
// and 1/S respectively, then an unnormalized inverse complex FFT of
// length S. Built on gonum.org/v1/gonum/dsp/fourier.CmplxFFT, whose
// Coefficients/Sequence pair is the same unnormalized-forward,
// unnormalized-backward convention the masking step below assumes.
type fftOperator struct{}

func (fftOperator) Analytic(x []float64) ([]complex128, error) {
	n := len(x)
	if n == 0 {
		return nil, ErrEmptyInput
	}
	seq := make([]complex128, n)
	for i, xi := range x {
		seq[i] = complex(xi, 0)
	}
	fft := fourier.NewCmplxFFT(n)
	spectrum := fft.Coefficients(nil, seq)

	half := n / 2
	even := n%2 == 0
	masked := make([]complex128, n)
	masked[0] = spectrum[0] * complex(1/float64(n), 0)
	for k := 1; k < n; k++ {
		switch {
		case even && k == half:
			masked[k] = spectrum[k] * complex(1/float64(n), 0)
		case k <= half:
			masked[k] = spectrum[k] * complex(2/float64(n), 0)
		default:
			masked[k] = 0
		}
	}
	return fft.Sequence(nil, masked), nil
}

// firOperator implements the FIR variant of §4.2: a windowed odd-length
// anti-symmetric sinc kernel, convolved with the input, time-aligned so
// that output sample i pairs with input sample i.
type firOperator struct {
	kernel []float64 // length L, centered at index (L-1)/2
}

// NewFIR builds a FIR Hilbert operator with kernel length l (must be odd).
func NewFIR(l int) (Operator, error) {
	if l%2 == 0 {
		return nil, fmt.Errorf("%w: %d", ErrEvenKernelLength, l)
	}
	return firOperator{kernel: hilbertFIRKernel(l)}, nil
}

// hilbertFIRKernel builds the anti-symmetric windowed-sinc kernel: for
// centered index m = n-(L-1)/2, even m (including 0) contributes zero;
// odd m contributes 2/(m*pi), tapered by a Blackman window.
func hilbertFIRKernel(l int) []float64 {
	center := (l - 1) / 2
	k := make([]float64, l)
	for n := 0; n < l; n++ {
		m := n - center
		if m%2 == 0 {
			k[n] = 0
			continue
		}
		k[n] = (2 / (float64(m) * math.Pi)) * blackman(n, l)
	}
	return k
}

// blackman evaluates the Blackman window (a0=0.42, a1=0.5, a2=0.08) at
// tap n of an l-tap window.
func blackman(n, l int) float64 {
	const a0, a1, a2 = 0.42, 0.5, 0.08
	if l <= 1 {
		return a0 - a1 + a2
	}
	phase := 2 * math.Pi * float64(n) / float64(l-1)
	return a0 - a1*math.Cos(phase) + a2*math.Cos(2*phase)
}

func (f firOperator) Analytic(x []float64) ([]complex128, error) {
	n := len(x)
	if n == 0 {
		return nil, ErrEmptyInput
	}
	l := len(f.kernel)
	center := (l - 1) / 2
	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		var im float64
		for k := 0; k < l; k++ {
			src := i - k + center
			if src < 0 || src >= n {
				continue
			}
			im += f.kernel[k] * x[src]
		}
		out[i] = complex(x[i], im)
	}
	return out, nil
}
