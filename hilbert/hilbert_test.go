package hilbert

import (
	"errors"
	"math"
	"testing"
)

func sineWave(freq, sr float64, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * freq * float64(i) / sr)
	}
	return x
}

func TestFFTAnalyticPreservesRealPart(t *testing.T) {
	op, err := New(FFT)
	if err != nil {
		t.Fatalf("New(FFT): %v", err)
	}
	x := sineWave(10, 256, 256)
	a, err := op.Analytic(x)
	if err != nil {
		t.Fatalf("Analytic: %v", err)
	}
	if len(a) != len(x) {
		t.Fatalf("len(a) = %d, want %d", len(a), len(x))
	}
	var maxErr float64
	for i, v := range a {
		if d := math.Abs(real(v) - x[i]); d > maxErr {
			maxErr = d
		}
	}
	if maxErr > 1e-6 {
		t.Errorf("max real-part reconstruction error = %g, want <= 1e-6", maxErr)
	}
}

func TestFFTAnalyticQuadratureOnSine(t *testing.T) {
	// For x[i] = sin(2*pi*f*i/sr), the analytic signal's imaginary part
	// should approximate -cos(2*pi*f*i/sr) (i.e. lag the real part by 90
	// degrees), away from the edges where the circular FFT wraps around.
	op, _ := New(FFT)
	const n = 512
	const freq = 20.0
	const sr = 512.0
	x := sineWave(freq, sr, n)
	a, err := op.Analytic(x)
	if err != nil {
		t.Fatalf("Analytic: %v", err)
	}
	var maxErr float64
	for i := n / 4; i < 3*n/4; i++ {
		want := -math.Cos(2 * math.Pi * freq * float64(i) / sr)
		if d := math.Abs(imag(a[i]) - want); d > maxErr {
			maxErr = d
		}
	}
	if maxErr > 0.05 {
		t.Errorf("max imaginary-part error = %g, want <= 0.05", maxErr)
	}
}

func TestAnalyticEmptyInput(t *testing.T) {
	op, _ := New(FFT)
	if _, err := op.Analytic(nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Analytic(nil) error = %v, want ErrEmptyInput", err)
	}
}

func TestNewInvalidMode(t *testing.T) {
	if _, err := New(Mode(99)); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("New(99) error = %v, want ErrInvalidMode", err)
	}
}

func TestNewFIREvenLengthFails(t *testing.T) {
	if _, err := NewFIR(20); !errors.Is(err, ErrEvenKernelLength) {
		t.Errorf("NewFIR(20) error = %v, want ErrEvenKernelLength", err)
	}
}

func TestFIRAnalyticPreservesRealPart(t *testing.T) {
	op, err := New(FIR)
	if err != nil {
		t.Fatalf("New(FIR): %v", err)
	}
	x := sineWave(10, 256, 256)
	a, err := op.Analytic(x)
	if err != nil {
		t.Fatalf("Analytic: %v", err)
	}
	for i, v := range a {
		if real(v) != x[i] {
			t.Fatalf("real(a[%d]) = %v, want %v", i, real(v), x[i])
		}
	}
}

func TestFIRKernelAntiSymmetric(t *testing.T) {
	k := hilbertFIRKernel(19)
	center := len(k) / 2
	for i := 1; i <= center; i++ {
		if math.Abs(k[center-i]+k[center+i]) > 1e-12 {
			t.Errorf("kernel not anti-symmetric at offset %d: %v vs %v", i, k[center-i], k[center+i])
		}
	}
	if k[center] != 0 {
		t.Errorf("center tap = %v, want 0", k[center])
	}
}

func TestShifterZeroOffsetReturnsOriginal(t *testing.T) {
	x := sineWave(30, 512, 512)
	s, err := NewShifter(x, 512, FFT)
	if err != nil {
		t.Fatalf("NewShifter: %v", err)
	}
	out := make([]float64, len(x))
	s.Shift(0, out, len(x))
	var maxErr float64
	for i := range x {
		if d := math.Abs(out[i] - x[i]); d > maxErr {
			maxErr = d
		}
	}
	if maxErr > 1e-6 {
		t.Errorf("zero-shift max error = %g, want <= 1e-6", maxErr)
	}
}

func TestShifterInvalidModeFails(t *testing.T) {
	if _, err := NewShifter([]float64{1, 2, 3}, 44100, Mode(7)); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("NewShifter error = %v, want ErrInvalidMode", err)
	}
}
