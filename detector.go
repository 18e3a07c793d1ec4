package detectbank

import (
	"fmt"
	"math"

	"github.com/resonare/detectbank/types"
)

// DetectorConfig parametrizes a single oscillator.
type DetectorConfig struct {
	SampleRate int
	Frequency  float64 // nominal characteristic frequency in Hz
	Damping    float64 // d, must lie in [1e-4, 5e-4]
	Bandwidth  float64 // bw >= 0; must be 0 for CentralDifference
	Variant    types.Integrator
	Gain       float64 // the bank's forcing gain, used to derive b; 0 defaults to 1
}

// Detector is one resonant oscillator tuned to one characteristic
// frequency, evaluated with one of two numerical integrators. Detector is
// not safe for concurrent use by multiple goroutines on the same instance;
// a DetectorBank gives each channel its own Detector.
type Detector struct {
	omega     float64 // angular frequency, 2*pi*f; mutable under search normalization
	mu        float64
	damping   float64
	sampleRate int
	bandwidth float64
	gain      float64
	b         float64
	variant   types.Integrator

	a      complex128 // amplitude scale, set by amplitude normalization (1 until normalized)
	iScale float64    // imaginary-axis correction, 1 until amplitude normalization runs
	scale  complex128 // static scale factor from the lookup tables, 1 until ScaleAmplitude runs
	normalized bool    // true once amplitude normalization has completed

	// NormalizationFailed and LastNormalizationErr record the non-fatal
	// outcome of search normalization (§4.4.1, §7 NORMALISATION_FAILED):
	// a failed search leaves omega at its last value and normal bank
	// operation continues.
	NormalizationFailed bool
	LastNormalizationErr error

	// integrator state: last two complex outputs, last two real inputs.
	zPrev1, zPrev2 complex128
	xPrev1, xPrev2 float64
}

// NewDetector validates cfg and constructs a Detector. mu defaults to 0
// (critical Hopf bifurcation point); callers that need off-critical
// detectors can set Mu via SetMu after construction.
func NewDetector(cfg DetectorConfig) (*Detector, error) {
	if !types.IsSupportedSampleRate(cfg.SampleRate) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, cfg.SampleRate)
	}
	if cfg.Frequency <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidFrequency, cfg.Frequency)
	}
	if cfg.Damping < 1e-4 || cfg.Damping > 5e-4 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidDamping, cfg.Damping)
	}
	gain := cfg.Gain
	if gain == 0 {
		gain = 1
	}
	b, err := computeB(cfg.Variant, cfg.Bandwidth, gain)
	if err != nil {
		return nil, err
	}
	return &Detector{
		omega:      2 * math.Pi * cfg.Frequency,
		mu:         0,
		damping:    cfg.Damping,
		sampleRate: cfg.SampleRate,
		bandwidth:  cfg.Bandwidth,
		gain:       gain,
		b:          b,
		variant:    cfg.Variant,
		a:          1,
		iScale:     1,
		scale:      1,
	}, nil
}

// computeB derives the first Lyapunov coefficient by scaling the
// empirical value found at a forcing amplitude of 25 (amp is the
// detector's forcing gain, i.e. the bank's gain). A CentralDifference
// detector always carries b=0 (Open Question §9: the source sets b=0
// unconditionally for CD, and the construction-time guard below already
// forces bw=0 for CD, so the two never disagree). RK4 derives b from the
// requested bandwidth and gain.
func computeB(variant types.Integrator, bw, amp float64) (float64, error) {
	if bw < 0 {
		return 0, fmt.Errorf("%w: %g", ErrInvalidBandwidth, bw)
	}
	if variant == types.CentralDifference {
		if bw != 0 {
			return 0, fmt.Errorf("%w: central-difference requires bandwidth 0, got %g", ErrInvalidBandwidth, bw)
		}
		return 0, nil
	}
	if bw == 0 {
		return 0, nil
	}
	return -12.5 * bw * bw * bw / (amp * amp), nil
}

// Frequency returns the detector's current characteristic frequency in Hz
// (omega / 2*pi). Search normalization may have adjusted this from the
// value NewDetector was constructed with.
func (d *Detector) Frequency() float64 { return d.omega / (2 * math.Pi) }

// Omega returns the detector's current angular frequency.
func (d *Detector) Omega() float64 { return d.omega }

// Mu returns the detector's control parameter.
func (d *Detector) Mu() float64 { return d.mu }

// SetMu sets the control parameter (distance from the Hopf bifurcation).
func (d *Detector) SetMu(mu float64) { d.mu = mu }

// Variant reports which integrator this detector uses.
func (d *Detector) Variant() types.Integrator { return d.variant }

// Bandwidth returns the configured bandwidth.
func (d *Detector) Bandwidth() float64 { return d.bandwidth }

// AmplitudeScale returns the current complex amplitude scale a.
func (d *Detector) AmplitudeScale() complex128 { return d.a }

// IScale returns the current imaginary-axis correction factor.
func (d *Detector) IScale() float64 { return d.iScale }

// Scale returns the current static scale factor (§4.4.3).
func (d *Detector) Scale() complex128 { return d.scale }

// Normalized reports whether amplitude normalization has completed.
func (d *Detector) Normalized() bool { return d.normalized }

// Reset zeroes the integrator's state (last outputs and inputs), exactly
// as a fresh Detector would start, without touching omega/mu/scale/etc.
func (d *Detector) Reset() {
	d.zPrev1, d.zPrev2 = 0, 0
	d.xPrev1, d.xPrev2 = 0, 0
}

// step advances the integrator by one sample, returning the raw (not yet
// amplitude/static-scaled) complex output.
func (d *Detector) step(x float64) complex128 {
	var z complex128
	switch d.variant {
	case types.CentralDifference:
		z = d.stepCD(x)
	default:
		z = d.stepRK4(x)
	}
	d.zPrev2 = d.zPrev1
	d.zPrev1 = z
	d.xPrev2 = d.xPrev1
	d.xPrev1 = x
	return z
}

// postProcess applies §4.4's post-processing chain to a raw integrator
// output: multiply by the amplitude scale and the static scale factor,
// then replace the imaginary part with im*iScale.
func (d *Detector) postProcess(z complex128) complex128 {
	z *= d.a * d.scale
	return complex(real(z), imag(z)*d.iScale)
}

// ProcessAudio runs the detector over in, writing one post-processed
// complex output per input sample into out. len(out) must be >= len(in).
func (d *Detector) ProcessAudio(in []float64, out []complex128) {
	for i, x := range in {
		out[i] = d.postProcess(d.step(x))
	}
}
