package detectbank

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/resonare/detectbank/types"
)

// Normalisation constants (§4.4.1, §9 "Normalisation as nested construction").
const (
	maxNormIterations = 100
	// normConverged is 2^(1/240), five cents — the search bracket's
	// convergence threshold.
	normConverged = 1.0028922878693671
)

// SearchNormalize re-tunes the detector's omega so its peak response
// lands exactly on its nominal frequency (§4.4.1). alpha and beta bound
// the initial search window as fractions of the nominal frequency
// (defaults 0.92 and 1.08); duration is the probe tone length in
// seconds. Failure is reported via NormalizationFailed/LastNormalizationErr
// and is not fatal: omega is left at its last value.
func (d *Detector) SearchNormalize(alpha, beta, duration, gain float64) {
	f0 := d.Frequency()
	lo, hi := alpha*f0, beta*f0
	tone := sineTone(f0, duration, d.sampleRate)

	lowMag, midMag, highMag, err := bracketSearchTones(d, lo, f0, hi, tone, gain)
	if err != nil {
		d.NormalizationFailed = true
		d.LastNormalizationErr = err
		return
	}
	if midMag <= lowMag || midMag <= highMag {
		d.NormalizationFailed = true
		d.LastNormalizationErr = ErrNormalizationFailed
		return
	}

	for iter := 0; iter < maxNormIterations; iter++ {
		if hi/lo < normConverged {
			break
		}
		mid := (lo + hi) / 2
		lowMag, highMag, err = bracketPairTones(d, lo, hi, tone, gain)
		if err != nil {
			d.NormalizationFailed = true
			d.LastNormalizationErr = err
			return
		}
		if lowMag < highMag {
			lo = (lo + mid) / 2
		} else {
			hi = (hi + mid) / 2
		}
	}

	d.omega = 2 * math.Pi * (lo + hi) / 2
	d.NormalizationFailed = false
	d.LastNormalizationErr = nil
}

// bracketSearchTones builds the initial three-detector bank {lo, f0, hi}
// and measures each response's peak magnitude over the tail window
// [0.75T, 0.9T] of the fixed probe tone at f0. The same tone buffer is
// reused for every iteration of the bracket-narrowing loop: the search
// holds the forcing frequency fixed and sweeps the detectors' tuned
// frequencies against it (detectors.cpp:111-220).
func bracketSearchTones(d *Detector, lo, f0, hi float64, tone []float64, gain float64) (lowMag, midMag, highMag float64, err error) {
	mags, err := unnormalizedResponsePeaks(d, []float64{lo, f0, hi}, tone, gain)
	if err != nil {
		return 0, 0, 0, err
	}
	return mags[0], mags[1], mags[2], nil
}

// bracketPairTones probes the current {lo, hi} pair against the same
// fixed probe tone generated once in SearchNormalize.
func bracketPairTones(d *Detector, lo, hi float64, tone []float64, gain float64) (lowMag, highMag float64, err error) {
	mags, err := unnormalizedResponsePeaks(d, []float64{lo, hi}, tone, gain)
	if err != nil {
		return 0, 0, err
	}
	return mags[0], mags[1], nil
}

// unnormalizedResponsePeaks builds a nested DetectorBank over freqs with
// normalisation disabled (to avoid recursion, §9), forced at gain (the
// bank's real configured gain, per detectorbank.cpp:293,298), and returns
// each channel's peak magnitude over the tail window [0.75T, 0.9T].
func unnormalizedResponsePeaks(d *Detector, freqs []float64, tone []float64, gain float64) ([]float64, error) {
	cfg := BankConfig{
		SampleRate: d.sampleRate,
		Frequencies: freqs,
		Bandwidths:  make([]float64, len(freqs)),
		NumThreads:  0,
		Features:    types.Make(d.variant, types.FreqUnnormalized, types.AmpUnnormalized),
		Damping:     d.damping,
		Gain:        gain,
	}
	bank, err := NewDetectorBank(cfg, tone)
	if err != nil {
		return nil, err
	}
	defer bank.Close()

	z := make([]complex128, len(freqs)*len(tone))
	if _, err := bank.GetZ(z, len(freqs), len(tone), 0); err != nil {
		return nil, err
	}
	mag := make([]float64, len(z))
	bank.AbsZ(mag, len(freqs), len(tone), z, 0)

	lo := int(0.75 * float64(len(tone)))
	hi := int(0.9 * float64(len(tone)))
	peaks := make([]float64, len(freqs))
	for c := range freqs {
		base := c * len(tone)
		peaks[c] = floats.Max(mag[base+lo : base+hi])
	}
	return peaks, nil
}

// AmplitudeNormalize sets the detector's complex amplitude scale a and
// imaginary-axis correction iScale (§4.4.2) from a 60-second probe tone at
// the detector's current (possibly search-adjusted) frequency.
func (d *Detector) AmplitudeNormalize(gain float64) error {
	const probeDuration = 60.0
	f := d.Frequency()
	tone := sineTone(f, probeDuration, d.sampleRate)

	cfg := BankConfig{
		SampleRate:  d.sampleRate,
		Frequencies: []float64{f},
		Bandwidths:  []float64{d.bandwidth},
		NumThreads:  0,
		Features:    types.Make(d.variant, types.FreqUnnormalized, types.AmpUnnormalized),
		Damping:     d.damping,
		Gain:        gain,
	}
	bank, err := NewDetectorBank(cfg, tone)
	if err != nil {
		return err
	}
	defer bank.Close()

	z := make([]complex128, len(tone))
	if _, err := bank.GetZ(z, 1, len(tone), 0); err != nil {
		return err
	}

	peakIdx, peakMag := 0, 0.0
	for i, zi := range z {
		if m := cAbs(zi); m > peakMag {
			peakMag = m
			peakIdx = i
		}
	}
	if peakMag == 0 {
		return ErrNormalizationFailed
	}
	d.a = complex(1, 0) / z[peakIdx]

	// Eccentricity is measured over the tail of the full probe buffer,
	// not around the peak: a Hopf oscillator driven into resonance can
	// overshoot before settling, so anchoring at the peak would measure
	// transient rather than steady-state eccentricity (detectors.cpp:283-295).
	period := float64(d.sampleRate) / f
	nOsc := 5
	start := len(z) - int(float64(nOsc)*period)
	if start < 0 {
		start = 0
	}
	var maxRe, maxIm float64
	for i := start; i < len(z); i++ {
		scaled := z[i] * d.a
		if re := math.Abs(real(scaled)); re > maxRe {
			maxRe = re
		}
		if im := math.Abs(imag(scaled)); im > maxIm {
			maxIm = im
		}
	}
	if maxIm == 0 {
		d.iScale = 1
	} else {
		d.iScale = maxRe / maxIm
	}
	d.normalized = true
	return nil
}

// ScaleAmplitude sets the static scale factor from the lookup tables
// (§4.4.3) for this detector's final frequency.
func (d *Detector) ScaleAmplitude() {
	d.scale = staticScaleFor(d.variant, d.normalized, d.sampleRate, d.Frequency())
}

func sineTone(f, duration float64, sr int) []float64 {
	n := int(duration * float64(sr))
	out := make([]float64, n)
	w := 2 * math.Pi * f / float64(sr)
	for i := range out {
		out[i] = math.Sin(w * float64(i))
	}
	return out
}

func cAbs(z complex128) float64 {
	return math.Hypot(real(z), imag(z))
}
