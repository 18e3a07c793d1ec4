package detectbank

import (
	"fmt"
	"runtime"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/resonare/detectbank/types"
	"github.com/resonare/detectbank/workerpool"
)

// BankConfig parametrizes a DetectorBank (§4.5).
type BankConfig struct {
	SampleRate  int
	Frequencies []float64
	Bandwidths  []float64 // nil means minimum-bandwidth (all zero) for every detector
	NumThreads  int       // 0 selects runtime.GOMAXPROCS(0)
	Features    types.FeatureSet
	Damping     float64
	Gain        float64 // audio input gain; 0 defaults to 1
}

// detectorComponent records how one detector's signal view was derived
// (§4.5 "detector_components" / §9 ownership graph).
type detectorComponent struct {
	fIn       float64
	fActual   float64
	signal    []float64
	bandwidth float64
	band      int // heterodyne band n, or -1 if unshifted
}

// DetectorBank runs a bank of Detectors, each tuned to one characteristic
// frequency, concurrently over a shared audio input (§4.5). Not safe for
// concurrent use by multiple goroutines beyond the internal worker pool.
type DetectorBank struct {
	sampleRate int
	damping    float64
	features   types.FeatureSet
	gain       float64
	modF       float64

	input      []float64 // amplified working signal
	heterodyne *heterodynePool

	detectors  []*Detector
	components []detectorComponent

	pool    *workerpool.Pool
	cursor  int
}

// NewDetectorBank constructs a bank over in (§4.5 construction steps
// 1-5). Passing a nil bandwidths slice in cfg requests minimum-bandwidth
// (zero) detectors for every channel.
func NewDetectorBank(cfg BankConfig, in []float64) (*DetectorBank, error) {
	if !types.IsSupportedSampleRate(cfg.SampleRate) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, cfg.SampleRate)
	}
	n := len(cfg.Frequencies)
	bw := cfg.Bandwidths
	if bw == nil {
		bw = make([]float64, n)
	}
	if len(bw) != n {
		return nil, fmt.Errorf("%w: %d frequencies, %d bandwidths", ErrDetectorCountMismatch, n, len(bw))
	}
	variant := cfg.Features.Integrator()
	for i, b := range bw {
		if variant == types.CentralDifference && b != 0 {
			return nil, fmt.Errorf("%w: detector %d: central-difference requires bandwidth 0, got %g", ErrInvalidBandwidth, i, b)
		}
	}

	gain := cfg.Gain
	if gain == 0 {
		gain = 1
	}
	numThreads := cfg.NumThreads
	if numThreads <= 0 {
		numThreads = runtime.GOMAXPROCS(0)
	}

	b := &DetectorBank{
		sampleRate: cfg.SampleRate,
		damping:    cfg.Damping,
		features:   cfg.Features,
		gain:       gain,
		pool:       workerpool.New(numThreads),
	}

	b.input = amplify(in, gain)

	searchNormalized := cfg.Features.FreqNorm() == types.FreqSearchNormalized
	solver := uint32(1)
	if variant == types.CentralDifference {
		solver = 2
	}
	b.modF = modFTable[featureSolverNorm(solver, searchNormalized)]

	if err := b.setComponents(cfg.Frequencies, bw, true); err != nil {
		b.pool.Close()
		return nil, err
	}

	if err := b.makeDetectors(cfg.Frequencies, bw); err != nil {
		b.pool.Close()
		return nil, err
	}

	return b, nil
}

func amplify(in []float64, gain float64) []float64 {
	if gain == 1 {
		return in
	}
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = x * gain
	}
	return out
}

// setComponents builds (or rebuilds, when makeNew is false) the
// per-detector signal views, lazily materialising heterodyned buffers for
// any band whose index hasn't been seen yet (§4.5 step 4).
func (b *DetectorBank) setComponents(freqs, bw []float64, makeNew bool) error {
	needsShift := false
	for _, f := range freqs {
		if int(f/b.modF) != 0 {
			needsShift = true
			break
		}
	}
	if needsShift && b.heterodyne == nil {
		pool, err := newHeterodynePool(b.input, b.sampleRate)
		if err != nil {
			return err
		}
		b.heterodyne = pool
	}

	if makeNew {
		b.components = make([]detectorComponent, len(freqs))
	}

	for i, f := range freqs {
		n := int(f / b.modF)
		if n == 0 {
			b.components[i] = detectorComponent{fIn: f, fActual: f, signal: b.input, bandwidth: bw[i], band: -1}
			continue
		}
		buf, shift := b.heterodyne.view(n, b.modF, len(b.input))
		b.components[i] = detectorComponent{fIn: f, fActual: f + shift, signal: buf, bandwidth: bw[i], band: n}
	}
	return nil
}

// makeDetectors allocates the bank's detectors and applies the requested
// normalisation and static scaling (§4.5 step 5).
func (b *DetectorBank) makeDetectors(freqs, bw []float64) error {
	variant := b.features.Integrator()
	searchNormalized := b.features.FreqNorm() == types.FreqSearchNormalized
	ampNormalized := b.features.AmpNorm() == types.AmpNormalized

	b.detectors = make([]*Detector, len(freqs))
	for i := range freqs {
		cfg := DetectorConfig{
			SampleRate: b.sampleRate,
			Frequency:  b.components[i].fActual,
			Damping:    b.damping,
			Bandwidth:  bw[i],
			Variant:    variant,
			Gain:       b.gain,
		}
		d, err := NewDetector(cfg)
		if err != nil {
			return err
		}
		if searchNormalized {
			d.SearchNormalize(0.92, 1.08, 3.0, b.gain)
		}
		if ampNormalized {
			if err := d.AmplitudeNormalize(b.gain); err != nil {
				return err
			}
		}
		d.ScaleAmplitude()
		b.detectors[i] = d
	}
	return nil
}

// Channels returns the number of detectors in the bank.
func (b *DetectorBank) Channels() int { return len(b.detectors) }

// Tell returns the index of the next input sample to be processed.
func (b *DetectorBank) Tell() int { return b.cursor }

// InputLen returns the length of the bank's current input buffer.
func (b *DetectorBank) InputLen() int { return len(b.input) }

// Detector returns the channel's underlying Detector for inspection
// (frequency, scale factors, normalisation outcome).
func (b *DetectorBank) Detector(ch int) *Detector { return b.detectors[ch] }

// getZJob carries one worker's share of channels for a GetZ call.
type getZJob struct {
	firstChannel int
	numChannels  int
	out          []complex128
	framesPerCh  int
	numFrames    int
	startCursor  int
}

// GetZ writes up to frames complex samples per channel, channel-major,
// starting at startChan (§4.5 getZ). Returns the number of frames
// actually processed; 0 at end of input without advancing the cursor.
func (b *DetectorBank) GetZ(out []complex128, chans, frames, startChan int) (int, error) {
	numDetectors := len(b.detectors)
	if chans > numDetectors {
		chans = numDetectors
	}
	framesToDo := frames
	if remaining := len(b.input) - b.cursor; framesToDo > remaining {
		framesToDo = remaining
	}
	if framesToDo <= 0 {
		return 0, nil
	}

	maxThreads := b.pool.Workers()
	chansPerThread := chans / maxThreads
	extra := chans % maxThreads

	jobs := make([]getZJob, 0, maxThreads)
	startChannel := startChan
	for t := 0; t < maxThreads; t++ {
		chansThisThread := chansPerThread
		if t < extra {
			chansThisThread++
		}
		if chansThisThread > 0 {
			jobs = append(jobs, getZJob{
				firstChannel: startChannel,
				numChannels:  chansThisThread,
				out:          out,
				framesPerCh:  frames,
				numFrames:    framesToDo,
				startCursor:  b.cursor,
			})
		}
		startChannel += chansThisThread
	}

	err := b.pool.Run(len(jobs), func(i int) error {
		j := jobs[i]
		for c := j.firstChannel; c < j.firstChannel+j.numChannels; c++ {
			target := j.out[j.framesPerCh*c : j.framesPerCh*c+j.numFrames]
			source := b.components[c].signal[j.startCursor : j.startCursor+j.numFrames]
			b.detectors[c].ProcessAudio(source, target)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	b.cursor += framesToDo
	return framesToDo, nil
}

// absZJob carries one worker's share of the flat magnitude buffer.
type absZJob struct {
	start, end int
}

// AbsZ fills out[i] = |in[i]| for i in [0, chans*frames), splitting the
// work across maxThreads goroutines (0 selects the bank's configured
// thread count), and returns the global maximum magnitude (§4.5 absZ).
func (b *DetectorBank) AbsZ(out []float64, chans, frames int, in []complex128, maxThreads int) float64 {
	n := chans * frames
	threads := maxThreads
	if threads <= 0 {
		threads = b.pool.Workers()
	}
	if threads > n {
		threads = n
	}
	if threads <= 0 {
		threads = 1
	}

	chunk := n / threads
	extra := n % threads
	jobs := make([]absZJob, 0, threads)
	start := 0
	for t := 0; t < threads; t++ {
		size := chunk
		if t < extra {
			size++
		}
		if size > 0 {
			jobs = append(jobs, absZJob{start: start, end: start + size})
		}
		start += size
	}

	maxima := make([]float64, len(jobs))
	_ = b.pool.Run(len(jobs), func(i int) error {
		j := jobs[i]
		var mx float64
		for k := j.start; k < j.end; k++ {
			m := cAbs(in[k])
			out[k] = m
			if m > mx {
				mx = m
			}
		}
		maxima[i] = mx
		return nil
	})

	if len(maxima) == 0 {
		return 0
	}
	return floats.Max(maxima)
}

// Seek moves the cursor to offset (negative values count back from the
// end of the input). Seeking to 0 also resets every detector's
// integrator state. Returns false if offset is out of range.
func (b *DetectorBank) Seek(offset int) bool {
	target := offset
	if offset < 0 {
		target = len(b.input) + offset
	}
	if target < 0 || target > len(b.input) {
		return false
	}
	b.cursor = target
	if offset == 0 {
		for _, d := range b.detectors {
			d.Reset()
		}
	}
	return true
}

// SetInputBuffer rebinds the bank to a new input without recreating any
// detector (§4.5 set_input_buffer). Clears the heterodyne pool and
// rebuilds per-detector signal views over the new buffer.
func (b *DetectorBank) SetInputBuffer(in []float64) error {
	b.input = amplify(in, b.gain)
	b.cursor = 0
	if b.heterodyne != nil {
		// The pool's shifter holds the old input's analytic signal, so the
		// pool is dropped; setComponents builds a new one over the new
		// input when a detector needs a shifted band.
		b.heterodyne.clear()
		b.heterodyne = nil
	}
	freqs := make([]float64, len(b.components))
	bw := make([]float64, len(b.components))
	for i, c := range b.components {
		freqs[i] = c.fIn
		bw[i] = c.bandwidth
	}
	return b.setComponents(freqs, bw, false)
}

// Close drains and tears down the bank's worker pool. A DetectorBank
// must not be used after Close.
func (b *DetectorBank) Close() { b.pool.Close() }

// featureNames maps each human-readable feature name to its Features bits
// (§6 profile store human feature names).
var featureNames = map[string]types.FeatureSet{
	"Central difference method":  types.FeatureSet(types.CentralDifference),
	"Runge-Kutta method":         types.FeatureSet(types.RungeKutta4),
	"Frequency unnormalized":     types.FeatureSet(types.FreqUnnormalized) << 8,
	"Search-normalized":          types.FeatureSet(types.FreqSearchNormalized) << 8,
	"Amplitude unnormalized":     types.FeatureSet(types.AmpUnnormalized) << 16,
	"Amplitude normalized":       types.FeatureSet(types.AmpNormalized) << 16,
}

// featuresToString renders the bank's features as the comma-separated
// human-readable names the profile archive format uses (§6).
func featuresToString(f types.FeatureSet) string {
	order := []string{
		"Central difference method", "Runge-Kutta method",
		"Frequency unnormalized", "Search-normalized",
		"Amplitude unnormalized", "Amplitude normalized",
	}
	var parts []string
	for _, name := range order {
		bit := featureNames[name]
		mask := bit
		switch {
		case bit == types.FeatureSet(types.CentralDifference) || bit == types.FeatureSet(types.RungeKutta4):
			mask = 0xFF
		case bit == types.FeatureSet(types.FreqUnnormalized)<<8 || bit == types.FeatureSet(types.FreqSearchNormalized)<<8:
			mask = 0xFF00
		default:
			mask = 0xFF0000
		}
		if f&mask == bit {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ",")
}

// stringToFeatures parses featuresToString's output back into a
// FeatureSet, failing if desc names an unrecognised feature or is empty.
func stringToFeatures(desc string) (types.FeatureSet, error) {
	var f types.FeatureSet
	count := 0
	for _, part := range strings.Split(desc, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		bit, ok := featureNames[name]
		if !ok {
			return 0, fmt.Errorf("%w: unrecognised feature %q", ErrProfileMalformed, name)
		}
		f |= bit
		count++
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: empty feature list", ErrProfileMalformed)
	}
	return f, nil
}
