// Package onset implements OnsetAnalyser, which turns a detector bank's
// cached magnitude stream into note onset sample indices by watching for
// a sustained rise in cross-channel mean log magnitude.
package onset

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Cache is the slice of DetectorCache that OnsetAnalyser needs: the
// per-channel, per-sample magnitude lookup and the cache's shape.
type Cache interface {
	Channels() int
	SegmentLen() int
	Result(ch, n int) (float64, error)
}

// threshold is the minimum §4.8 step-2 means[-2] (in log space) a rise
// must clear to be considered; a quiet tail never triggers an onset.
const threshold = 1e-6

// Analyser watches a Cache's segment-averaged log magnitude for
// sustained rises and reports their onset sample indices (§4.8).
type Analyser struct {
	cache   Cache
	pad     int // leading pad offset P, in samples
	sr      int
	more    func(block int) bool
	means   []float64
	block   int
}

// New constructs an Analyser over cache. pad is the number of leading
// padding samples to subtract from reported onsets (clamped at zero);
// sr is the audio sample rate, used to size the back-track windows.
// more reports whether block (0-indexed) has data to analyse; callers
// typically derive it from the same producer driving cache.
func New(cache Cache, pad, sr int, more func(block int) bool) *Analyser {
	return &Analyser{cache: cache, pad: pad, sr: sr, more: more}
}

// Onset is one detected rise, with its sample index already adjusted for
// the leading pad and clamped to zero.
type Onset struct {
	Sample int
}

// Run scans every available segment and returns the onsets found (§4.8).
func (a *Analyser) Run() ([]Onset, error) {
	var onsets []Onset
	L := a.cache.SegmentLen()
	C := a.cache.Channels()

	for a.more(a.block) {
		segMean, err := a.segmentMean(a.block, L, C)
		if err != nil {
			return nil, err
		}
		a.means = append(a.means, segMean)

		if len(a.means) >= 3 {
			last := a.means[len(a.means)-1]
			prev := a.means[len(a.means)-2]
			if last < prev && prev >= math.Log(threshold) {
				if prev-a.means[0] >= math.Log(2) {
					start := (a.block - len(a.means)) * L
					i := largestAdjacentIncreaseIndex(a.means)
					stop := start + i*L
					found, sample := a.findExact(start, stop)
					if found {
						s := sample - a.pad
						if s < 0 {
							s = 0
						}
						onsets = append(onsets, Onset{Sample: s})
					}
				}
				a.means = a.means[:0]
			}
		}
		a.block++
	}
	return onsets, nil
}

// segmentMean computes seg_mean for block (§4.8 step 2), treating zero
// magnitudes as contributing zero (not -Inf) to the log sum.
func (a *Analyser) segmentMean(block, L, C int) (float64, error) {
	var sum float64
	for k := 0; k < C; k++ {
		for t := 0; t < L; t++ {
			m, err := a.cache.Result(k, block*L+t)
			if err != nil {
				return 0, err
			}
			if m > 0 {
				sum += math.Log(m)
			}
		}
	}
	return sum / float64(C*L), nil
}

// largestAdjacentIncreaseIndex returns the index i such that
// means[i+1]-means[i] is largest, i.e. the sharpest rise inside the
// window means tracks.
func largestAdjacentIncreaseIndex(means []float64) int {
	best, bestDelta := 0, math.Inf(-1)
	for i := 0; i+1 < len(means); i++ {
		if d := means[i+1] - means[i]; d > bestDelta {
			bestDelta = d
			best = i
		}
	}
	return best
}

// findExact refines [start, stop) to the precise sample where the rise
// begins, by sliding a trailing window backwards until its mean catches
// up with the current sample's cross-channel mean log magnitude
// (§4.8 find_exact).
func (a *Analyser) findExact(start, stop int) (bool, int) {
	N := int(math.Round(0.075 * float64(a.sr)))
	M := int(math.Round(0.01 * float64(a.sr)))
	lowerBound := start - int(math.Round(0.1*float64(a.sr)))
	if lowerBound < 0 {
		lowerBound = 0
	}

	current, err := a.crossChannelMeanLog(stop)
	if err != nil {
		return false, stop
	}

	window := make([]float64, 0, N)
	for i := stop - N; i < stop; i++ {
		v, err := a.crossChannelMeanLog(i)
		if err != nil {
			return false, stop
		}
		window = append(window, v)
	}
	windowMean := average(window)

	for stop-N > lowerBound && windowMean < current {
		stop--
		dropped := window[len(window)-1]
		older, err := a.crossChannelMeanLog(stop - N)
		if err != nil {
			return false, stop
		}
		window = append([]float64{older}, window[:len(window)-1]...)
		windowMean += (older - dropped) / float64(N)
		current, err = a.crossChannelMeanLog(stop)
		if err != nil {
			return false, stop
		}
	}

	minIdx, minVal := stop, math.Inf(1)
	for i := stop - M; i < stop; i++ {
		v, err := a.crossChannelMeanLog(i)
		if err != nil {
			continue
		}
		if v < minVal {
			minVal = v
			minIdx = i
		}
	}

	ratio := current / minVal
	if math.IsNaN(ratio) || ratio >= 0.95 {
		return true, stop
	}
	return true, minIdx
}

func (a *Analyser) crossChannelMeanLog(n int) (float64, error) {
	C := a.cache.Channels()
	var sum float64
	for k := 0; k < C; k++ {
		m, err := a.cache.Result(k, n)
		if err != nil {
			return 0, err
		}
		if m > 0 {
			sum += math.Log(m)
		}
	}
	return sum / float64(C), nil
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return floats.Sum(xs) / float64(len(xs))
}
