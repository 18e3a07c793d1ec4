package cache

import (
	"fmt"

	"github.com/resonare/detectbank"
)

// bankSource is the subset of *detectbank.DetectorBank the cache needs;
// narrowed to an interface so tests can substitute a fake bank.
type bankSource interface {
	Channels() int
	Tell() int
	InputLen() int
	GetZ(out []complex128, chans, frames, startChan int) (int, error)
	AbsZ(out []float64, chans, frames int, in []complex128, maxThreads int) float64
}

// detectorProducer implements Producer[[]float64] over a DetectorBank,
// producing one time-block of C channel-rows per call (§4.7).
type detectorProducer struct {
	bank      bankSource
	segLen    int // L: samples per channel per block
	startChan int
	chans     int // C: channels in this cache
}

// Generate runs the bank forward by segLen samples across p.chans
// channels, splitting the channel-major complex output into one
// length-segLen magnitude slice per channel (§4.7 step 1-2).
func (p *detectorProducer) Generate(out [][]float64, origin int) int {
	z := make([]complex128, p.chans*p.segLen)
	n, err := p.bank.GetZ(z, p.chans, p.segLen, p.startChan)
	if err != nil || n == 0 {
		for c := range out {
			out[c] = nil
		}
		return 0
	}
	mag := make([]float64, p.chans*p.segLen)
	p.bank.AbsZ(mag, p.chans, p.segLen, z, 0)
	for c := 0; c < p.chans; c++ {
		out[c] = mag[c*p.segLen : c*p.segLen+n]
	}
	return p.chans
}

func (p *detectorProducer) More() bool { return p.bank.Tell() < p.bank.InputLen() }

// DetectorCache caches a DetectorBank's magnitude stream as fixed-length
// time blocks across a fixed channel range (§4.7), so repeated reads of
// recent history don't re-run the bank.
type DetectorCache struct {
	inner     *SegmentedCache[[]float64]
	producer  *detectorProducer
	segLen    int // L
	chans     int // C
	startChan int
	inputLen  int
}

// NewDetectorCache constructs a DetectorCache over bank, retaining
// numSegs historical time-blocks of segLen samples each, covering chans
// channels starting at startChan.
func NewDetectorCache(bank bankSource, numSegs, segLen, startChan, chans int) *DetectorCache {
	p := &detectorProducer{bank: bank, segLen: segLen, startChan: startChan, chans: chans}
	return &DetectorCache{
		inner:     New[[]float64](chans, numSegs, p),
		producer:  p,
		segLen:    segLen,
		chans:     chans,
		startChan: startChan,
		inputLen:  bank.InputLen(),
	}
}

// Result returns the magnitude for channel ch at absolute sample index n
// (§4.7 result). n past the bank's total input length returns 0 rather
// than erroring; n < 0 fails with ErrNegativeIndex.
func (c *DetectorCache) Result(ch, n int) (float64, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeIndex, n)
	}
	if n >= c.inputLen {
		return 0, nil
	}
	blk := n / c.segLen
	idx := ch + blk*c.chans
	row, err := c.inner.Get(idx)
	if err != nil {
		return 0, err
	}
	t := n % c.segLen
	if t >= len(row) {
		return 0, nil
	}
	return row[t], nil
}

// CopyPrior copies len(out) magnitudes from channel ch ending at currentN
// inclusive into out. Fails with
// ErrExpiredIndex if the span reaches earlier than the cache's retained
// window (§4.7 copy_prior).
func (c *DetectorCache) CopyPrior(ch, currentN int, out []float64) error {
	count := len(out)
	start := currentN - count + 1
	if start < 0 {
		return fmt.Errorf("%w: copy_prior span starts before sample 0", ErrExpiredIndex)
	}
	for i := 0; i < count; i++ {
		v, err := c.Result(ch, start+i)
		if err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

// Channels returns the number of channels this cache covers.
func (c *DetectorCache) Channels() int { return c.chans }

// SegmentLen returns the time-block length L in samples.
func (c *DetectorCache) SegmentLen() int { return c.segLen }

var _ bankSource = (*detectbank.DetectorBank)(nil)
