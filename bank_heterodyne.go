package detectbank

import "github.com/resonare/detectbank/hilbert"

// modF selects the frequency above which a detector is run on a
// heterodyned copy of the input rather than the original (§4.5 step 3,
// GLOSSARY "modF").
var modFTable = map[uint32]float64{
	featureSolverNorm(1, false): 1600, // RK4, unnormalized
	featureSolverNorm(1, true):  2200, // RK4, search-normalized
	featureSolverNorm(2, false): 500,  // CD, unnormalized
	featureSolverNorm(2, true):  700,  // CD, search-normalized
}

func featureSolverNorm(solver uint32, searchNormalized bool) uint32 {
	n := uint32(1)
	if searchNormalized {
		n = 2
	}
	return solver | n<<8
}

// heterodynePool lazily produces and memoises frequency-shifted copies of
// the input signal, keyed by the integer band index n = floor(f/modF)
// (§4.5 step 4, §9 "Ownership graph of heterodyne buffers"). Populated
// only at construction or after SetInputBuffer; thereafter read-only.
type heterodynePool struct {
	buffers map[int][]float64
	shifter *hilbert.Shifter
}

func newHeterodynePool(in []float64, sr int) (*heterodynePool, error) {
	shifter, err := hilbert.NewShifter(in, sr, hilbert.FIR)
	if err != nil {
		return nil, err
	}
	return &heterodynePool{buffers: make(map[int][]float64), shifter: shifter}, nil
}

// view returns the heterodyned buffer for band n, producing and
// memoising it on first use. shift is the frequency offset applied,
// -n*modF + 50 Hz (§4.5 step 4).
func (p *heterodynePool) view(n int, modF float64, numSamples int) ([]float64, float64) {
	shift := -float64(n)*modF + 50
	buf, ok := p.buffers[n]
	if !ok {
		buf = make([]float64, numSamples)
		p.shifter.Shift(shift, buf, numSamples)
		p.buffers[n] = buf
	}
	return buf, shift
}

func (p *heterodynePool) clear() {
	p.buffers = make(map[int][]float64)
}
