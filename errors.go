package detectbank

import "errors"

// Construction and argument validation errors (§7, INVALID_ARGUMENT).
var (
	ErrInvalidSampleRate  = errors.New("detectbank: invalid sample rate (must be 44100 or 48000)")
	ErrInvalidBandwidth   = errors.New("detectbank: invalid bandwidth")
	ErrInvalidDamping     = errors.New("detectbank: damping outside [1e-4, 5e-4]")
	ErrInvalidFrequency   = errors.New("detectbank: frequency must be > 0")
	ErrDetectorCountMismatch = errors.New("detectbank: frequency/bandwidth slice length mismatch")
)

// ErrNormalizationFailed reports that search normalisation could not
// bracket the peak response (§4.4.1, §7 NORMALISATION_FAILED). From
// search normalisation it is non-fatal: the detector keeps its last omega
// and bank construction continues. AmplitudeNormalize also returns it when
// the probe response is zero throughout; that return fails bank
// construction.
var ErrNormalizationFailed = errors.New("detectbank: search normalization failed to bracket peak response")

// Profile-store errors (§7).
var (
	ErrProfileNotFound         = errors.New("detectbank: profile not found")
	ErrProfileProtocolMismatch = errors.New("detectbank: profile protocol tag mismatch")
	ErrProfileMalformed        = errors.New("detectbank: profile archive malformed")
)
