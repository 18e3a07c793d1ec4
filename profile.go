package detectbank

import (
	"encoding/xml"
	"fmt"
	"math"

	"github.com/resonare/detectbank/types"
)

// profileProtocol is the fixed literal every archived profile must carry;
// a mismatch on load means the archive predates (or postdates) a format
// this module understands (§6, §7 PROFILE_PROTOCOL_MISMATCH).
const profileProtocol = "detectbank-profile-v1"

// Store is the bank's only dependency on persistence (§9 "Profile store
// as collaborator"): get/put a named, opaque serialised bank description.
// The on-disk format is the store's concern, not the bank's.
type Store interface {
	Get(name string) (string, error)
	Put(name string, value string) error
}

// archivedDetector mirrors one detector's persisted state (§6).
type archivedDetector struct {
	WIn       float64 `xml:"w_in"`
	Bandwidth float64 `xml:"bw"`
	WAdjusted float64 `xml:"w_adjusted"`
	AScaleRe  float64 `xml:"aScale_re"`
	AScaleIm  float64 `xml:"aScale_im"`
	IScale    float64 `xml:"iScale"`
}

// archivedBank is the top-level tree serialised for a profile (§6): a
// fixed protocol tag plus the bank's construction parameters and
// per-detector state.
type archivedBank struct {
	XMLName    xml.Name           `xml:"profile"`
	Protocol   string             `xml:"protocol"`
	SampleRate float64            `xml:"sr"`
	Damping    float64            `xml:"d"`
	Threads    int                `xml:"threads"`
	Features   string             `xml:"featureSet"`
	Gain       float64            `xml:"gain"`
	NumDetectors int              `xml:"numDetectors"`
	Detectors  []archivedDetector `xml:"detector"`
}

// SaveProfile serialises the bank's construction parameters and current
// per-detector state and writes it to store under name.
func (b *DetectorBank) SaveProfile(store Store, name string) error {
	arc := archivedBank{
		Protocol:     profileProtocol,
		SampleRate:   float64(b.sampleRate),
		Damping:      b.damping,
		Threads:      b.pool.Workers(),
		Features:     featuresToString(b.features),
		Gain:         b.gain,
		NumDetectors: len(b.detectors),
	}
	for i, d := range b.detectors {
		arc.Detectors = append(arc.Detectors, archivedDetector{
			WIn:       2 * math.Pi * b.components[i].fIn,
			Bandwidth: d.Bandwidth(),
			WAdjusted: d.Omega(),
			AScaleRe:  real(d.AmplitudeScale()),
			AScaleIm:  imag(d.AmplitudeScale()),
			IScale:    d.IScale(),
		})
	}
	buf, err := xml.MarshalIndent(arc, "", "  ")
	if err != nil {
		return fmt.Errorf("detectbank: marshalling profile %q: %w", name, err)
	}
	return store.Put(name, string(buf))
}

// LoadProfile reads a profile from store, rebuilding a DetectorBank from
// scratch over in and reconstructing heterodyne views (§4.5
// Serialisation). The rebuild runs whatever normalisation the archived
// features select; each detector's omega, aScale and iScale are then
// overwritten with the archived w_adjusted/aScale/iScale values.
func LoadProfile(store Store, name string, in []float64) (*DetectorBank, error) {
	raw, err := store.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrProfileNotFound, name, err)
	}
	var arc archivedBank
	if err := xml.Unmarshal([]byte(raw), &arc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileMalformed, err)
	}
	if arc.Protocol != profileProtocol {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrProfileProtocolMismatch, arc.Protocol, profileProtocol)
	}
	if len(arc.Detectors) != arc.NumDetectors {
		return nil, fmt.Errorf("%w: declared %d detectors, archived %d", ErrProfileMalformed, arc.NumDetectors, len(arc.Detectors))
	}

	features, err := stringToFeatures(arc.Features)
	if err != nil {
		return nil, err
	}

	freqs := make([]float64, len(arc.Detectors))
	bw := make([]float64, len(arc.Detectors))
	for i, ad := range arc.Detectors {
		freqs[i] = ad.WIn / (2 * math.Pi)
		bw[i] = ad.Bandwidth
	}

	cfg := BankConfig{
		SampleRate:  int(arc.SampleRate),
		Frequencies: freqs,
		Bandwidths:  bw,
		NumThreads:  arc.Threads,
		Features:    features,
		Damping:     arc.Damping,
		Gain:        arc.Gain,
	}
	bank, err := NewDetectorBank(cfg, in)
	if err != nil {
		return nil, err
	}

	for i, ad := range arc.Detectors {
		d := bank.detectors[i]
		d.omega = ad.WAdjusted
		d.a = complex(ad.AScaleRe, ad.AScaleIm)
		d.iScale = ad.IScale
		d.normalized = features.AmpNorm() == types.AmpNormalized
		d.ScaleAmplitude()
	}
	return bank, nil
}
