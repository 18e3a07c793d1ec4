package detectbank

import (
	"math"
	"testing"

	"github.com/resonare/detectbank/types"
)

func TestSearchNormalizeStaysWithinFiveCentsOfNominal(t *testing.T) {
	d, err := NewDetector(DetectorConfig{
		SampleRate: 44100, Frequency: 440, Damping: 1e-4,
		Bandwidth: 5, Gain: 25, Variant: types.RungeKutta4,
	})
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	d.SearchNormalize(0.92, 1.08, 0.2, 25)
	if d.NormalizationFailed {
		t.Fatalf("SearchNormalize failed: %v", d.LastNormalizationErr)
	}
	ratio := d.Frequency() / 440
	if math.Abs(math.Log(ratio)) > math.Log(normConverged) {
		t.Errorf("adjusted frequency %v too far from nominal 440 (ratio %v)", d.Frequency(), ratio)
	}
}

func TestAmplitudeNormalizeMarksNormalizedWithNonzeroScale(t *testing.T) {
	d, err := NewDetector(DetectorConfig{
		SampleRate: 44100, Frequency: 440, Damping: 1e-4,
		Bandwidth: 0, Gain: 1, Variant: types.RungeKutta4,
	})
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	if err := d.AmplitudeNormalize(1); err != nil {
		t.Fatalf("AmplitudeNormalize: %v", err)
	}
	if !d.Normalized() {
		t.Error("Normalized() = false after successful AmplitudeNormalize")
	}
	if d.AmplitudeScale() == 0 {
		t.Error("AmplitudeScale() is zero after normalization")
	}
}
