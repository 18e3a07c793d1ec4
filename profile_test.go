package detectbank

import (
	"errors"
	"testing"

	"github.com/resonare/detectbank/types"
)

func TestSaveLoadProfileRoundTrip(t *testing.T) {
	in := sine(440, 0.5, 44100)
	b, err := NewDetectorBank(BankConfig{
		SampleRate: 44100, Frequencies: []float64{440},
		Features: types.Make(types.RungeKutta4, types.FreqUnnormalized, types.AmpUnnormalized),
		Damping:  1e-4, Gain: 1,
	}, in)
	if err != nil {
		t.Fatalf("NewDetectorBank: %v", err)
	}
	defer b.Close()

	store := NewMemoryStore()
	if err := b.SaveProfile(store, "test"); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	loaded, err := LoadProfile(store, "test", in)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	defer loaded.Close()

	if loaded.Channels() != b.Channels() {
		t.Errorf("Channels() = %d, want %d", loaded.Channels(), b.Channels())
	}

	out1 := make([]complex128, len(in))
	out2 := make([]complex128, len(in))
	if _, err := b.GetZ(out1, 1, len(in), 0); err != nil {
		t.Fatalf("GetZ (original): %v", err)
	}
	if _, err := loaded.GetZ(out2, 1, len(in), 0); err != nil {
		t.Fatalf("GetZ (loaded): %v", err)
	}
	for i := range out1 {
		if out1[i] != out2[i] {
			t.Fatalf("sample %d differs after round trip: %v vs %v", i, out1[i], out2[i])
		}
	}
}

func TestLoadProfileUnknownNameFails(t *testing.T) {
	store := NewMemoryStore()
	_, err := LoadProfile(store, "missing", sine(440, 0.01, 44100))
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("err = %v, want ErrProfileNotFound", err)
	}
}

func TestLoadProfileProtocolMismatchFails(t *testing.T) {
	store := NewMemoryStore()
	store.Put("bad", `<profile><protocol>wrong-protocol</protocol></profile>`)
	_, err := LoadProfile(store, "bad", sine(440, 0.01, 44100))
	if !errors.Is(err, ErrProfileProtocolMismatch) {
		t.Errorf("err = %v, want ErrProfileProtocolMismatch", err)
	}
}

func TestFeaturesToStringRoundTrip(t *testing.T) {
	f := types.Make(types.RungeKutta4, types.FreqSearchNormalized, types.AmpNormalized)
	s := featuresToString(f)
	got, err := stringToFeatures(s)
	if err != nil {
		t.Fatalf("stringToFeatures(%q): %v", s, err)
	}
	if got != f {
		t.Errorf("round trip = %v, want %v", got, f)
	}
}

func TestStringToFeaturesRejectsUnknownName(t *testing.T) {
	if _, err := stringToFeatures("Not a real feature"); err == nil {
		t.Error("stringToFeatures accepted an unknown feature name")
	}
}
