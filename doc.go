// Package detectbank implements a bank of nonlinear resonant oscillators
// (Hopf bifurcation normal form detectors) that track per-frequency energy
// in a monaural audio stream, plus the supporting coordination stack:
// frequency-shifting front end, sliding segmented magnitude cache, and
// onset detector.
//
// The dependency order, leaves first, is workerpool, hilbert, the
// Detector/DetectorBank types in this package, cache, and onset.
package detectbank
