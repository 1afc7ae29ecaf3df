package funnel

import (
	"math"
	"testing"

	"gofunnel/domain/funnel"
)

func trimmedFromScores(wz []float64, s float64) []funnel.TrimmedRecord {
	recs := make([]funnel.TrimmedRecord, len(wz))
	for i, z := range wz {
		recs[i] = funnel.TrimmedRecord{
			TransformedRecord: funnel.TransformedRecord{Z: z, S: s},
			WZ:                z,
		}
	}
	return recs
}

func TestPhi_SampleVarianceOfScores(t *testing.T) {
	records := trimmedFromScores([]float64{-2, 0, 2}, 0.01)

	phi := Phi(records)
	if math.Abs(phi-4) > 1e-12 {
		t.Errorf("phi = %g, want 4 (sample variance of -2,0,2)", phi)
	}
}

func TestPhi_ZeroVarianceScores(t *testing.T) {
	// Identical ratios give identical scores: phi ~ 0 and tau2 must floor to 0
	records := trimmedFromScores([]float64{0.7, 0.7, 0.7, 0.7}, 0.02)

	phi := Phi(records)
	if math.Abs(phi) > 1e-12 {
		t.Errorf("phi = %g, want 0 for zero-variance scores", phi)
	}

	if tau2 := Tau2(phi, records); tau2 != 0 {
		t.Errorf("tau2 = %g, want 0", tau2)
	}
}

func TestPhi_ExcludesTruncatedScores(t *testing.T) {
	records := trimmedFromScores([]float64{-1, 0, 1}, 0.01)
	extreme := funnel.TrimmedRecord{
		TransformedRecord: funnel.TransformedRecord{Z: 50, S: 0.01},
		Trimmed:           true,
	}
	withExtreme := append(append([]funnel.TrimmedRecord{}, records...), extreme)

	if got, want := Phi(withExtreme), Phi(records); got != want {
		t.Errorf("truncated score leaked into phi: %g vs %g", got, want)
	}
}

func TestTau2_MomentFormula(t *testing.T) {
	s := 0.01
	records := trimmedFromScores([]float64{-2, 0, 2}, s)
	phi := Phi(records)

	n := 3.0
	sumS := n * s
	sumS2 := n * s * s
	want := (phi - 1) * sumS / (n - sumS2/sumS)

	if got := Tau2(phi, records); math.Abs(got-want) > 1e-12 {
		t.Errorf("tau2 = %g, want %g", got, want)
	}
}

func TestTau2_FloorsNegativeEstimates(t *testing.T) {
	// phi below 1 gives a negative raw estimate; the floor reads as
	// "no detectable overdispersion"
	records := trimmedFromScores([]float64{-0.1, 0, 0.1}, 0.01)
	phi := Phi(records)
	if phi >= 1 {
		t.Fatalf("test setup: phi = %g, want < 1", phi)
	}

	if tau2 := Tau2(phi, records); tau2 != 0 {
		t.Errorf("tau2 = %g, want 0", tau2)
	}
}
