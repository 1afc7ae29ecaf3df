package funnel

import (
	"errors"
	"math"
	"testing"

	"gofunnel/domain/core"
	"gofunnel/domain/funnel"
)

func transformedFromScores(zs []float64) []funnel.TransformedRecord {
	recs := make([]funnel.TransformedRecord, len(zs))
	for i, z := range zs {
		recs[i] = funnel.TransformedRecord{
			GroupRecord: funnel.GroupRecord{
				Group:       core.GroupKey(string(rune('A' + i))),
				Numerator:   z,
				Denominator: 1,
				Ratio:       z,
			},
			Z: z,
			S: 1,
		}
	}
	return recs
}

func TestQuantilePair_Type7(t *testing.T) {
	// Reference values from the linear-interpolation (type 7) estimator:
	// for 1..10 at p=0.1, h = 9*0.1 = 0.9 so q = 1 + 0.9*(2-1) = 1.9
	xs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	lower, upper := quantilePair(xs, 0.1)
	if math.Abs(lower-1.9) > 1e-12 {
		t.Errorf("lower quantile = %g, want 1.9", lower)
	}
	if math.Abs(upper-9.1) > 1e-12 {
		t.Errorf("upper quantile = %g, want 9.1", upper)
	}

	// Quantiles are computed on sorted order, not input order
	shuffled := []float64{7, 1, 9, 3, 10, 5, 2, 8, 4, 6}
	l2, u2 := quantilePair(shuffled, 0.1)
	if l2 != lower || u2 != upper {
		t.Errorf("quantiles depend on input order: (%g, %g) vs (%g, %g)", l2, u2, lower, upper)
	}
}

func TestTrim_WinsorisationKeepsEveryRecord(t *testing.T) {
	zs := []float64{-5, -1, -0.5, 0, 0.5, 1, 8}
	records := transformedFromScores(zs)

	trimmed, err := Trim(records, 0.2, funnel.TrimWinsorise)
	if err != nil {
		t.Fatalf("Trim failed: %v", err)
	}

	if len(trimmed) != len(records) {
		t.Fatalf("winsorisation changed n: %d -> %d", len(records), len(trimmed))
	}

	lz, uz := quantilePair(zs, 0.2)
	for _, r := range trimmed {
		if !r.Included() {
			t.Errorf("winsorisation must not exclude records (group %s)", r.Group)
		}
		if r.WZ < lz || r.WZ > uz {
			t.Errorf("score %g not capped into [%g, %g]", r.WZ, lz, uz)
		}
		if r.Z >= lz && r.Z <= uz && r.WZ != r.Z {
			t.Errorf("interior score changed: z=%g wz=%g", r.Z, r.WZ)
		}
	}
}

func TestTrim_TruncationExcludesTails(t *testing.T) {
	zs := []float64{-5, -1, -0.5, 0, 0.5, 1, 8}
	records := transformedFromScores(zs)

	trimmed, err := Trim(records, 0.2, funnel.TrimTruncate)
	if err != nil {
		t.Fatalf("Trim failed: %v", err)
	}

	// All records are retained for plotting
	if len(trimmed) != len(records) {
		t.Fatalf("truncation dropped records from the dataset: %d -> %d", len(records), len(trimmed))
	}

	kept := 0
	for _, r := range trimmed {
		if r.Included() {
			kept++
			if r.WZ != r.Z {
				t.Errorf("truncation must not modify kept scores: z=%g wz=%g", r.Z, r.WZ)
			}
		}
	}

	if kept > len(records) {
		t.Errorf("truncation increased n: %d > %d", kept, len(records))
	}
	if kept == len(records) {
		t.Errorf("expected the extreme tails to be excluded, all %d kept", kept)
	}

	// The extreme scores are the ones excluded
	if trimmed[0].Included() || trimmed[len(trimmed)-1].Included() {
		t.Error("tail scores -5 and 8 should be excluded from estimation")
	}
}

func TestTrim_TooFewGroups(t *testing.T) {
	records := transformedFromScores([]float64{0, 1})

	_, err := Trim(records, 0.1, funnel.TrimWinsorise)
	if !errors.Is(err, core.ErrTooFewGroups) {
		t.Errorf("expected ErrTooFewGroups, got %v", err)
	}
}
