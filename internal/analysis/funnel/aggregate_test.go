package funnel

import (
	"errors"
	"testing"

	"gofunnel/domain/core"
	"gofunnel/domain/funnel"
)

func TestAggregate_SumsPerGroup(t *testing.T) {
	obs := []funnel.RawObservation{
		{Numerator: 3, Denominator: 10, Group: "A"},
		{Numerator: 5, Denominator: 20, Group: "B"},
		{Numerator: 7, Denominator: 30, Group: "A"},
	}

	records, err := Aggregate(obs)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(records))
	}
	if records[0].Group != "A" || records[0].Numerator != 10 || records[0].Denominator != 40 {
		t.Errorf("group A aggregate wrong: %+v", records[0])
	}
	if records[0].Ratio != 0.25 {
		t.Errorf("group A ratio = %g, want 0.25", records[0].Ratio)
	}
	if records[1].Group != "B" || records[1].Numerator != 5 || records[1].Denominator != 20 {
		t.Errorf("group B aggregate wrong: %+v", records[1])
	}
}

func TestAggregate_OrderInvariantSums(t *testing.T) {
	// Reordering rows within a group must not change the sums
	forward := []funnel.RawObservation{
		{Numerator: 1, Denominator: 2, Group: "A"},
		{Numerator: 3, Denominator: 4, Group: "A"},
		{Numerator: 5, Denominator: 6, Group: "B"},
	}
	reversed := []funnel.RawObservation{forward[2], forward[1], forward[0]}

	a, err := Aggregate(forward)
	if err != nil {
		t.Fatalf("Aggregate(forward) failed: %v", err)
	}
	b, err := Aggregate(reversed)
	if err != nil {
		t.Fatalf("Aggregate(reversed) failed: %v", err)
	}

	sums := func(recs []funnel.GroupRecord) map[core.GroupKey][2]float64 {
		m := make(map[core.GroupKey][2]float64)
		for _, r := range recs {
			m[r.Group] = [2]float64{r.Numerator, r.Denominator}
		}
		return m
	}

	sa, sb := sums(a), sums(b)
	for g, v := range sa {
		if sb[g] != v {
			t.Errorf("group %s sums differ after reorder: %v vs %v", g, v, sb[g])
		}
	}

	// Output order follows first appearance in the input
	if a[0].Group != "A" || b[0].Group != "B" {
		t.Errorf("first-seen order not preserved: %s, %s", a[0].Group, b[0].Group)
	}
}

func TestAggregate_ZeroDenominatorIsDataError(t *testing.T) {
	obs := []funnel.RawObservation{
		{Numerator: 1, Denominator: 0.5, Group: "A"},
		{Numerator: 2, Denominator: -0.5, Group: "A"},
	}

	_, err := Aggregate(obs)
	if err == nil {
		t.Fatal("expected error for zero-sum denominator")
	}
	if !errors.Is(err, core.ErrZeroDenominator) {
		t.Errorf("expected ErrZeroDenominator, got %v", err)
	}
}
