package funnel

import (
	"math"
	"testing"

	"gofunnel/domain/funnel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoissonQuantile_MatchesReferenceIntegers(t *testing.T) {
	// The interpolated quantile lies in (k-1, k] where k is the exact
	// integer quantile, so its ceiling must reproduce qpois reference
	// values from R
	cases := []struct {
		p      float64
		lambda float64
		wantK  float64
	}{
		{0.975, 10, 17},
		{0.025, 10, 4},
		{0.999, 10, 21},
		{0.5, 4, 4},
	}

	for _, tc := range cases {
		got := poissonQuantile(tc.p, tc.lambda)
		if math.Ceil(got) != tc.wantK {
			t.Errorf("ceil(poissonQuantile(%g, %g)) = %g, want %g (raw %g)",
				tc.p, tc.lambda, math.Ceil(got), tc.wantK, got)
		}
		if got > tc.wantK || got <= tc.wantK-1 {
			t.Errorf("poissonQuantile(%g, %g) = %g, want in (%g, %g]",
				tc.p, tc.lambda, got, tc.wantK-1, tc.wantK)
		}
	}
}

func TestPoissonQuantile_MonotoneInP(t *testing.T) {
	lambda := 25.0
	prev := math.Inf(-1)
	for _, p := range []float64{0.001, 0.025, 0.5, 0.975, 0.999} {
		q := poissonQuantile(p, lambda)
		if q < prev {
			t.Errorf("quantile not monotone: q(%g) = %g < %g", p, q, prev)
		}
		prev = q
	}
}

func TestPoissonBounds_BracketTargetAndNarrow(t *testing.T) {
	// SHMI standardised ratios, target 1, no overdispersion: limits must
	// bracket the target at every denominator and strictly narrow as the
	// denominator grows
	calc, err := NewCalculator(funnel.DataSR, funnel.SRMethodSHMI, 1, 0)
	require.NoError(t, err)

	denominators := []float64{2, 10, 50, 250, 1000, 5000}
	prevWidth95 := math.Inf(1)
	prevWidth998 := math.Inf(1)

	for _, d := range denominators {
		b95 := calc.Bounds(funnel.FamilyPoisson, d, funnel.Coverage95)
		b998 := calc.Bounds(funnel.FamilyPoisson, d, funnel.Coverage99)

		assert.LessOrEqual(t, b95.Lower, 1.0, "lower above target at d=%g", d)
		assert.GreaterOrEqual(t, b95.Upper, 1.0, "upper below target at d=%g", d)

		// 99.8% limits are at least as wide as 95% limits
		assert.LessOrEqual(t, b998.Lower, b95.Lower, "d=%g", d)
		assert.GreaterOrEqual(t, b998.Upper, b95.Upper, "d=%g", d)

		width95 := b95.Upper - b95.Lower
		width998 := b998.Upper - b998.Lower
		assert.Less(t, width95, prevWidth95, "95%% limits did not narrow at d=%g", d)
		assert.Less(t, width998, prevWidth998, "99.8%% limits did not narrow at d=%g", d)
		prevWidth95, prevWidth998 = width95, width998
	}
}

func TestODBounds_CollapseToPoissonWhenTauZero(t *testing.T) {
	calc, err := NewCalculator(funnel.DataSR, funnel.SRMethodCQC, 1, 0)
	require.NoError(t, err)

	for _, d := range []float64{5, 50, 500} {
		p := calc.Bounds(funnel.FamilyPoisson, d, funnel.Coverage95)
		od := calc.Bounds(funnel.FamilyODAdjusted, d, funnel.Coverage95)
		assert.Equal(t, p, od, "d=%g", d)
	}
}

func TestODBounds_WidenWithTau(t *testing.T) {
	plain, err := NewCalculator(funnel.DataSR, funnel.SRMethodCQC, 1, 0)
	require.NoError(t, err)
	inflated, err := NewCalculator(funnel.DataSR, funnel.SRMethodCQC, 1, 0.05)
	require.NoError(t, err)

	for _, d := range []float64{5, 50, 500} {
		base := plain.Bounds(funnel.FamilyODAdjusted, d, funnel.Coverage99)
		wide := inflated.Bounds(funnel.FamilyODAdjusted, d, funnel.Coverage99)

		assert.Less(t, wide.Lower, base.Upper, "d=%g", d)
		assert.Greater(t, wide.Upper-wide.Lower, base.Upper-base.Lower,
			"tau2 > 0 must widen limits at d=%g", d)
	}
}

func TestODBounds_LowerNeverNegative(t *testing.T) {
	// Tiny denominators push the sqrt-scale interval below zero; the
	// clamp keeps ratio limits non-negative
	calc, err := NewCalculator(funnel.DataSR, funnel.SRMethodCQC, 1, 0.2)
	require.NoError(t, err)

	b := calc.Bounds(funnel.FamilyODAdjusted, 0.5, funnel.Coverage99)
	assert.GreaterOrEqual(t, b.Lower, 0.0)
}

func TestCurve_SamplesRange(t *testing.T) {
	calc, err := NewCalculator(funnel.DataSR, funnel.SRMethodCQC, 1, 0.01)
	require.NoError(t, err)

	curve := calc.Curve(funnel.FamilyODAdjusted, 5, 500, 101)
	require.Len(t, curve.Points, 101)
	assert.Equal(t, funnel.FamilyODAdjusted, curve.Family)

	assert.Equal(t, 5.0, curve.Points[0].Denominator)
	assert.InDelta(t, 500.0, curve.Points[len(curve.Points)-1].Denominator, 1e-9)

	for i, pt := range curve.Points {
		assert.Positive(t, pt.Denominator, "point %d", i)
		assert.LessOrEqual(t, pt.Lower998, pt.Lower95, "point %d", i)
		assert.GreaterOrEqual(t, pt.Upper998, pt.Upper95, "point %d", i)
		if i > 0 {
			assert.Greater(t, pt.Denominator, curve.Points[i-1].Denominator, "point %d", i)
		}
	}
}
