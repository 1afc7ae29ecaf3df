package funnel

import (
	"fmt"

	"gofunnel/domain/core"
	"gofunnel/domain/funnel"
)

// Run executes the full estimation pipeline on three parallel input series:
// aggregate -> transform -> trim -> {phi -> tau2} -> limits -> classify.
// Every stage produces a new immutable record set; nothing is mutated after
// creation. All fatal input checks happen before the numeric stages, so an
// error never comes with partial results.
func Run(numerator, denominator []float64, groups []core.GroupKey, params funnel.Params) (*funnel.Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := funnel.ValidateInput(numerator, denominator, groups); err != nil {
		return nil, err
	}

	aggregated, err := Aggregate(Observations(numerator, denominator, groups))
	if err != nil {
		return nil, err
	}
	if err := validateHighlight(params.Highlight, aggregated); err != nil {
		return nil, err
	}

	target := Target(aggregated, params.DataType)

	transformed, err := Transform(aggregated, target, params.DataType, params.SRMethod)
	if err != nil {
		return nil, err
	}

	var (
		trimmed  []funnel.TrimmedRecord
		phi      float64
		tau2     float64
		notices  []funnel.Notice
		odActive = params.ODAdjust
	)

	if params.ODAdjust {
		trimmed, err = Trim(transformed, params.TrimBy, params.TrimPolicy())
		if err != nil {
			return nil, err
		}
		phi = Phi(trimmed)
		tau2 = Tau2(phi, trimmed)

		if tau2 <= 0 {
			// Not an error: the data show no overdispersion, so the
			// OD-adjusted limits would be mislabelled Poisson limits.
			odActive = false
			tau2 = 0
			notices = append(notices, funnel.Notice{
				Code: funnel.NoticeODDowngrade,
				Message: fmt.Sprintf(
					"no overdispersion detected (phi=%.4f, tau2=0); Poisson limits used instead of OD-adjusted", phi),
			})
		}
	} else {
		// OD adjustment explicitly disabled: phi and tau2 are forced to
		// zero and the records pass through untrimmed.
		trimmed = passthrough(transformed)
	}

	calc, err := NewCalculator(params.DataType, params.SRMethod, target, tau2)
	if err != nil {
		return nil, err
	}

	family := funnel.FamilyPoisson
	if odActive {
		family = funnel.FamilyODAdjusted
	}

	minX, maxX := denominatorRange(aggregated)
	poissonCurve := scaleCurve(calc.Curve(funnel.FamilyPoisson, minX, maxX, CurvePoints), params.Multiplier)

	var odCurve *funnel.LimitCurve
	if odActive {
		c := scaleCurve(calc.Curve(funnel.FamilyODAdjusted, minX, maxX, CurvePoints), params.Multiplier)
		odCurve = &c
	}

	annotated := Classify(trimmed, calc, family, params.Limit, params.Multiplier, params.Highlight)

	result := &funnel.Result{
		AnalysisID:      core.AnalysisID(core.NewID()),
		Groups:          annotated,
		PoissonCurve:    poissonCurve,
		ODAdjustedCurve: odCurve,
		Phi:             phi,
		Tau2:            tau2,
		ODAdjust:        odActive,
		PoissonLimits:   !odActive || params.PoissonLimits,
		Target:          target,
		Notices:         notices,
		ComputedAt:      core.Now(),
	}
	result.Outliers = result.OutlierSubset()

	return result, nil
}

// validateHighlight rejects highlight values that name no aggregated group
func validateHighlight(highlight []core.GroupKey, groups []funnel.GroupRecord) error {
	if len(highlight) == 0 {
		return nil
	}

	present := make(map[core.GroupKey]bool, len(groups))
	for _, g := range groups {
		present[g.Group] = true
	}
	for _, h := range highlight {
		if !present[h] {
			return fmt.Errorf("%w: %q", core.ErrUnknownHighlight, h)
		}
	}
	return nil
}

// passthrough wraps transformed records without trimming, for runs where
// dispersion estimation is skipped entirely
func passthrough(records []funnel.TransformedRecord) []funnel.TrimmedRecord {
	out := make([]funnel.TrimmedRecord, len(records))
	for i, r := range records {
		out[i] = funnel.TrimmedRecord{TransformedRecord: r, WZ: r.Z}
	}
	return out
}

// denominatorRange is the default sampling range for limit curves: half the
// smallest group up to 10% past the largest, so the funnel visibly closes
// around the data
func denominatorRange(groups []funnel.GroupRecord) (minX, maxX float64) {
	minX, maxX = groups[0].Denominator, groups[0].Denominator
	for _, g := range groups[1:] {
		if g.Denominator < minX {
			minX = g.Denominator
		}
		if g.Denominator > maxX {
			maxX = g.Denominator
		}
	}
	return 0.5 * minX, 1.1 * maxX
}

// scaleCurve applies the display multiplier to a sampled curve
func scaleCurve(curve funnel.LimitCurve, multiplier float64) funnel.LimitCurve {
	if multiplier == 1 {
		return curve
	}
	scaled := funnel.LimitCurve{
		Family: curve.Family,
		Points: make([]funnel.LimitPoint, len(curve.Points)),
	}
	for i, p := range curve.Points {
		scaled.Points[i] = funnel.LimitPoint{
			Denominator: p.Denominator,
			Lower95:     p.Lower95 * multiplier,
			Upper95:     p.Upper95 * multiplier,
			Lower998:    p.Lower998 * multiplier,
			Upper998:    p.Upper998 * multiplier,
		}
	}
	return scaled
}
