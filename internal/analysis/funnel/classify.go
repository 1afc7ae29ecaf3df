package funnel

import (
	"gofunnel/domain/core"
	"gofunnel/domain/funnel"
)

// Classify flags each group against the resolved limit family at the
// requested coverage, evaluated at the group's own denominator. A group is
// an outlier only when its ratio lies strictly outside [lower, upper].
// The highlight flag is independent of outlier status; both are exposed so
// the rendering collaborator can make its own labelling decisions.
func Classify(records []funnel.TrimmedRecord, calc *Calculator, family funnel.LimitFamily, cov funnel.Coverage, multiplier float64, highlight []core.GroupKey) []funnel.AnnotatedGroup {
	highlighted := make(map[core.GroupKey]bool, len(highlight))
	for _, g := range highlight {
		highlighted[g] = true
	}

	out := make([]funnel.AnnotatedGroup, 0, len(records))
	for _, r := range records {
		bounds := calc.Bounds(family, r.Denominator, cov)

		out = append(out, funnel.AnnotatedGroup{
			GroupRecord:  r.GroupRecord,
			DisplayRatio: r.Ratio * multiplier,
			Outlier:      r.Ratio < bounds.Lower || r.Ratio > bounds.Upper,
			Highlight:    highlighted[r.Group],
		})
	}

	return out
}
