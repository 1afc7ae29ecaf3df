package funnel

import (
	"fmt"

	"gofunnel/domain/core"
)

// ============================================================================
// STABLE PRIMITIVES (Canonical, never change)
// ============================================================================

// DataType defines the kind of indicator being compared across groups
type DataType string

const (
	// DataSR - indirectly standardised ratios (observed/expected events)
	DataSR DataType = "SR"
	// DataPR - proportions (numerator is a subset count of the denominator)
	DataPR DataType = "PR"
	// DataRC - ratio of two Poisson counts
	DataRC DataType = "RC"
)

// SRMethod selects the published transform family for standardised ratios
type SRMethod string

const (
	SRMethodCQC  SRMethod = "CQC"
	SRMethodSHMI SRMethod = "SHMI"
)

// TrimPolicy defines how extreme transformed scores are handled before
// dispersion estimation
type TrimPolicy string

const (
	// TrimWinsorise caps scores at the tail quantile boundaries; every
	// record keeps a trimmed score
	TrimWinsorise TrimPolicy = "winsorise"
	// TrimTruncate excludes scores beyond the tail quantiles from
	// estimation; the records stay in the dataset for plotting
	TrimTruncate TrimPolicy = "truncate"
)

// LimitFamily identifies which control-limit formula produced a curve
type LimitFamily string

const (
	FamilyPoisson    LimitFamily = "poisson"
	FamilyODAdjusted LimitFamily = "od_adjusted"
)

// Coverage is the requested control-limit coverage: 95 or 99 (99 meaning
// the conventional 99.8% three-sigma-equivalent limits)
type Coverage int

const (
	Coverage95 Coverage = 95
	Coverage99 Coverage = 99
)

// ============================================================================
// STAGE RECORDS (each pipeline stage produces a new immutable record set)
// ============================================================================

// RawObservation is one input row before aggregation. Multiple observations
// may share a group.
type RawObservation struct {
	Numerator   float64       `json:"numerator"`
	Denominator float64       `json:"denominator"`
	Group       core.GroupKey `json:"group"`
}

// GroupRecord is the per-group aggregate.
// INVARIANTS:
// - Denominator > 0
// - one record per distinct group, in first-seen input order
type GroupRecord struct {
	Group       core.GroupKey `json:"group"`
	Numerator   float64       `json:"numerator"`
	Denominator float64       `json:"denominator"`
	Ratio       float64       `json:"ratio"`
}

// TransformedRecord extends GroupRecord with the variance-stabilised score Z
// and its theoretical variance S under the null model. The transforms are
// normalised so Z has unit variance when the null model holds.
type TransformedRecord struct {
	GroupRecord
	Z float64 `json:"z"`
	S float64 `json:"s"`
}

// TrimmedRecord extends TransformedRecord with the trimmed score. Under
// winsorisation WZ is always set; under truncation records beyond the trim
// quantiles have WZ absent and are excluded from phi/tau estimation.
type TrimmedRecord struct {
	TransformedRecord
	WZ      float64 `json:"wz"`
	Trimmed bool    `json:"trimmed"` // true when WZ is absent (truncated out)
}

// Included reports whether the record participates in dispersion estimation
func (r TrimmedRecord) Included() bool {
	return !r.Trimmed
}

// ============================================================================
// LIMIT CURVES
// ============================================================================

// LimitPoint is one sampled point of a control-limit curve, on the ratio
// scale after the display multiplier has been applied
type LimitPoint struct {
	Denominator float64 `json:"denominator"`
	Lower95     float64 `json:"lower_95"`
	Upper95     float64 `json:"upper_95"`
	Lower998    float64 `json:"lower_99_8"`
	Upper998    float64 `json:"upper_99_8"`
}

// LimitCurve is an ordered sample of one limit family over the denominator
// range. The classifier never reads the samples; it evaluates the closed
// forms at each group's exact denominator.
type LimitCurve struct {
	Family LimitFamily  `json:"family"`
	Points []LimitPoint `json:"points"`
}

// Bounds is an evaluated (lower, upper) pair at a single denominator
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ============================================================================
// OUTPUT CONTRACT (consumed by rendering/reporting collaborators)
// ============================================================================

// AnnotatedGroup is a GroupRecord with the flags the rendering collaborator
// needs for labelling decisions. Outlier and Highlight are orthogonal.
type AnnotatedGroup struct {
	GroupRecord
	DisplayRatio float64 `json:"display_ratio"` // ratio * multiplier
	Outlier      bool    `json:"outlier"`
	Highlight    bool    `json:"highlight"`
}

// Notice is a non-fatal informational message surfaced alongside results,
// e.g. the automatic downgrade from OD-adjusted to Poisson limits
type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	// NoticeODDowngrade is emitted when OD adjustment was requested but the
	// between-group variance estimated to zero
	NoticeODDowngrade = "OD_DOWNGRADE"
)

// Result is the full output of one funnel analysis
type Result struct {
	AnalysisID core.AnalysisID `json:"analysis_id"`

	Groups   []AnnotatedGroup `json:"groups"`
	Outliers []AnnotatedGroup `json:"outliers"`

	PoissonCurve    LimitCurve  `json:"poisson_curve"`
	ODAdjustedCurve *LimitCurve `json:"od_adjusted_curve,omitempty"`

	Phi  float64 `json:"phi"`
	Tau2 float64 `json:"tau2"`

	// Resolved flags: reflect any automatic downgrade, not the request
	ODAdjust      bool `json:"od_adjust"`
	PoissonLimits bool `json:"poisson_limits"`

	Target     float64  `json:"target"` // on the raw ratio scale
	Notices    []Notice `json:"notices,omitempty"`
	ComputedAt core.Timestamp `json:"computed_at"`
}

// OutlierSubset returns the groups flagged against the resolved limit family
func (r *Result) OutlierSubset() []AnnotatedGroup {
	out := make([]AnnotatedGroup, 0)
	for _, g := range r.Groups {
		if g.Outlier {
			out = append(out, g)
		}
	}
	return out
}

// ============================================================================
// CONSTRUCTORS
// ============================================================================

// NewGroupRecord creates a validated per-group aggregate
func NewGroupRecord(group core.GroupKey, numerator, denominator float64) (GroupRecord, error) {
	if denominator <= 0 {
		return GroupRecord{}, core.NewZeroDenominatorError(group)
	}
	if numerator < 0 {
		return GroupRecord{}, core.NewInputError("numerator", fmt.Sprintf("negative sum %g for group %q", numerator, group))
	}
	return GroupRecord{
		Group:       group,
		Numerator:   numerator,
		Denominator: denominator,
		Ratio:       numerator / denominator,
	}, nil
}
