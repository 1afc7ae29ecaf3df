package funnel

import (
	"fmt"

	"gofunnel/domain/core"
)

// Default parameter values, matching the published methodology
const (
	DefaultTrimBy     = 0.1
	DefaultMultiplier = 1.0
)

// Params configures one funnel analysis. Validate runs the full fatal-input
// check before any computation begins; no partial results are ever returned
// for invalid parameters.
type Params struct {
	DataType DataType `json:"data_type"`
	SRMethod SRMethod `json:"sr_method,omitempty"` // only meaningful for DataSR

	// TrimBy is the symmetric tail proportion removed or capped at each
	// tail before dispersion estimation. Must lie in (0, 0.5).
	TrimBy float64 `json:"trim_by"`

	// Multiplier rescales ratios and limits for display (e.g. per 1000)
	Multiplier float64 `json:"multiplier"`

	// Limit selects the coverage used for outlier classification
	Limit Coverage `json:"limit"`

	ODAdjust      bool `json:"od_adjust"`
	PoissonLimits bool `json:"poisson_limits"`

	// Highlight names groups that get an independent highlight flag,
	// orthogonal to outlier classification
	Highlight []core.GroupKey `json:"highlight,omitempty"`

	Render *RenderConfig `json:"render,omitempty"`
}

// DefaultParams returns the conventional configuration: standardised ratios
// with the CQC transform, 10% winsorisation, OD-adjusted 99.8% limits.
func DefaultParams() Params {
	return Params{
		DataType:      DataSR,
		SRMethod:      SRMethodCQC,
		TrimBy:        DefaultTrimBy,
		Multiplier:    DefaultMultiplier,
		Limit:         Coverage99,
		ODAdjust:      true,
		PoissonLimits: false,
	}
}

// TrimPolicy returns the trim policy implied by the data type and method:
// SHMI truncates, every other combination winsorises
func (p Params) TrimPolicy() TrimPolicy {
	if p.DataType == DataSR && p.SRMethod == SRMethodSHMI {
		return TrimTruncate
	}
	return TrimWinsorise
}

// Validate checks every parameter against the input contract
func (p Params) Validate() error {
	switch p.DataType {
	case DataSR, DataPR, DataRC:
	default:
		return core.NewEnumError("data_type", string(p.DataType))
	}

	if p.DataType == DataSR {
		switch p.SRMethod {
		case SRMethodCQC, SRMethodSHMI:
		default:
			return core.NewEnumError("sr_method", string(p.SRMethod))
		}
	}

	if p.TrimBy <= 0 || p.TrimBy >= 0.5 {
		return core.NewInputError("trim_by", fmt.Sprintf("must be in (0, 0.5), got %g", p.TrimBy))
	}

	if p.Multiplier <= 0 {
		return core.NewInputError("multiplier", fmt.Sprintf("must be > 0, got %g", p.Multiplier))
	}

	switch p.Limit {
	case Coverage95, Coverage99:
	default:
		return core.NewEnumError("limit", fmt.Sprintf("%d", p.Limit))
	}

	if p.Render != nil {
		if err := p.Render.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ValidateInput checks the parallel input series against the contract.
// The identical-series check catches the common mistake of passing the
// denominator twice.
func ValidateInput(numerator, denominator []float64, groups []core.GroupKey) error {
	if len(numerator) == 0 {
		return core.NewInputError("numerator", "no observations supplied")
	}
	if len(numerator) != len(denominator) || len(numerator) != len(groups) {
		return fmt.Errorf("%w (numerator=%d, denominator=%d, group=%d)",
			core.ErrLengthMismatch, len(numerator), len(denominator), len(groups))
	}

	// Same backing array means the caller passed one series twice; equal
	// values in distinct series are legitimate (every ratio exactly on
	// target looks like that).
	if &numerator[0] == &denominator[0] {
		return core.ErrIdenticalSeries
	}

	for i := range numerator {
		if numerator[i] < 0 {
			return core.NewInputError("numerator", fmt.Sprintf("negative value %g at row %d", numerator[i], i))
		}
		if denominator[i] <= 0 {
			return core.NewInputError("denominator", fmt.Sprintf("non-positive value %g at row %d", denominator[i], i))
		}
	}

	return nil
}
