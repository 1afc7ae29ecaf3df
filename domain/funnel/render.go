package funnel

import (
	"fmt"

	"gofunnel/domain/core"
)

// LabelMode controls which points the rendering collaborator labels
type LabelMode string

const (
	LabelOutliers   LabelMode = "outlier"
	LabelHighlights LabelMode = "highlight"
	LabelBoth       LabelMode = "both"
	LabelNone       LabelMode = "none"
)

// RenderConfig carries the pure configuration values the rendering
// collaborator consumes. It is passed through untouched by the pipeline;
// only its validity is checked up front with the other input checks.
type RenderConfig struct {
	// Colours in drawing order: data points, outliers, highlighted groups,
	// limit lines. At least 4 are required.
	Colours []string `json:"colours"`

	Labels LabelMode `json:"labels"`

	Title string `json:"title,omitempty"`
	XLab  string `json:"x_lab,omitempty"`
	YLab  string `json:"y_lab,omitempty"`

	// YRangeExpand are the multiplicative factors applied to the extreme
	// ratios when the collaborator derives its default y-axis range.
	// The published defaults are 1.3 above and 0.7 below.
	YRangeExpand [2]float64 `json:"y_range_expand"`
}

// DefaultRenderConfig returns the published default theme values
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Colours:      []string{"#7B9FAF", "#DC2626", "#F59E0B", "#2F4F4F"},
		Labels:       LabelOutliers,
		YRangeExpand: [2]float64{1.3, 0.7},
	}
}

// Validate checks the rendering configuration against the input contract
func (c RenderConfig) Validate() error {
	if len(c.Colours) < 4 {
		return fmt.Errorf("%w, got %d", core.ErrPaletteTooSmall, len(c.Colours))
	}

	switch c.Labels {
	case LabelOutliers, LabelHighlights, LabelBoth, LabelNone, "":
	default:
		return core.NewEnumError("label", string(c.Labels))
	}

	if c.YRangeExpand[0] != 0 && c.YRangeExpand[0] < 1 {
		return core.NewInputError("y_range_expand", "upper factor must be >= 1")
	}
	if c.YRangeExpand[1] != 0 && (c.YRangeExpand[1] <= 0 || c.YRangeExpand[1] > 1) {
		return core.NewInputError("y_range_expand", "lower factor must be in (0, 1]")
	}

	return nil
}
