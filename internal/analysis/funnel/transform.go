package funnel

import (
	"fmt"
	"math"

	"gofunnel/domain/core"
	"gofunnel/domain/funnel"

	"github.com/montanaflynn/stats"
)

// scaleKey dispatches the transform strategy. The set of combinations is
// closed: SR splits on method, PR and RC ignore it.
type scaleKey struct {
	DataType funnel.DataType
	SRMethod funnel.SRMethod
}

// scale implements one published variance-stabilising transform.
// forward/inverse map between the ratio scale and the transformed scale;
// the variance functions give the null-model variance of the transformed
// value, normalised so the z-score has unit variance under the null.
type scale struct {
	forward func(r float64) float64
	inverse func(y float64) float64

	// recordVariance uses the group's own aggregate
	recordVariance func(rec funnel.GroupRecord) float64

	// curveVariance is the same quantity as a function of denominator
	// alone, substituting the expected numerator target*d where the
	// record formula needs an observed count
	curveVariance func(d, target float64) float64

	// prepare adjusts the aggregate before transformation; identity for
	// all scales except SHMI, which rounds the denominator to 2 decimal
	// places to stabilise ties
	prepare func(rec funnel.GroupRecord) funnel.GroupRecord

	// yMin/yMax bound the transformed scale; limit endpoints are clamped
	// into this domain before the inverse transform is applied
	yMin, yMax float64
}

func identityPrepare(rec funnel.GroupRecord) funnel.GroupRecord { return rec }

// round2 keeps the SHMI convention of a 2-decimal denominator
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

var scales = map[scaleKey]scale{
	{funnel.DataSR, funnel.SRMethodCQC}: {
		forward: math.Sqrt,
		inverse: func(y float64) float64 { return y * y },
		recordVariance: func(rec funnel.GroupRecord) float64 {
			return 1 / (4 * rec.Denominator)
		},
		curveVariance: func(d, target float64) float64 {
			return 1 / (4 * d)
		},
		prepare: identityPrepare,
		yMin:    0,
		yMax:    math.Inf(1),
	},
	{funnel.DataSR, funnel.SRMethodSHMI}: {
		forward: math.Log,
		inverse: math.Exp,
		recordVariance: func(rec funnel.GroupRecord) float64 {
			return 1 / rec.Denominator
		},
		curveVariance: func(d, target float64) float64 {
			return 1 / d
		},
		prepare: func(rec funnel.GroupRecord) funnel.GroupRecord {
			d := round2(rec.Denominator)
			return funnel.GroupRecord{
				Group:       rec.Group,
				Numerator:   rec.Numerator,
				Denominator: d,
				Ratio:       rec.Numerator / d,
			}
		},
		yMin: math.Inf(-1),
		yMax: math.Inf(1),
	},
	{funnel.DataPR, ""}: {
		forward: func(r float64) float64 { return math.Asin(math.Sqrt(clamp01(r))) },
		inverse: func(y float64) float64 {
			s := math.Sin(y)
			return s * s
		},
		recordVariance: func(rec funnel.GroupRecord) float64 {
			return 1 / (4 * rec.Denominator)
		},
		curveVariance: func(d, target float64) float64 {
			return 1 / (4 * d)
		},
		prepare: identityPrepare,
		yMin:    0,
		yMax:    math.Pi / 2,
	},
	{funnel.DataRC, ""}: {
		forward: math.Log,
		inverse: math.Exp,
		// Delta-method variance of the log of a ratio of two Poisson counts
		recordVariance: func(rec funnel.GroupRecord) float64 {
			return 1/rec.Numerator + 1/rec.Denominator
		},
		curveVariance: func(d, target float64) float64 {
			return 1/(target*d) + 1/d
		},
		prepare: identityPrepare,
		yMin:    math.Inf(-1),
		yMax:    math.Inf(1),
	},
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// scaleFor resolves the transform strategy for validated parameters
func scaleFor(dataType funnel.DataType, srMethod funnel.SRMethod) (scale, error) {
	key := scaleKey{DataType: dataType}
	if dataType == funnel.DataSR {
		key.SRMethod = srMethod
	}
	sc, ok := scales[key]
	if !ok {
		return scale{}, core.NewEnumError("data_type", string(dataType))
	}
	return sc, nil
}

// Target returns the reference ratio: 1 for standardised ratios, the overall
// numerator/denominator ratio otherwise
func Target(groups []funnel.GroupRecord, dataType funnel.DataType) float64 {
	if dataType == funnel.DataSR {
		return 1
	}

	nums := make([]float64, len(groups))
	dens := make([]float64, len(groups))
	for i, g := range groups {
		nums[i] = g.Numerator
		dens[i] = g.Denominator
	}
	numSum, _ := stats.Sum(nums)
	denSum, _ := stats.Sum(dens)
	return numSum / denSum
}

// Transform computes the variance-stabilised score Z and its theoretical
// variance S for every group. Guards reject inputs the chosen transform is
// undefined for: proportions above 1 and zero numerators under log scales.
func Transform(groups []funnel.GroupRecord, target float64, dataType funnel.DataType, srMethod funnel.SRMethod) ([]funnel.TransformedRecord, error) {
	sc, err := scaleFor(dataType, srMethod)
	if err != nil {
		return nil, err
	}

	logScale := dataType == funnel.DataRC || (dataType == funnel.DataSR && srMethod == funnel.SRMethodSHMI)
	targetY := sc.forward(target)

	out := make([]funnel.TransformedRecord, 0, len(groups))
	for _, g := range groups {
		if dataType == funnel.DataPR && g.Numerator > g.Denominator {
			return nil, core.NewInputError("numerator",
				fmt.Sprintf("proportion above 1 for group %q (%g/%g)", g.Group, g.Numerator, g.Denominator))
		}
		if logScale && g.Numerator == 0 {
			return nil, fmt.Errorf("%w: zero numerator for group %q under a log transform",
				core.ErrDegenerateDataset, g.Group)
		}

		rec := sc.prepare(g)
		s := sc.recordVariance(rec)
		z := (sc.forward(rec.Ratio) - targetY) / math.Sqrt(s)

		out = append(out, funnel.TransformedRecord{
			GroupRecord: rec,
			Z:           z,
			S:           s,
		})
	}

	return out, nil
}
