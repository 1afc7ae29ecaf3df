package funnel

import (
	"fmt"
	"sort"

	"gofunnel/domain/core"
	"gofunnel/domain/funnel"
)

// quantilePair returns the (p, 1-p) quantiles of xs using the
// linear-interpolation estimator over order statistics with
// h = (n-1)p + 1 — "type 7", the default convention of R and NumPy.
// The trim boundaries must match that convention exactly or the
// downstream dispersion estimates drift from reference values.
func quantilePair(xs []float64, p float64) (lower, upper float64) {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	q := func(prob float64) float64 {
		n := len(sorted)
		h := float64(n-1) * prob
		lo := int(h)
		if lo >= n-1 {
			return sorted[n-1]
		}
		frac := h - float64(lo)
		return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
	}

	return q(p), q(1 - p)
}

// Trim applies the symmetric tail policy to the transformed scores.
// Winsorisation caps scores at the tail quantile boundaries and keeps every
// record; truncation marks scores outside the boundaries as absent so they
// are excluded from phi/tau estimation while the record itself stays in the
// dataset for plotting.
func Trim(records []funnel.TransformedRecord, trimBy float64, policy funnel.TrimPolicy) ([]funnel.TrimmedRecord, error) {
	if len(records) < 3 {
		return nil, fmt.Errorf("%w: %d groups", core.ErrTooFewGroups, len(records))
	}

	zs := make([]float64, len(records))
	for i, r := range records {
		zs[i] = r.Z
	}
	lz, uz := quantilePair(zs, trimBy)

	out := make([]funnel.TrimmedRecord, 0, len(records))
	for _, r := range records {
		trimmed := funnel.TrimmedRecord{TransformedRecord: r, WZ: r.Z}

		switch policy {
		case funnel.TrimWinsorise:
			if r.Z < lz {
				trimmed.WZ = lz
			} else if r.Z > uz {
				trimmed.WZ = uz
			}
		case funnel.TrimTruncate:
			if r.Z < lz || r.Z > uz {
				trimmed.WZ = 0
				trimmed.Trimmed = true
			}
		default:
			return nil, core.NewEnumError("trim_policy", string(policy))
		}

		out = append(out, trimmed)
	}

	if policy == funnel.TrimTruncate {
		kept := 0
		for _, r := range out {
			if r.Included() {
				kept++
			}
		}
		if kept < 2 {
			return nil, fmt.Errorf("%w: truncation left %d scores", core.ErrTooFewGroups, kept)
		}
	}

	return out, nil
}
