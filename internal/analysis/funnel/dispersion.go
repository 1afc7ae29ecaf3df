package funnel

import (
	"gofunnel/domain/funnel"

	"github.com/montanaflynn/stats"
)

// Phi computes the dispersion ratio: the sample variance of the trimmed
// scores relative to the unit variance the null model implies,
// (1/(n-1))*sum((Wz - mean(Wz))^2) over the included records. Values below
// 1 mean no detectable overdispersion; no floor is applied here — a tau2
// that resolves to zero downstream triggers the Poisson downgrade instead.
func Phi(records []funnel.TrimmedRecord) float64 {
	wz := includedScores(records)
	if len(wz) < 2 {
		return 0
	}

	phi, err := stats.SampleVariance(wz)
	if err != nil {
		return 0
	}
	return phi
}

// Tau2 is the method-of-moments between-group variance estimator in the
// DerSimonian-Laird family:
//
//	tau2 = max(0, (phi-1) * sum(s) / (n - sum(s^2)/sum(s)))
//
// using the theoretical variances s of the included records only. Negative
// raw estimates are floored to zero, which downstream reads as "no
// overdispersion".
func Tau2(phi float64, records []funnel.TrimmedRecord) float64 {
	var n float64
	var sumS, sumS2 float64
	for _, r := range records {
		if !r.Included() {
			continue
		}
		n++
		sumS += r.S
		sumS2 += r.S * r.S
	}

	if n < 2 || sumS == 0 {
		return 0
	}

	denom := n - sumS2/sumS
	if denom <= 0 {
		return 0
	}

	tau2 := (phi - 1) * sumS / denom
	if tau2 < 0 {
		return 0
	}
	return tau2
}

func includedScores(records []funnel.TrimmedRecord) []float64 {
	wz := make([]float64, 0, len(records))
	for _, r := range records {
		if r.Included() {
			wz = append(wz, r.WZ)
		}
	}
	return wz
}
