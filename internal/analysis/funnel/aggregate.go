package funnel

import (
	"gofunnel/domain/core"
	"gofunnel/domain/funnel"
)

// Aggregate sums numerators and denominators per group. Output order is the
// first-seen order of each group in the input, so repeated runs over the
// same rows produce identical record sequences. A group whose denominator
// sums to zero is a data error, not something to drop silently.
func Aggregate(observations []funnel.RawObservation) ([]funnel.GroupRecord, error) {
	type sums struct {
		numerator   float64
		denominator float64
	}

	order := make([]core.GroupKey, 0)
	byGroup := make(map[core.GroupKey]*sums)

	for _, obs := range observations {
		acc, ok := byGroup[obs.Group]
		if !ok {
			acc = &sums{}
			byGroup[obs.Group] = acc
			order = append(order, obs.Group)
		}
		acc.numerator += obs.Numerator
		acc.denominator += obs.Denominator
	}

	records := make([]funnel.GroupRecord, 0, len(order))
	for _, group := range order {
		acc := byGroup[group]
		rec, err := funnel.NewGroupRecord(group, acc.numerator, acc.denominator)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

// Observations zips the three parallel input series into raw observations.
// Lengths must already be validated.
func Observations(numerator, denominator []float64, groups []core.GroupKey) []funnel.RawObservation {
	obs := make([]funnel.RawObservation, len(numerator))
	for i := range numerator {
		obs[i] = funnel.RawObservation{
			Numerator:   numerator[i],
			Denominator: denominator[i],
			Group:       groups[i],
		}
	}
	return obs
}
