package funnel

import (
	"math"

	"gofunnel/domain/funnel"

	"gonum.org/v1/gonum/stat/distuv"
)

// CurvePoints is the sample density of the rendered limit curves. The
// classifier never reads the samples; it evaluates the closed forms at each
// group's exact denominator.
const CurvePoints = 501

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// tailProbs returns the lower/upper tail probabilities for a coverage level.
// Coverage99 means the conventional 99.8% limits.
func tailProbs(cov funnel.Coverage) (lower, upper float64) {
	if cov == funnel.Coverage99 {
		return 0.001, 0.999
	}
	return 0.025, 0.975
}

// Calculator evaluates both limit families at arbitrary denominators
type Calculator struct {
	sc     scale
	target float64
	tau2   float64
}

// NewCalculator builds a limits calculator for a resolved analysis. tau2 of
// zero collapses the OD-adjusted family onto the Poisson one.
func NewCalculator(dataType funnel.DataType, srMethod funnel.SRMethod, target, tau2 float64) (*Calculator, error) {
	sc, err := scaleFor(dataType, srMethod)
	if err != nil {
		return nil, err
	}
	return &Calculator{sc: sc, target: target, tau2: tau2}, nil
}

// Bounds evaluates one limit family at denominator d on the raw ratio scale
func (c *Calculator) Bounds(family funnel.LimitFamily, d float64, cov funnel.Coverage) funnel.Bounds {
	if family == funnel.FamilyODAdjusted {
		return c.odBounds(d, cov)
	}
	return c.poissonBounds(d, cov)
}

// poissonBounds uses exact Poisson quantiles of the count numerator with
// expected count target*d, interpolated between adjacent integers and
// converted back to the ratio scale
func (c *Calculator) poissonBounds(d float64, cov funnel.Coverage) funnel.Bounds {
	pl, pu := tailProbs(cov)
	lambda := c.target * d

	lower := poissonQuantile(pl, lambda) / d
	upper := poissonQuantile(pu, lambda) / d
	if lower < 0 {
		lower = 0
	}

	return funnel.Bounds{Lower: lower, Upper: upper}
}

// odBounds widens the null variance on the transformed scale by tau2 and
// maps the interval back to the ratio scale. With tau2 = 0 there is nothing
// to add and the family collapses onto the Poisson limits.
func (c *Calculator) odBounds(d float64, cov funnel.Coverage) funnel.Bounds {
	if c.tau2 == 0 {
		return c.poissonBounds(d, cov)
	}

	_, pu := tailProbs(cov)
	z := stdNormal.Quantile(pu)

	sd := math.Sqrt(c.sc.curveVariance(d, c.target) + c.tau2)
	y := c.sc.forward(c.target)

	return funnel.Bounds{
		Lower: c.sc.inverse(c.clampY(y - z*sd)),
		Upper: c.sc.inverse(c.clampY(y + z*sd)),
	}
}

func (c *Calculator) clampY(y float64) float64 {
	if y < c.sc.yMin {
		return c.sc.yMin
	}
	if y > c.sc.yMax {
		return c.sc.yMax
	}
	return y
}

// Curve samples one limit family over [minX, maxX] at both coverage levels.
// Values are on the raw ratio scale; the pipeline applies the display
// multiplier at the output boundary.
func (c *Calculator) Curve(family funnel.LimitFamily, minX, maxX float64, points int) funnel.LimitCurve {
	if points < 2 {
		points = CurvePoints
	}

	curve := funnel.LimitCurve{
		Family: family,
		Points: make([]funnel.LimitPoint, 0, points),
	}

	step := (maxX - minX) / float64(points-1)
	for i := 0; i < points; i++ {
		d := minX + float64(i)*step
		if d <= 0 {
			continue
		}
		b95 := c.Bounds(family, d, funnel.Coverage95)
		b998 := c.Bounds(family, d, funnel.Coverage99)
		curve.Points = append(curve.Points, funnel.LimitPoint{
			Denominator: d,
			Lower95:     b95.Lower,
			Upper95:     b95.Upper,
			Lower998:    b998.Lower,
			Upper998:    b998.Upper,
		})
	}

	return curve
}

// poissonQuantile returns the interpolated p-quantile of a Poisson(lambda)
// count: the smallest integer k with CDF(k) >= p, pulled back by
// (CDF(k)-p)/(CDF(k)-CDF(k-1)) so the limit curve is smooth in lambda.
// The integer search is seeded with the normal approximation so it stays
// cheap for large lambda.
func poissonQuantile(p, lambda float64) float64 {
	if lambda <= 0 {
		return 0
	}

	dist := distuv.Poisson{Lambda: lambda}

	k := math.Floor(lambda + math.Sqrt(lambda)*stdNormal.Quantile(p))
	if k < 0 {
		k = 0
	}
	for dist.CDF(k) < p {
		k++
	}
	for k > 0 && dist.CDF(k-1) >= p {
		k--
	}

	ck := dist.CDF(k)
	var prev float64
	if k > 0 {
		prev = dist.CDF(k - 1)
	}
	if ck == prev {
		return k
	}
	return k - (ck-p)/(ck-prev)
}
