package aggregate

import "math"

const (
	minRadius = 3
	maxRadius = 20
)

// SqrtScale maps a value in [0, DomainMax] to a radius in
// [RangeMin, RangeMax] so that bubble area, not radius, grows in
// proportion to the value.
type SqrtScale struct {
	DomainMax float64 `json:"domain_max"`
	RangeMin  float64 `json:"range_min"`
	RangeMax  float64 `json:"range_max"`
}

// RadiusScale builds the bubble radius scale from the intensity
// domain of pts. It must be rebuilt whenever pts changes.
func RadiusScale(pts []BubblePoint) SqrtScale {
	var maxIntensity float64
	for _, p := range pts {
		maxIntensity = math.Max(maxIntensity, p.Intensity)
	}
	return SqrtScale{
		DomainMax: maxIntensity,
		RangeMin:  minRadius,
		RangeMax:  maxRadius,
	}
}

// Radius returns the scaled radius for v. Values outside the
// domain extrapolate; an empty domain maps everything to
// RangeMin.
func (s SqrtScale) Radius(v float64) float64 {
	top := signedSqrt(s.DomainMax)
	if top == 0 {
		return s.RangeMin
	}
	t := signedSqrt(v) / top
	return s.RangeMin + t*(s.RangeMax-s.RangeMin)
}

func signedSqrt(v float64) float64 {
	if v < 0 {
		return -math.Sqrt(-v)
	}
	return math.Sqrt(v)
}
