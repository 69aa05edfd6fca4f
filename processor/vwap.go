package processor

import "keeperstats/models"

// VwapSeries holds one rolling VWAP per window start. Windows without any
// volume have no value.
type VwapSeries struct {
	values []float64
	valid  []bool
}

// NewVwapSeries builds a series from explicit values. A NaN-free caller
// marks missing entries through valid.
func NewVwapSeries(values []float64, valid []bool) VwapSeries {
	if len(values) != len(valid) {
		panic("vwap values and validity mask differ in length")
	}
	return VwapSeries{values: values, valid: valid}
}

func (s VwapSeries) Len() int {
	return len(s.values)
}

// At returns the VWAP of window i and whether it is known.
func (s VwapSeries) At(i int) (float64, bool) {
	return s.values[i], s.valid[i]
}

// Values returns the series with nil for unknown windows.
func (s VwapSeries) Values() []*float64 {
	out := make([]*float64, len(s.values))
	for i := range s.values {
		if s.valid[i] {
			v := s.values[i]
			out[i] = &v
		}
	}
	return out
}

// RollingVWAP computes the volume weighted average price over every window
// of windowMinutes consecutive granular points. The result has
// len(granular)-windowMinutes+1 entries, or none when the series is shorter
// than the window.
func RollingVWAP(granular []models.PricePoint, windowMinutes int) VwapSeries {
	if windowMinutes <= 0 || len(granular) < windowMinutes {
		return VwapSeries{values: []float64{}, valid: []bool{}}
	}

	n := len(granular) - windowMinutes + 1
	values := make([]float64, n)
	valid := make([]bool, n)

	// traded counts points with volume in the window; the running sums are
	// reset whenever it drops to zero.
	var notional, volume float64
	traded := 0
	add := func(p models.PricePoint, sign float64) {
		notional += sign * p.Price * p.Volume
		volume += sign * p.Volume
		if p.Volume != 0 {
			traded += int(sign)
		}
		if traded == 0 {
			notional, volume = 0, 0
		}
	}
	for i := 0; i < windowMinutes; i++ {
		add(granular[i], 1)
	}
	for i := 0; ; i++ {
		if traded > 0 && volume != 0 {
			values[i] = notional / volume
			valid[i] = true
		}
		if i == n-1 {
			break
		}
		add(granular[i], -1)
		add(granular[i+windowMinutes], 1)
	}

	return VwapSeries{values: values, valid: valid}
}

// ApproxVWAPs granularizes prices and returns their rolling VWAP together
// with the timestamp of the first granular point, which anchors trade
// buckets. The start is -1 when there are no prices.
func ApproxVWAPs(prices []models.PricePoint, windowMinutes int) (VwapSeries, int64) {
	granular := Granularize(prices)
	start := int64(-1)
	if len(granular) > 0 {
		start = granular[0].Timestamp
	}
	return RollingVWAP(granular, windowMinutes), start
}
