package processor

import "keeperstats/models"

// Granularize returns a minute-aligned copy of prices with at most one point
// per 60 second bucket. When several points share a bucket the first one is
// kept. Missing minutes between kept points are filled with placeholders
// spaced 60 seconds from the previous input point.
func Granularize(prices []models.PricePoint) []models.PricePoint {
	if len(prices) == 0 {
		return []models.PricePoint{}
	}

	out := make([]models.PricePoint, 0, len(prices))
	out = append(out, prices[0])
	lastTimestamp := prices[0].Timestamp

	for _, p := range prices[1:] {
		increment := p.Timestamp/60 - lastTimestamp/60
		for i := int64(0); i < increment-1; i++ {
			out = append(out, models.Placeholder(lastTimestamp+60*(i+1)))
		}
		if increment > 0 {
			out = append(out, p)
		}
		lastTimestamp = p.Timestamp
	}

	return out
}

// GranularLen returns the number of points Granularize would produce for
// prices without allocating them.
func GranularLen(prices []models.PricePoint) int64 {
	if len(prices) == 0 {
		return 0
	}
	n := int64(1)
	last := prices[0].Timestamp
	for _, p := range prices[1:] {
		if increment := p.Timestamp/60 - last/60; increment > 0 {
			n += increment
		}
		last = p.Timestamp
	}
	return n
}
