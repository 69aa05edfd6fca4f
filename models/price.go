package models

import "time"

// PricePoint is one price observation. Placeholders inserted to fill minute
// gaps carry zero price and zero volume.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
}

// Placeholder returns the zero point used to fill a missing minute.
func Placeholder(ts int64) PricePoint {
	return PricePoint{Timestamp: ts}
}

// IsPlaceholder reports whether p carries no price information.
func (p PricePoint) IsPlaceholder() bool {
	return p.Price == 0 && p.Volume == 0
}

// Minute returns the index of the 60 second bucket p falls into.
func (p PricePoint) Minute() int64 {
	return p.Timestamp / 60
}

func (p PricePoint) Time() time.Time {
	return time.Unix(p.Timestamp, 0).UTC()
}
