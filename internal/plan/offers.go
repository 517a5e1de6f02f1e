package plan

import (
	"fmt"

	"tripsolver/internal/model"
)

// ValidateOffers rejects malformed offer records before any graph is built.
// Every field a solve depends on must be explicit: a record never gets a
// default price, duration, or location.
func ValidateOffers(set model.OfferSet) error {
	for i, f := range set.Flights {
		if f.Origin == "" || f.Destination == "" {
			return &ValidationError{Reason: fmt.Sprintf("flights[%d]: origin and destination are required", i)}
		}
		if f.Origin == f.Destination {
			return &ValidationError{Reason: fmt.Sprintf("flights[%d]: origin and destination are the same city", i)}
		}
		if f.Price <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("flights[%d]: price must be > 0", i)}
		}
		if f.DurationMin <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("flights[%d]: durationMin must be > 0", i)}
		}
	}
	for i, g := range set.Ground {
		if g.Origin == "" || g.Destination == "" {
			return &ValidationError{Reason: fmt.Sprintf("ground[%d]: origin and destination are required", i)}
		}
		if g.Origin == g.Destination {
			return &ValidationError{Reason: fmt.Sprintf("ground[%d]: origin and destination are the same city", i)}
		}
		if g.Price <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("ground[%d]: price must be > 0", i)}
		}
		if g.DurationMin <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("ground[%d]: durationMin must be > 0", i)}
		}
	}
	for i, h := range set.Hotels {
		if h.City == "" {
			return &ValidationError{Reason: fmt.Sprintf("hotels[%d]: city is required", i)}
		}
		if h.PricePerNight <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("hotels[%d]: pricePerNight must be > 0", i)}
		}
	}
	for i, c := range set.Cars {
		if c.City == "" {
			return &ValidationError{Reason: fmt.Sprintf("cars[%d]: city is required", i)}
		}
		if c.PricePerDay <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("cars[%d]: pricePerDay must be > 0", i)}
		}
	}
	return nil
}
