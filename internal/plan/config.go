package plan

import "time"

// Config carries the tunables of one solve. Values are fixed per request;
// nothing here is shared mutable state.
type Config struct {
	// GroundThresholdKm is the maximum haversine distance for which a
	// synthetic ground transfer is fabricated between two cities that no
	// real offer connects.
	GroundThresholdKm float64
	// RoadSpeedKph is the assumed average road speed for synthetic
	// transfer duration estimates.
	RoadSpeedKph float64
	// GroundCostPerKm prices a synthetic transfer (rental share plus fuel).
	GroundCostPerKm float64
	// LayoverOverheadMin is added to every leg's travel time to account
	// for check-in, boarding and transfers.
	LayoverOverheadMin float64
	// ChildFactor scales a child against a full adult fare/rate.
	ChildFactor float64
	// TimeBudget bounds the wall-clock time of the solving call.
	TimeBudget time.Duration
}

// DefaultConfig mirrors the constants the original planner shipped with:
// 400 km drivable radius, 80 km/h, 2.0 currency units per km.
func DefaultConfig() Config {
	return Config{
		GroundThresholdKm:  400,
		RoadSpeedKph:       80,
		GroundCostPerKm:    2.0,
		LayoverOverheadMin: 90,
		ChildFactor:        0.5,
		TimeBudget:         30 * time.Second,
	}
}

// paxUnits is the party size used for money scaling: adults plus children
// at ChildFactor, never below one.
func (c Config) paxUnits(adults, children int) float64 {
	f := c.ChildFactor
	if f <= 0 {
		f = 0.5
	}
	u := float64(adults) + float64(children)*f
	if u < 1 {
		u = 1
	}
	return u
}
