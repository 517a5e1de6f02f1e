package model

import "time"

// City is a graph vertex. Coordinates are required; the IATA code is
// optional display metadata.
type City struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	IATA string  `json:"iata,omitempty"`
}

// FlightOffer is a priced, timed flight between two cities. Price is per
// person.
type FlightOffer struct {
	Airline       string    `json:"airline"`
	FlightNumber  string    `json:"flightNumber,omitempty"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departureTime"`
	ArrivalTime   time.Time `json:"arrivalTime"`
	Price         float64   `json:"price"`
	DurationMin   int       `json:"durationMin"`
	Stops         int       `json:"stops,omitempty"`
	Baggage       string    `json:"baggage,omitempty"`
}

// GroundOffer is a road transfer between two cities. Synthetic offers are
// fabricated by the planner when two cities are close enough to drive and no
// real offer connects them.
type GroundOffer struct {
	Provider      string    `json:"provider"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departureTime,omitzero"`
	ArrivalTime   time.Time `json:"arrivalTime,omitzero"`
	Price         float64   `json:"price"`
	DurationMin   int       `json:"durationMin"`
	DistanceKm    float64   `json:"distanceKm,omitempty"`
	Synthetic     bool      `json:"synthetic,omitempty"`
}

// HotelRate is a per-night rate attached to a city, used only when the
// request enables hotel search.
type HotelRate struct {
	City          string  `json:"city"`
	Name          string  `json:"name"`
	PricePerNight float64 `json:"pricePerNight"`
	Rating        float64 `json:"rating,omitempty"`
}

// CarRate is a per-day rental rate attached to a city.
type CarRate struct {
	City        string  `json:"city"`
	Company     string  `json:"company"`
	Model       string  `json:"model,omitempty"`
	PricePerDay float64 `json:"pricePerDay"`
}

// OfferSet groups every offer collection handed to one solve.
type OfferSet struct {
	Flights []FlightOffer `json:"flights,omitempty"`
	Ground  []GroundOffer `json:"ground,omitempty"`
	Hotels  []HotelRate   `json:"hotels,omitempty"`
	Cars    []CarRate     `json:"cars,omitempty"`
}

// TravelRequest describes what the traveler wants. WeightCost and WeightTime
// are normalized so they sum to 1 before the solve.
type TravelRequest struct {
	OriginCities      []City    `json:"originCities"`
	DestinationCities []City    `json:"destinationCities"`
	MandatoryCities   []string  `json:"mandatoryCities,omitempty"`
	PaxAdults         int       `json:"paxAdults"`
	PaxChildren       int       `json:"paxChildren,omitempty"`
	StartDate         time.Time `json:"startDate"`
	StayDaysPerCity   int       `json:"stayDaysPerCity,omitempty"`
	RoundTrip         bool      `json:"roundTrip,omitempty"`
	OpenJaw           bool      `json:"openJaw,omitempty"`
	WeightCost        float64   `json:"weightCost"`
	WeightTime        float64   `json:"weightTime"`
	IncludeHotels     bool      `json:"includeHotels,omitempty"`
	IncludeCars       bool      `json:"includeCars,omitempty"`
}

// Status classifies the outcome of one solve. A time budget exhausted with an
// incumbent in hand is FeasibleWithGap, never a failure.
type Status string

const (
	StatusOptimal         Status = "Optimal"
	StatusFeasibleWithGap Status = "FeasibleWithGap"
	StatusInfeasible      Status = "Infeasible"
	StatusSolverError     Status = "SolverError"
)

// LegMode distinguishes how a leg is traveled.
type LegMode string

const (
	ModeFlight LegMode = "flight"
	ModeGround LegMode = "ground"
)

// ItineraryLeg is one ordered hop of the returned itinerary.
type ItineraryLeg struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Mode      LegMode   `json:"mode"`
	Provider  string    `json:"provider,omitempty"`
	Price     float64   `json:"price"`
	Duration  int       `json:"durationMin"`
	StartTime time.Time `json:"startTime,omitzero"`
	EndTime   time.Time `json:"endTime,omitzero"`
	Synthetic bool      `json:"synthetic,omitempty"`
}

// CostBreakdown decomposes the total by offer category.
type CostBreakdown struct {
	Flight float64 `json:"flight"`
	Hotel  float64 `json:"hotel"`
	Car    float64 `json:"car"`
	Total  float64 `json:"total"`
}

// StandaloneOffer is a real offer that could not be attached to the returned
// chain; callers may use it for manual assembly.
type StandaloneOffer struct {
	Kind  string  `json:"kind"` // hotel or car
	City  string  `json:"city"`
	Name  string  `json:"name,omitempty"`
	Price float64 `json:"price"`
}

// PlanResult is the result record handed back to callers: the best itinerary
// found, or a best-effort partial diagnostic when the model is infeasible.
type PlanResult struct {
	Status               Status            `json:"status"`
	Itinerary            []ItineraryLeg    `json:"itinerary"`
	CostBreakdown        CostBreakdown     `json:"costBreakdown"`
	TotalDurationMin     int               `json:"totalDurationMin"`
	OptimalityGap        float64           `json:"optimalityGap"`
	ElapsedMs            int64             `json:"elapsedMs"`
	UnreachableMandatory []string          `json:"unreachableMandatory,omitempty"`
	StandaloneOffers     []StandaloneOffer `json:"standaloneOffers,omitempty"`
	Warning              string            `json:"warning,omitempty"`
}

// PlanJob is an asynchronous solve tracked by the store.
type PlanJob struct {
	ID        string        `json:"id"`
	TenantID  string        `json:"tenantId"`
	Status    string        `json:"status"` // queued, running, done, failed
	Request   TravelRequest `json:"request"`
	Offers    *OfferSet     `json:"offers,omitempty"`
	Result    *PlanResult   `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// PlanRequest is the body of POST /v1/plan and POST /v1/plans. Empty inline
// offer collections fall back to the tenant's stored catalog.
type PlanRequest struct {
	TenantID string        `json:"tenantId,omitempty"`
	Request  TravelRequest `json:"request"`
	Offers   OfferSet      `json:"offers"`
}

// Webhook subscription records (plan.completed, plan.failed).
type SubscriptionRequest struct {
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}
