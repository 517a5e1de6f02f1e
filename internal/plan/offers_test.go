package plan

import (
	"context"
	"testing"

	"tripsolver/internal/model"
)

func cleanOffers() model.OfferSet {
	return model.OfferSet{
		Flights: []model.FlightOffer{flight(saoPaulo, rio, 350, 60)},
		Ground:  []model.GroundOffer{{Provider: "costa verde bus", Origin: rio.Name, Destination: angra.Name, Price: 80, DurationMin: 150}},
		Hotels:  []model.HotelRate{{City: rio.Name, Name: "Copacabana Palace", PricePerNight: 180}},
		Cars:    []model.CarRate{{City: rio.Name, Company: "Localiza", PricePerDay: 95}},
	}
}

func TestValidateOffersAcceptsWellFormedRecords(t *testing.T) {
	if err := ValidateOffers(cleanOffers()); err != nil {
		t.Fatalf("ValidateOffers: %v", err)
	}
}

func TestValidateOffersRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.OfferSet)
	}{
		{"flight negative price", func(s *model.OfferSet) { s.Flights[0].Price = -120 }},
		{"flight zero price", func(s *model.OfferSet) { s.Flights[0].Price = 0 }},
		{"flight zero duration", func(s *model.OfferSet) { s.Flights[0].DurationMin = 0 }},
		{"flight blank origin", func(s *model.OfferSet) { s.Flights[0].Origin = "" }},
		{"flight blank destination", func(s *model.OfferSet) { s.Flights[0].Destination = "" }},
		{"flight self loop", func(s *model.OfferSet) { s.Flights[0].Destination = s.Flights[0].Origin }},
		{"ground zero price", func(s *model.OfferSet) { s.Ground[0].Price = 0 }},
		{"ground negative duration", func(s *model.OfferSet) { s.Ground[0].DurationMin = -10 }},
		{"ground blank origin", func(s *model.OfferSet) { s.Ground[0].Origin = "" }},
		{"hotel blank city", func(s *model.OfferSet) { s.Hotels[0].City = "" }},
		{"hotel free night", func(s *model.OfferSet) { s.Hotels[0].PricePerNight = 0 }},
		{"car blank city", func(s *model.OfferSet) { s.Cars[0].City = "" }},
		{"car negative rate", func(s *model.OfferSet) { s.Cars[0].PricePerDay = -5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := cleanOffers()
			tc.mutate(&set)
			err := ValidateOffers(set)
			if !IsValidation(err) {
				t.Fatalf("want ValidationError, got %v", err)
			}
		})
	}
}

// A malformed record must be rejected before graph construction, never
// priced into an itinerary.
func TestPlanRejectsMalformedOffer(t *testing.T) {
	req := baseRequest([]model.City{saoPaulo}, []model.City{rio})
	offers := model.OfferSet{Flights: []model.FlightOffer{{
		Airline:     "TestAir",
		Origin:      saoPaulo.Name,
		Destination: rio.Name,
		Price:       -120,
		DurationMin: 0,
	}}}

	res, err := exactPlanner().Plan(context.Background(), req, offers)
	if !IsValidation(err) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if len(res.Itinerary) != 0 {
		t.Fatalf("rejected solve must not return legs: %+v", res.Itinerary)
	}
}
