// Package plan turns raw travel offers and a traveler's request into a
// mixed-integer itinerary model, hands it to an injected solving engine and
// translates the engine's output back into an ordered itinerary.
package plan

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"tripsolver/internal/model"
)

// Arc is a directed leg candidate between two cities. At most one arc
// survives per ordered pair; disconnected pairs carry no arc at all rather
// than a large finite penalty.
type Arc struct {
	From, To int

	// Cost is the party money cost of taking this leg: transport price
	// plus the stay add-ons at the destination.
	Cost      float64
	HotelCost float64 // portion of Cost from the hotel stay at To
	CarCost   float64 // portion of Cost from the car rental at To
	TimeMin   float64 // transport duration plus layover overhead

	// Weight is the scalar objective coefficient, set by computeWeights.
	Weight float64

	Flight *model.FlightOffer
	Ground *model.GroundOffer
}

// Price returns the transport-only price of the arc.
func (a *Arc) Price() float64 { return a.Cost - a.HotelCost - a.CarCost }

// Graph is the per-request vertex/arc structure the model is built over.
// It is immutable once built.
type Graph struct {
	Cities []model.City
	Arcs   []*Arc

	// Unreachable lists mandatory cities with zero incident arcs. They are
	// carried forward as a diagnostic, never silently dropped.
	Unreachable []string

	index       map[string]int
	at          map[[2]int]*Arc
	isOrigin    []bool
	isDest      []bool
	isMandatory []bool

	hotelRates map[int]model.HotelRate
	carRates   map[int]model.CarRate
}

// Order returns the number of vertices.
func (g *Graph) Order() int { return len(g.Cities) }

// CityIndex resolves a city name to its vertex index.
func (g *Graph) CityIndex(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}

// ArcBetween returns the retained arc for the ordered pair, or nil.
func (g *Graph) ArcBetween(i, j int) *Arc { return g.at[[2]int{i, j}] }

// BuildGraph consolidates the requested cities into vertices and reduces the
// offer collections to at most one weighted arc per ordered pair. Pairs with
// no offer within driving distance get a synthetic ground arc; pairs beyond
// the threshold stay disconnected.
func BuildGraph(req model.TravelRequest, offers model.OfferSet, cfg Config) (*Graph, error) {
	g := &Graph{
		index:      map[string]int{},
		at:         map[[2]int]*Arc{},
		hotelRates: map[int]model.HotelRate{},
		carRates:   map[int]model.CarRate{},
	}
	addCity := func(c model.City) {
		if _, ok := g.index[c.Name]; ok {
			return
		}
		g.index[c.Name] = len(g.Cities)
		g.Cities = append(g.Cities, c)
	}
	for _, c := range req.OriginCities {
		addCity(c)
	}
	for _, c := range req.DestinationCities {
		addCity(c)
	}
	n := len(g.Cities)
	if n == 0 {
		return nil, &ValidationError{Reason: "no cities in request"}
	}

	g.isOrigin = make([]bool, n)
	g.isDest = make([]bool, n)
	g.isMandatory = make([]bool, n)
	for _, c := range req.OriginCities {
		g.isOrigin[g.index[c.Name]] = true
	}
	for _, c := range req.DestinationCities {
		g.isDest[g.index[c.Name]] = true
	}
	for _, name := range req.MandatoryCities {
		i, ok := g.index[name]
		if !ok {
			return nil, &ValidationError{Reason: fmt.Sprintf("mandatory city %q is not in the origin or destination sets", name)}
		}
		g.isMandatory[i] = true
	}

	// Cheapest stay rates per city, applied as arc add-ons at the
	// destination when the request enables them.
	if req.IncludeHotels {
		for _, h := range offers.Hotels {
			if i, ok := g.index[h.City]; ok {
				if cur, seen := g.hotelRates[i]; !seen || h.PricePerNight < cur.PricePerNight {
					g.hotelRates[i] = h
				}
			}
		}
	}
	if req.IncludeCars {
		for _, c := range offers.Cars {
			if i, ok := g.index[c.City]; ok {
				if cur, seen := g.carRates[i]; !seen || c.PricePerDay < cur.PricePerDay {
					g.carRates[i] = c
				}
			}
		}
	}

	pax := cfg.paxUnits(req.PaxAdults, req.PaxChildren)
	alpha, beta := req.WeightCost, req.WeightTime

	// Greedy reduction: keep only the offer minimizing the pre-ranking
	// score per ordered pair, bounding the model to O(n^2) arcs no matter
	// how many offers came in.
	score := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			score.Set(i, j, math.Inf(1))
		}
	}
	keep := func(i, j int, prerank float64, a *Arc) {
		if prerank < score.At(i, j) {
			score.Set(i, j, prerank)
			g.at[[2]int{i, j}] = a
		}
	}
	for fi := range offers.Flights {
		f := &offers.Flights[fi]
		i, oki := g.index[f.Origin]
		j, okj := g.index[f.Destination]
		if !oki || !okj || i == j {
			continue
		}
		price := f.Price * pax
		prerank := alpha*price + beta*float64(f.DurationMin)
		keep(i, j, prerank, &Arc{From: i, To: j, Cost: price, TimeMin: float64(f.DurationMin), Flight: f})
	}
	for gi := range offers.Ground {
		o := &offers.Ground[gi]
		i, oki := g.index[o.Origin]
		j, okj := g.index[o.Destination]
		if !oki || !okj || i == j {
			continue
		}
		// Ground prices quote the whole party (a rental car).
		prerank := alpha*o.Price + beta*float64(o.DurationMin)
		keep(i, j, prerank, &Arc{From: i, To: j, Cost: o.Price, TimeMin: float64(o.DurationMin), Ground: o})
	}

	// Synthetic ground transfers for pairs no real offer connects.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || g.at[[2]int{i, j}] != nil {
				continue
			}
			dist := HaversineKm(g.Cities[i].Lat, g.Cities[i].Lng, g.Cities[j].Lat, g.Cities[j].Lng)
			if dist > cfg.GroundThresholdKm {
				continue
			}
			dur := int(math.Round(dist / cfg.RoadSpeedKph * 60))
			dep := req.StartDate.Add(8 * time.Hour)
			o := &model.GroundOffer{
				Provider:      "ground-transfer",
				Origin:        g.Cities[i].Name,
				Destination:   g.Cities[j].Name,
				DepartureTime: dep,
				ArrivalTime:   dep.Add(time.Duration(dur) * time.Minute),
				Price:         math.Round(dist*cfg.GroundCostPerKm*100) / 100,
				DurationMin:   dur,
				DistanceKm:    dist,
				Synthetic:     true,
			}
			g.at[[2]int{i, j}] = &Arc{From: i, To: j, Cost: o.Price, TimeMin: float64(o.DurationMin), Ground: o}
		}
	}

	// Finalize retained arcs: stay add-ons, layover overhead, arc list.
	stay := float64(req.StayDaysPerCity)
	if stay <= 0 {
		stay = 1
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a := g.at[[2]int{i, j}]
			if a == nil {
				continue
			}
			if h, ok := g.hotelRates[j]; ok {
				a.HotelCost = h.PricePerNight * stay * pax
				a.Cost += a.HotelCost
			}
			if c, ok := g.carRates[j]; ok {
				a.CarCost = c.PricePerDay * stay
				a.Cost += a.CarCost
			}
			a.TimeMin += cfg.LayoverOverheadMin
			g.Arcs = append(g.Arcs, a)
		}
	}

	// Mandatory cities with no incident arcs are structurally unreachable.
	degree := make([]int, n)
	for _, a := range g.Arcs {
		degree[a.From]++
		degree[a.To]++
	}
	for i := 0; i < n; i++ {
		if g.isMandatory[i] && degree[i] == 0 {
			g.Unreachable = append(g.Unreachable, g.Cities[i].Name)
		}
	}

	computeWeights(g, alpha, beta)
	return g, nil
}

// HaversineKm returns the great-circle distance between two coordinates in
// kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const r = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return r * c
}
