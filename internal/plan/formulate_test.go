package plan

import (
	"math"
	"strings"
	"testing"

	"tripsolver/internal/model"
)

func mustGraph(t *testing.T, req model.TravelRequest, offers model.OfferSet) *Graph {
	t.Helper()
	g, err := BuildGraph(req, offers, DefaultConfig())
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	return g
}

func TestFormulateVariableLayout(t *testing.T) {
	req := baseRequest([]model.City{saoPaulo}, []model.City{rio, salvador})
	offers := model.OfferSet{Flights: []model.FlightOffer{
		flight(saoPaulo, rio, 350, 60),
		flight(rio, salvador, 420, 110),
	}}
	g := mustGraph(t, req, offers)
	m := Formulate(g, req)

	n := g.Order()
	if want := len(g.Arcs) + 3*n; len(m.Cols) != want {
		t.Fatalf("columns: got %d, want %d (arcs + s/e/u per city)", len(m.Cols), want)
	}
	for _, a := range g.Arcs {
		v, ok := m.ArcVar(a.From, a.To)
		if !ok {
			t.Fatalf("missing arc variable for %d->%d", a.From, a.To)
		}
		c := m.Cols[v]
		if c.Kind != Binary || c.Cost != a.Weight {
			t.Fatalf("arc var %s: kind=%v cost=%g, want binary with cost %g", c.Name, c.Kind, c.Cost, a.Weight)
		}
	}
	for i := 0; i < n; i++ {
		if m.Cols[m.OrderVar(i)].Kind != Continuous {
			t.Fatalf("u_%d must be continuous", i)
		}
		if up := m.Cols[m.OrderVar(i)].Upper; up != float64(n) {
			t.Fatalf("u_%d upper: got %g, want %d", i, up, n)
		}
	}
}

func TestFormulateTripDomains(t *testing.T) {
	offers := model.OfferSet{Flights: []model.FlightOffer{
		flight(saoPaulo, rio, 350, 60),
		flight(rio, saoPaulo, 340, 65),
	}}

	cases := []struct {
		name      string
		roundTrip bool
		openJaw   bool
		// may the trip end at the origin city?
		endAtOrigin bool
		endAtDest   bool
	}{
		{name: "one-way", endAtOrigin: false, endAtDest: true},
		{name: "open-jaw", openJaw: true, endAtOrigin: true, endAtDest: true},
		{name: "round-trip", roundTrip: true, endAtOrigin: true, endAtDest: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseRequest([]model.City{saoPaulo}, []model.City{rio})
			req.RoundTrip = tc.roundTrip
			req.OpenJaw = tc.openJaw
			g := mustGraph(t, req, offers)
			m := Formulate(g, req)

			sp, _ := g.CityIndex(saoPaulo.Name)
			rj, _ := g.CityIndex(rio.Name)
			if up := m.Cols[m.StartVar(sp)].Upper; up != 1 {
				t.Fatalf("origin must be allowed to start (upper=%g)", up)
			}
			if up := m.Cols[m.StartVar(rj)].Upper; up != 0 {
				t.Fatalf("non-origin must not start (upper=%g)", up)
			}
			if got := m.Cols[m.EndVar(sp)].Upper == 1; got != tc.endAtOrigin {
				t.Fatalf("end-at-origin: got %v, want %v", got, tc.endAtOrigin)
			}
			if got := m.Cols[m.EndVar(rj)].Upper == 1; got != tc.endAtDest {
				t.Fatalf("end-at-destination: got %v, want %v", got, tc.endAtDest)
			}
		})
	}
}

func TestFormulateConstraintShape(t *testing.T) {
	req := baseRequest([]model.City{saoPaulo}, []model.City{rio, salvador})
	req.MandatoryCities = []string{salvador.Name}
	offers := model.OfferSet{Flights: []model.FlightOffer{
		flight(saoPaulo, rio, 350, 60),
		flight(rio, salvador, 420, 110),
		flight(saoPaulo, salvador, 610, 140),
	}}
	g := mustGraph(t, req, offers)
	m := Formulate(g, req)

	counts := map[string]int{}
	for _, r := range m.Rows {
		switch {
		case r.Name == "one_start" || r.Name == "one_end" || r.Name == "nonempty":
			counts[r.Name]++
		case strings.HasPrefix(r.Name, "balance_"):
			counts["balance"]++
		case strings.HasPrefix(r.Name, "mtz_"):
			counts["mtz"]++
			if !math.IsInf(r.Lower, -1) {
				t.Fatalf("%s must be upper-bounded only", r.Name)
			}
		case strings.HasPrefix(r.Name, "visit_"):
			counts["visit"]++
		}
	}
	if counts["one_start"] != 1 || counts["one_end"] != 1 || counts["nonempty"] != 1 {
		t.Fatalf("start/end/nonempty rows: %v", counts)
	}
	if counts["balance"] != g.Order() {
		t.Fatalf("balance rows: got %d, want %d", counts["balance"], g.Order())
	}
	if counts["mtz"] != len(g.Arcs) {
		t.Fatalf("mtz rows: got %d, want one per arc (%d)", counts["mtz"], len(g.Arcs))
	}
	if counts["visit"] != 2 {
		t.Fatalf("visit rows: got %d, want 2 (in+out for one mandatory city)", counts["visit"])
	}
}
