package plan

import (
	"fmt"
	"math"
	"sort"

	"tripsolver/internal/model"
)

// epsilon treats near-integral solver values as selected; engines are free
// to return 0.99999 for a chosen binary.
const epsilon = 1e-5

func selected(v float64) bool { return math.Abs(v-1) <= epsilon }

// interpret reconstructs the ordered itinerary from a variable assignment.
// If following selected arcs does not terminate at the end city within
// |V| steps, the result degrades to SolverError instead of returning a
// truncated itinerary.
func interpret(m *Model, out Outcome) model.PlanResult {
	g := m.Graph()
	n := g.Order()
	res := model.PlanResult{
		Status:        out.Status,
		Itinerary:     []model.ItineraryLeg{},
		OptimalityGap: out.Gap,
		ElapsedMs:     out.Elapsed.Milliseconds(),
	}

	start, end := -1, -1
	for i := 0; i < n; i++ {
		if selected(out.Values[m.StartVar(i)]) {
			start = i
		}
		if selected(out.Values[m.EndVar(i)]) {
			end = i
		}
	}
	if start < 0 || end < 0 {
		res.Status = model.StatusSolverError
		res.Warning = "assignment has no start or end city; retry with a reduced graph"
		return res
	}

	current := start
	for steps := 0; ; steps++ {
		if steps > n {
			return model.PlanResult{
				Status:    model.StatusSolverError,
				Itinerary: []model.ItineraryLeg{},
				ElapsedMs: res.ElapsedMs,
				Warning:   "selected arcs do not form a terminating path; retry with a reduced graph",
			}
		}
		next := -1
		for j := 0; j < n; j++ {
			v, ok := m.ArcVar(current, j)
			if !ok || !selected(out.Values[v]) {
				continue
			}
			if next >= 0 {
				return model.PlanResult{
					Status:    model.StatusSolverError,
					Itinerary: []model.ItineraryLeg{},
					ElapsedMs: res.ElapsedMs,
					Warning:   fmt.Sprintf("city %s has two selected outgoing legs; retry with a reduced graph", g.Cities[current].Name),
				}
			}
			next = j
		}
		if next < 0 {
			if current != end || len(res.Itinerary) == 0 {
				return model.PlanResult{
					Status:    model.StatusSolverError,
					Itinerary: []model.ItineraryLeg{},
					ElapsedMs: res.ElapsedMs,
					Warning:   "selected arcs stop short of the end city; retry with a reduced graph",
				}
			}
			break
		}
		a := g.ArcBetween(current, next)
		res.Itinerary = append(res.Itinerary, legFromArc(g, a))
		addArcCosts(&res.CostBreakdown, a)
		res.TotalDurationMin += legDuration(a)
		current = next
		// A round trip re-enters its start; only stop there once a leg
		// has been taken.
		if current == end {
			break
		}
	}
	res.CostBreakdown.Total = res.CostBreakdown.Flight + res.CostBreakdown.Hotel + res.CostBreakdown.Car
	return res
}

func legDuration(a *Arc) int {
	if a.Flight != nil {
		return a.Flight.DurationMin
	}
	return a.Ground.DurationMin
}

func legFromArc(g *Graph, a *Arc) model.ItineraryLeg {
	leg := model.ItineraryLeg{
		From:  g.Cities[a.From].Name,
		To:    g.Cities[a.To].Name,
		Price: a.Price(),
	}
	if a.Flight != nil {
		leg.Mode = model.ModeFlight
		leg.Provider = a.Flight.Airline
		leg.Duration = a.Flight.DurationMin
		leg.StartTime = a.Flight.DepartureTime
		leg.EndTime = a.Flight.ArrivalTime
	} else {
		leg.Mode = model.ModeGround
		leg.Provider = a.Ground.Provider
		leg.Duration = a.Ground.DurationMin
		leg.StartTime = a.Ground.DepartureTime
		leg.EndTime = a.Ground.ArrivalTime
		leg.Synthetic = a.Ground.Synthetic
	}
	return leg
}

// addArcCosts re-attributes an arc's money cost to the offer categories it
// came from.
func addArcCosts(b *model.CostBreakdown, a *Arc) {
	b.Hotel += a.HotelCost
	if a.Flight != nil {
		b.Flight += a.Price()
		b.Car += a.CarCost
	} else {
		b.Car += a.Price() + a.CarCost
	}
}

// partialResult is the Infeasible path: no exception, always a best-effort
// diagnostic. It returns the longest chain the finite arcs still support,
// the mandatory cities that chain cannot reach, and real offers left
// unattached for manual assembly.
func partialResult(g *Graph, offers model.OfferSet, elapsed int64, reason string) model.PlanResult {
	res := model.PlanResult{
		Status:    model.StatusInfeasible,
		Itinerary: []model.ItineraryLeg{},
		ElapsedMs: elapsed,
		Warning:   reason,
	}

	comp := largestComponent(g)
	inComp := map[int]bool{}
	for _, i := range comp {
		inComp[i] = true
	}

	// Greedy chain inside the component: start at an origin when one is in
	// reach, then always take the lightest arc to an unvisited member.
	if len(comp) > 1 {
		start := comp[0]
		for _, i := range comp {
			if g.isOrigin[i] {
				start = i
				break
			}
		}
		visited := map[int]bool{start: true}
		current := start
		for {
			var best *Arc
			for j := range inComp {
				if visited[j] {
					continue
				}
				a := g.ArcBetween(current, j)
				if a != nil && (best == nil || a.Weight < best.Weight) {
					best = a
				}
			}
			if best == nil {
				break
			}
			res.Itinerary = append(res.Itinerary, legFromArc(g, best))
			addArcCosts(&res.CostBreakdown, best)
			res.TotalDurationMin += legDuration(best)
			visited[best.To] = true
			current = best.To
		}
	}
	res.CostBreakdown.Total = res.CostBreakdown.Flight + res.CostBreakdown.Hotel + res.CostBreakdown.Car

	// Mandatory cities outside the chain's component are unreachable from it.
	for i, c := range g.Cities {
		if g.isMandatory[i] && !inComp[i] {
			res.UnreachableMandatory = append(res.UnreachableMandatory, c.Name)
		}
	}
	sort.Strings(res.UnreachableMandatory)

	onChain := map[string]bool{}
	for _, leg := range res.Itinerary {
		onChain[leg.From] = true
		onChain[leg.To] = true
	}
	for _, h := range offers.Hotels {
		if !onChain[h.City] {
			res.StandaloneOffers = append(res.StandaloneOffers, model.StandaloneOffer{Kind: "hotel", City: h.City, Name: h.Name, Price: h.PricePerNight})
		}
	}
	for _, c := range offers.Cars {
		if !onChain[c.City] {
			res.StandaloneOffers = append(res.StandaloneOffers, model.StandaloneOffer{Kind: "car", City: c.City, Name: c.Company, Price: c.PricePerDay})
		}
	}
	return res
}

// largestComponent finds connected components over the finite arcs, treated
// as undirected, and returns the one covering the most requested cities
// (ties prefer a component holding an origin).
func largestComponent(g *Graph) []int {
	n := g.Order()
	seen := make([]bool, n)
	adj := make([][]int, n)
	for _, a := range g.Arcs {
		adj[a.From] = append(adj[a.From], a.To)
		adj[a.To] = append(adj[a.To], a.From)
	}
	var best []int
	bestHasOrigin := false
	for i := 0; i < n; i++ {
		if seen[i] {
			continue
		}
		comp := []int{}
		queue := []int{i}
		seen[i] = true
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			comp = append(comp, v)
			for _, w := range adj[v] {
				if !seen[w] {
					seen[w] = true
					queue = append(queue, w)
				}
			}
		}
		hasOrigin := false
		for _, v := range comp {
			if g.isOrigin[v] {
				hasOrigin = true
				break
			}
		}
		if len(comp) > len(best) || (len(comp) == len(best) && hasOrigin && !bestHasOrigin) {
			best = comp
			bestHasOrigin = hasOrigin
		}
	}
	sort.Ints(best)
	return best
}
