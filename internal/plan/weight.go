package plan

import "gonum.org/v1/gonum/floats"

// weightFloor keeps every arc strictly positive so the solver can never pick
// up cost-free cycles through the relaxed end-node MTZ rows.
const weightFloor = 1e-6

// computeWeights places cost and time on a comparable scale via min-max
// scaling across the candidate arcs of this graph, then blends them with the
// request weights. The scaling is recomputed per request; weights from one
// graph are never reused for another.
func computeWeights(g *Graph, alpha, beta float64) {
	if len(g.Arcs) == 0 {
		return
	}
	costs := make([]float64, len(g.Arcs))
	times := make([]float64, len(g.Arcs))
	for i, a := range g.Arcs {
		costs[i] = a.Cost
		times[i] = a.TimeMin
	}
	cMin, cMax := floats.Min(costs), floats.Max(costs)
	tMin, tMax := floats.Min(times), floats.Max(times)
	norm := func(v, lo, hi float64) float64 {
		if hi <= lo {
			return 0
		}
		return (v - lo) / (hi - lo)
	}
	for _, a := range g.Arcs {
		w := alpha*norm(a.Cost, cMin, cMax) + beta*norm(a.TimeMin, tMin, tMax)
		if w < weightFloor {
			w = weightFloor
		}
		a.Weight = w
	}
}
