package plan

import (
	"context"
	"math"
	"time"

	"tripsolver/internal/model"
)

// exactEngine is a tiny exhaustive MILP solver used as the injected solving
// capability in tests. It enumerates the free binary columns and checks the
// rows touching continuous columns as a difference-constraint system
// (Bellman-Ford), which covers the order variables exactly. Only suitable
// for the handful-of-cities models the tests build.
type exactEngine struct{}

func (exactEngine) Solve(_ context.Context, m *Model, _ time.Duration) (Outcome, error) {
	start := time.Now()

	var free []int
	values := make([]float64, len(m.Cols))
	for j, c := range m.Cols {
		if c.Kind == Binary && c.Upper > c.Lower {
			free = append(free, j)
		} else {
			values[j] = c.Lower
		}
	}
	if len(free) > 24 {
		return Outcome{Status: model.StatusSolverError}, errTooLarge
	}

	bestObj := math.Inf(1)
	var best []float64
	for mask := 0; mask < 1<<len(free); mask++ {
		for b, j := range free {
			if mask&(1<<b) != 0 {
				values[j] = 1
			} else {
				values[j] = 0
			}
		}
		if !rowsFeasible(m, values) {
			continue
		}
		obj := 0.0
		for j, c := range m.Cols {
			obj += c.Cost * values[j]
		}
		if obj < bestObj {
			bestObj = obj
			best = append([]float64(nil), values...)
		}
	}
	if best == nil {
		return Outcome{Status: model.StatusInfeasible, Elapsed: time.Since(start)}, nil
	}
	return Outcome{
		Status:    model.StatusOptimal,
		Values:    best,
		Objective: bestObj,
		Elapsed:   time.Since(start),
	}, nil
}

// rowsFeasible checks every row given fixed binary values. Rows over binary
// columns only are checked numerically; rows involving continuous columns
// must be of the difference form u_a - u_b <= bound and are fed to a
// Bellman-Ford feasibility pass together with the column bounds.
func rowsFeasible(m *Model, values []float64) bool {
	const tol = 1e-9

	type edge struct {
		from, to int
		w        float64
	}
	cont := map[int]int{} // column index -> difference-graph node
	for j, c := range m.Cols {
		if c.Kind == Continuous {
			cont[j] = len(cont) + 1 // node 0 is the virtual root
		}
	}
	var edges []edge
	for j, c := range m.Cols {
		node, ok := cont[j]
		if !ok {
			continue
		}
		// L <= u <= U as differences against the root.
		edges = append(edges, edge{from: 0, to: node, w: c.Upper})
		edges = append(edges, edge{from: node, to: 0, w: -c.Lower})
	}

	for _, row := range m.Rows {
		binSum := 0.0
		var pos, neg = -1, -1
		mixed := false
		for _, nz := range row.Coeffs {
			if _, ok := cont[nz.Col]; !ok {
				binSum += nz.Val * values[nz.Col]
				continue
			}
			switch nz.Val {
			case 1:
				pos = nz.Col
			case -1:
				neg = nz.Col
			default:
				mixed = true
			}
		}
		if pos < 0 && neg < 0 {
			if binSum < row.Lower-tol || binSum > row.Upper+tol {
				return false
			}
			continue
		}
		if mixed || pos < 0 || neg < 0 || !math.IsInf(row.Lower, -1) {
			// Not a difference constraint; the formulator does not emit
			// such rows.
			return false
		}
		// u_pos - u_neg <= Upper - binSum.
		edges = append(edges, edge{from: cont[neg], to: cont[pos], w: row.Upper - binSum})
	}

	// Bellman-Ford from the root; a negative cycle means infeasible.
	nNodes := len(cont) + 1
	dist := make([]float64, nNodes)
	for it := 0; it < nNodes; it++ {
		changed := false
		for _, e := range edges {
			if d := dist[e.from] + e.w; d < dist[e.to]-tol {
				dist[e.to] = d
				changed = true
			}
		}
		if !changed {
			return true
		}
	}
	return false
}

var errTooLarge = &ValidationError{Reason: "test engine limited to 24 free binaries"}

// stubEngine returns a canned outcome, for exercising the planner's handling
// of degraded and failing engines.
type stubEngine struct {
	out Outcome
	err error
}

func (s stubEngine) Solve(context.Context, *Model, time.Duration) (Outcome, error) {
	return s.out, s.err
}
