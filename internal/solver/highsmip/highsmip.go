// Package highsmip adapts the HiGHS mixed-integer solver to the planner's
// Engine contract. The adapter is a pass-through boundary: it translates the
// opaque model into HiGHS columns and rows and maps the result status back,
// implementing no search of its own.
package highsmip

import (
	"context"
	"fmt"
	"time"

	"github.com/lanl/highs"

	"tripsolver/internal/model"
	"tripsolver/internal/plan"
)

// Engine solves one model per call. Each call builds a private highs.Model,
// so a fresh Engine per request costs nothing and keeps solver state
// isolated across concurrent requests.
type Engine struct{}

// New returns a HiGHS engine. Use it as a plan.EngineFactory:
//
//	planner := plan.New(func() plan.Engine { return highsmip.New() }, cfg)
func New() *Engine { return &Engine{} }

func (e *Engine) Solve(ctx context.Context, m *plan.Model, timeLimit time.Duration) (plan.Outcome, error) {
	lp := new(highs.Model)

	ncols := len(m.Cols)
	lp.VarTypes = make([]highs.VariableType, ncols)
	lp.ColLower = make([]float64, ncols)
	lp.ColUpper = make([]float64, ncols)
	lp.ColCosts = make([]float64, ncols)
	for j, c := range m.Cols {
		if c.Kind == plan.Binary {
			lp.VarTypes[j] = highs.IntegerType
		} else {
			lp.VarTypes[j] = highs.ContinuousType
		}
		lp.ColLower[j] = c.Lower
		lp.ColUpper[j] = c.Upper
		lp.ColCosts[j] = c.Cost
	}

	lp.RowLower = make([]float64, len(m.Rows))
	lp.RowUpper = make([]float64, len(m.Rows))
	for r, row := range m.Rows {
		lp.RowLower[r] = row.Lower
		lp.RowUpper[r] = row.Upper
		for _, nz := range row.Coeffs {
			lp.ConstMatrix = append(lp.ConstMatrix, highs.Nonzero{Row: r, Col: nz.Col, Val: nz.Val})
		}
	}

	// The binding solves to completion and exposes no incumbent while
	// running, so the budget is enforced around the call: if it expires
	// first there is no feasible assignment to downgrade to, and the
	// outcome is a solver error by contract.
	start := time.Now()
	done := make(chan struct{})
	var out plan.Outcome
	var solveErr error
	go func() {
		defer close(done)
		sol, err := lp.Solve()
		elapsed := time.Since(start)
		if err != nil {
			solveErr = err
			out = plan.Outcome{Status: model.StatusSolverError, Elapsed: elapsed}
			return
		}
		switch sol.Status {
		case highs.Optimal:
			out = plan.Outcome{
				Status:    model.StatusOptimal,
				Values:    sol.ColumnPrimal,
				Objective: sol.Objective,
				Elapsed:   elapsed,
			}
		case highs.Infeasible:
			out = plan.Outcome{Status: model.StatusInfeasible, Elapsed: elapsed}
		default:
			solveErr = fmt.Errorf("highs: unexpected model status %s", sol.Status.String())
			out = plan.Outcome{Status: model.StatusSolverError, Elapsed: elapsed}
		}
	}()

	timer := time.NewTimer(timeLimit)
	defer timer.Stop()
	select {
	case <-done:
		return out, solveErr
	case <-ctx.Done():
		return plan.Outcome{Status: model.StatusSolverError, Elapsed: time.Since(start)}, ctx.Err()
	case <-timer.C:
		return plan.Outcome{Status: model.StatusSolverError, Elapsed: timeLimit},
			fmt.Errorf("highs: time budget %s exhausted before a feasible assignment was returned", timeLimit)
	}
}
