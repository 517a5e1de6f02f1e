package plan

import (
	"context"
	"time"

	"tripsolver/internal/model"
)

// Outcome is what an Engine hands back. Values is indexed by model column
// and is populated for Optimal and FeasibleWithGap; Gap is defined only for
// FeasibleWithGap.
type Outcome struct {
	Status    model.Status
	Values    []float64
	Objective float64
	Gap       float64
	Elapsed   time.Duration
}

// Engine is the externally supplied mixed-integer solving capability. The
// planner never implements branch-and-cut itself; it formulates, submits and
// interprets. Reaching the time limit with an incumbent in hand must be
// reported as FeasibleWithGap, never as a failure.
//
// An Engine instance is not assumed safe for concurrent solves; the planner
// obtains a fresh one per request. Tie-breaking among equally optimal
// solutions is engine-dependent and not deterministic.
type Engine interface {
	Solve(ctx context.Context, m *Model, timeLimit time.Duration) (Outcome, error)
}

// EngineFactory yields an isolated Engine per request.
type EngineFactory func() Engine
