package plan

import (
	"context"
	"fmt"
	"log"
	"time"

	"tripsolver/internal/model"
)

// Planner is the stateless per-request orchestration: validate, build the
// graph, formulate, solve, interpret. Safe for concurrent use; every call
// owns its own graph, model and engine instance.
type Planner struct {
	NewEngine EngineFactory
	Cfg       Config
}

// New returns a Planner backed by the given engine factory.
func New(f EngineFactory, cfg Config) *Planner {
	return &Planner{NewEngine: f, Cfg: cfg}
}

// ValidateRequest rejects malformed requests before any graph work and
// normalizes the cost/time weights in place so they sum to 1.
func ValidateRequest(req *model.TravelRequest) error {
	if len(req.DestinationCities) == 0 {
		return &ValidationError{Reason: "destination set is empty"}
	}
	if len(req.OriginCities) == 0 {
		return &ValidationError{Reason: "origin set is empty"}
	}
	if req.RoundTrip && req.OpenJaw {
		return &ValidationError{Reason: "roundTrip and openJaw are mutually exclusive"}
	}
	if req.PaxAdults < 1 {
		return &ValidationError{Reason: "paxAdults must be >= 1"}
	}
	if req.PaxChildren < 0 {
		return &ValidationError{Reason: "paxChildren must be >= 0"}
	}
	if req.WeightCost < 0 || req.WeightTime < 0 {
		return &ValidationError{Reason: "weights must be >= 0"}
	}
	sum := req.WeightCost + req.WeightTime
	if sum <= 0 {
		return &ValidationError{Reason: "weightCost and weightTime must not both be zero"}
	}
	req.WeightCost /= sum
	req.WeightTime /= sum

	known := map[string]bool{}
	for _, c := range req.OriginCities {
		known[c.Name] = true
	}
	for _, c := range req.DestinationCities {
		known[c.Name] = true
	}
	for _, name := range req.MandatoryCities {
		if !known[name] {
			return &ValidationError{Reason: fmt.Sprintf("mandatory city %q is not in the origin or destination sets", name)}
		}
	}
	return nil
}

// Plan runs one solve end to end. A returned error is always a
// ValidationError; every solver-side condition (timeout, infeasibility,
// engine crash) is folded into the PlanResult status instead.
func (p *Planner) Plan(ctx context.Context, req model.TravelRequest, offers model.OfferSet) (model.PlanResult, error) {
	if err := ValidateRequest(&req); err != nil {
		return model.PlanResult{}, err
	}
	if err := ValidateOffers(offers); err != nil {
		return model.PlanResult{}, err
	}

	g, err := BuildGraph(req, offers, p.Cfg)
	if err != nil {
		return model.PlanResult{}, err
	}
	if g.Order() < 2 {
		res := partialResult(g, offers, 0, "fewer than two distinct cities in the request")
		return res, nil
	}

	// A mandatory city with no arcs at all makes the model provably
	// infeasible; skip the engine and answer with the diagnostic directly.
	if len(g.Unreachable) > 0 {
		gap := &DataGapError{Cities: g.Unreachable}
		res := partialResult(g, offers, 0, gap.Error())
		return res, nil
	}

	m := Formulate(g, req)

	budget := p.Cfg.TimeBudget
	if budget <= 0 {
		budget = DefaultConfig().TimeBudget
	}
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < budget {
			budget = rem
		}
	}

	eng := p.NewEngine()
	out, err := eng.Solve(ctx, m, budget)
	if err != nil {
		log.Printf("plan: engine failed: %v", err)
		return model.PlanResult{
			Status:    model.StatusSolverError,
			Itinerary: []model.ItineraryLeg{},
			ElapsedMs: out.Elapsed.Milliseconds(),
			Warning:   fmt.Sprintf("solving engine failed: %v; retry, possibly with a reduced graph", err),
		}, nil
	}

	switch out.Status {
	case model.StatusOptimal, model.StatusFeasibleWithGap:
		return interpret(m, out), nil
	case model.StatusInfeasible:
		res := partialResult(g, offers, out.Elapsed.Milliseconds(), "no itinerary satisfies every constraint")
		return res, nil
	default:
		return model.PlanResult{
			Status:    model.StatusSolverError,
			Itinerary: []model.ItineraryLeg{},
			ElapsedMs: out.Elapsed.Milliseconds(),
			Warning:   "solving engine returned no usable status; retry, possibly with a reduced graph",
		}, nil
	}
}
