// Package jobs runs queued plan solves in the background. Jobs are
// claimed from the store, solved with the planner, completed, and then
// announced through webhooks and the live event broker.
package jobs

import (
	"context"
	"log"
	"time"

	"tripsolver/internal/metrics"
	"tripsolver/internal/model"
	"tripsolver/internal/plan"
	"tripsolver/internal/store"
	"tripsolver/internal/webhooks"
)

type Worker struct {
	Store   store.Store
	Planner *plan.Planner
	Pub     *webhooks.Publisher
	// Notify pushes the finished job to live subscribers (SSE/WebSocket).
	// Nil is fine; the broker is optional.
	Notify func(job model.PlanJob)
	Stop   chan struct{}
}

func NewWorker(s store.Store, p *plan.Planner, pub *webhooks.Publisher) *Worker {
	return &Worker{Store: s, Planner: p, Pub: pub, Stop: make(chan struct{})}
}

func (w *Worker) Start() {
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-w.Stop:
				return
			case <-ticker.C:
				w.ProcessOnce()
			}
		}
	}()
}

// ProcessOnce claims and runs one batch of queued jobs.
func (w *Worker) ProcessOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	claimed, err := w.Store.ClaimQueuedPlanJobs(ctx, 4)
	if err != nil {
		log.Printf("jobs: claim: %v", err)
		return
	}
	for _, j := range claimed {
		w.runJob(ctx, j)
	}
}

func (w *Worker) runJob(ctx context.Context, j model.PlanJob) {
	offers, err := w.resolveOffers(ctx, j)
	if err != nil {
		w.finish(ctx, j, nil, err.Error())
		return
	}
	start := time.Now()
	res, err := w.Planner.Plan(ctx, j.Request, offers)
	if err != nil {
		// Only validation errors surface here; solver failures come back
		// as a SolverError result.
		w.finish(ctx, j, nil, err.Error())
		return
	}
	metrics.Solves.WithLabelValues(string(res.Status)).Inc()
	metrics.SolveDuration.WithLabelValues(string(res.Status)).Observe(time.Since(start).Seconds())
	if res.Status == model.StatusFeasibleWithGap {
		metrics.SolveGap.Observe(res.OptimalityGap)
	}
	w.finish(ctx, j, &res, "")
}

func (w *Worker) resolveOffers(ctx context.Context, j model.PlanJob) (model.OfferSet, error) {
	if j.Offers != nil {
		return *j.Offers, nil
	}
	return w.Store.GetOffers(ctx, j.TenantID)
}

func (w *Worker) finish(ctx context.Context, j model.PlanJob, res *model.PlanResult, errMsg string) {
	if err := w.Store.CompletePlanJob(ctx, j.ID, res, errMsg); err != nil {
		log.Printf("jobs: complete %s: %v", j.ID, err)
		return
	}
	event := webhooks.EventPlanCompleted
	if errMsg != "" {
		event = webhooks.EventPlanFailed
		j.Status = "failed"
		j.Error = errMsg
	} else {
		j.Status = "done"
		j.Result = res
	}
	j.UpdatedAt = time.Now().UTC()
	if w.Pub != nil {
		w.Pub.Emit(ctx, j.TenantID, event, map[string]any{"planId": j.ID, "status": j.Status})
	}
	if w.Notify != nil {
		w.Notify(j)
	}
}
