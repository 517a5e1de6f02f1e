package jobs

import (
	"context"
	"testing"
	"time"

	"tripsolver/internal/model"
	"tripsolver/internal/plan"
	"tripsolver/internal/store"
	"tripsolver/internal/webhooks"
)

type infeasibleEngine struct{}

func (infeasibleEngine) Solve(ctx context.Context, m *plan.Model, timeLimit time.Duration) (plan.Outcome, error) {
	return plan.Outcome{Status: model.StatusInfeasible}, nil
}

func testPlanner() *plan.Planner {
	return plan.New(func() plan.Engine { return infeasibleEngine{} }, plan.DefaultConfig())
}

func validRequest() model.TravelRequest {
	return model.TravelRequest{
		OriginCities:      []model.City{{Name: "Sao Paulo", Lat: -23.5505, Lng: -46.6333}},
		DestinationCities: []model.City{{Name: "Manaus", Lat: -3.1190, Lng: -60.0217}},
		PaxAdults:         1,
		StartDate:         time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		WeightCost:        0.5,
		WeightTime:        0.5,
	}
}

func TestWorkerCompletesClaimedJob(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	job, err := m.CreatePlanJob(ctx, "t1", validRequest(), &model.OfferSet{})
	if err != nil {
		t.Fatal(err)
	}

	var notified []model.PlanJob
	w := NewWorker(m, testPlanner(), webhooks.NewPublisher(m))
	w.Notify = func(j model.PlanJob) { notified = append(notified, j) }
	w.ProcessOnce()

	got, err := m.GetPlanJob(ctx, "t1", job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "done" || got.Result == nil {
		t.Fatalf("job = %+v", got)
	}
	// No offers at all: the two cities are far apart, so the result is an
	// infeasibility diagnostic rather than an itinerary.
	if got.Result.Status != model.StatusInfeasible {
		t.Fatalf("result status = %s", got.Result.Status)
	}
	if len(notified) != 1 || notified[0].ID != job.ID {
		t.Fatalf("notified = %+v", notified)
	}
}

func TestWorkerFailsInvalidRequest(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	req := validRequest()
	req.PaxAdults = 0
	job, _ := m.CreatePlanJob(ctx, "t1", req, &model.OfferSet{})

	// Subscribe so the failure emits a delivery.
	if _, err := m.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t1", URL: "https://example.com/hook", Events: []string{webhooks.EventPlanFailed}, Secret: "s"}); err != nil {
		t.Fatal(err)
	}

	w := NewWorker(m, testPlanner(), webhooks.NewPublisher(m))
	w.ProcessOnce()

	got, _ := m.GetPlanJob(ctx, "t1", job.ID)
	if got.Status != "failed" || got.Error == "" {
		t.Fatalf("job = %+v", got)
	}
	due, _ := m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 1 || due[0].EventType != webhooks.EventPlanFailed {
		t.Fatalf("deliveries = %+v", due)
	}
}

func TestWorkerFallsBackToCatalogOffers(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	if _, err := m.ImportOffers(ctx, "t1", model.OfferSet{
		Flights: []model.FlightOffer{{Airline: "LA", Origin: "Sao Paulo", Destination: "Manaus", Price: 500, DurationMin: 240,
			DepartureTime: time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC), ArrivalTime: time.Date(2026, 9, 1, 13, 0, 0, 0, time.UTC)}},
	}); err != nil {
		t.Fatal(err)
	}
	// Offers omitted on the job: the worker must read the tenant catalog.
	job, _ := m.CreatePlanJob(ctx, "t1", validRequest(), nil)

	w := NewWorker(m, testPlanner(), webhooks.NewPublisher(m))
	w.ProcessOnce()

	got, _ := m.GetPlanJob(ctx, "t1", job.ID)
	if got.Status != "done" || got.Result == nil {
		t.Fatalf("job = %+v", got)
	}
	// The catalog flight connects the cities, so the infeasibility
	// fallback still produces a one-leg chain.
	if len(got.Result.Itinerary) != 1 || got.Result.Itinerary[0].To != "Manaus" {
		t.Fatalf("itinerary = %+v", got.Result.Itinerary)
	}
}
