package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tripsolver/internal/config"
	"tripsolver/internal/model"
	"tripsolver/internal/plan"
)

type stubEngine struct{ out plan.Outcome }

func (e stubEngine) Solve(ctx context.Context, m *plan.Model, timeLimit time.Duration) (plan.Outcome, error) {
	return e.out, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(config.Config{Port: "0"})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	// The engine is not under test here; an always-infeasible stub keeps
	// handler tests independent of the solver binding.
	s.Planner = plan.New(func() plan.Engine {
		return stubEngine{out: plan.Outcome{Status: model.StatusInfeasible}}
	}, plan.DefaultConfig())
	return s
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(body)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	h(rr, req)
	return rr
}

func samplePlanRequest() model.PlanRequest {
	return model.PlanRequest{
		TenantID: "t_test",
		Request: model.TravelRequest{
			OriginCities:      []model.City{{Name: "Sao Paulo", Lat: -23.5505, Lng: -46.6333}},
			DestinationCities: []model.City{{Name: "Rio de Janeiro", Lat: -22.9068, Lng: -43.1729}},
			PaxAdults:         1,
			StartDate:         time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			WeightCost:        0.7,
			WeightTime:        0.3,
		},
		Offers: model.OfferSet{
			Flights: []model.FlightOffer{{
				Airline: "LA", Origin: "Sao Paulo", Destination: "Rio de Janeiro",
				Price: 350, DurationMin: 60,
				DepartureTime: time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
				ArrivalTime:   time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
			}},
		},
	}
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
}

func TestPlanSync(t *testing.T) {
	s := newTestServer(t)
	rr := postJSON(t, s.PlanHandler, "/v1/plan", samplePlanRequest())
	if rr.Code != 200 {
		t.Fatalf("plan: got %d body %s", rr.Code, rr.Body)
	}
	var res model.PlanResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	// The stub engine reports infeasible; the handler still answers 200
	// with the diagnostic result.
	if res.Status != model.StatusInfeasible {
		t.Fatalf("status = %s", res.Status)
	}
	if len(res.Itinerary) != 1 {
		t.Fatalf("partial itinerary = %+v", res.Itinerary)
	}
}

func TestPlanSyncRejectsInvalidRequest(t *testing.T) {
	s := newTestServer(t)
	bad := samplePlanRequest()
	bad.Request.PaxAdults = 0
	rr := postJSON(t, s.PlanHandler, "/v1/plan", bad)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d", rr.Code)
	}
	var p Problem
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil || p.Status != 400 {
		t.Fatalf("problem = %+v err=%v", p, err)
	}
}

func TestPlanSyncRejectsBadJSON(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/plan", bytes.NewReader([]byte("{")))
	s.PlanHandler(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d", rr.Code)
	}
}

func TestPlansAsyncLifecycle(t *testing.T) {
	s := newTestServer(t)
	rr := postJSON(t, s.PlansHandler, "/v1/plans", samplePlanRequest())
	if rr.Code != http.StatusAccepted {
		t.Fatalf("create: got %d body %s", rr.Code, rr.Body)
	}
	var job model.PlanJob
	if err := json.Unmarshal(rr.Body.Bytes(), &job); err != nil {
		t.Fatal(err)
	}
	if job.Status != "queued" || job.ID == "" {
		t.Fatalf("job = %+v", job)
	}

	// GET by id
	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/plans/"+job.ID, nil)
	req.Header.Set("X-Tenant-Id", "t_test")
	s.PlanByIDHandler(rr, req)
	if rr.Code != 200 {
		t.Fatalf("get: got %d", rr.Code)
	}

	// Run the worker once and observe completion.
	w := s.NewPlanWorker()
	ch := s.Broker.Subscribe(job.ID)
	defer s.Broker.Unsubscribe(job.ID, ch)
	w.ProcessOnce()

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/plans/"+job.ID, nil)
	req.Header.Set("X-Tenant-Id", "t_test")
	s.PlanByIDHandler(rr, req)
	var done model.PlanJob
	if err := json.Unmarshal(rr.Body.Bytes(), &done); err != nil {
		t.Fatal(err)
	}
	if done.Status != "done" || done.Result == nil {
		t.Fatalf("job after worker = %+v", done)
	}
	select {
	case evt := <-ch:
		if evt.Type != "plan.done" {
			t.Fatalf("event = %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("no broker event published")
	}

	// List
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/plans?limit=10", nil)
	req.Header.Set("X-Tenant-Id", "t_test")
	s.PlansHandler(rr, req)
	if rr.Code != 200 {
		t.Fatalf("list: got %d", rr.Code)
	}
}

func TestPlansRejectsInvalidBeforeQueueing(t *testing.T) {
	s := newTestServer(t)
	bad := samplePlanRequest()
	bad.Request.WeightCost = 0
	bad.Request.WeightTime = 0
	rr := postJSON(t, s.PlansHandler, "/v1/plans", bad)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d", rr.Code)
	}
}

func TestPlanByIDNotFound(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.PlanByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/plans/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d", rr.Code)
	}
}

func TestOffersImportAndCatalogFallback(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"tenantId": "t_test", "offers": samplePlanRequest().Offers}
	rr := postJSON(t, s.OffersHandler, "/v1/offers", body)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("import: got %d body %s", rr.Code, rr.Body)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/offers", nil)
	req.Header.Set("X-Tenant-Id", "t_test")
	s.OffersHandler(rr, req)
	var set model.OfferSet
	if err := json.Unmarshal(rr.Body.Bytes(), &set); err != nil || len(set.Flights) != 1 {
		t.Fatalf("catalog = %+v err=%v", set, err)
	}

	// A plan request without inline offers must use the catalog.
	noInline := samplePlanRequest()
	noInline.Offers = model.OfferSet{}
	rr = postJSON(t, s.PlanHandler, "/v1/plan", noInline)
	if rr.Code != 200 {
		t.Fatalf("plan from catalog: got %d body %s", rr.Code, rr.Body)
	}
	var res model.PlanResult
	_ = json.Unmarshal(rr.Body.Bytes(), &res)
	if len(res.Itinerary) != 1 {
		t.Fatalf("itinerary = %+v", res.Itinerary)
	}
}

func TestOffersImportRejectsMalformedRecord(t *testing.T) {
	s := newTestServer(t)
	offers := samplePlanRequest().Offers
	offers.Flights[0].Price = -120
	offers.Flights[0].DurationMin = 0
	rr := postJSON(t, s.OffersHandler, "/v1/offers", map[string]any{"tenantId": "t_test", "offers": offers})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d body %s", rr.Code, rr.Body)
	}
	var p Problem
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil || p.Title != "Invalid offers" {
		t.Fatalf("problem = %+v err=%v", p, err)
	}

	// Nothing from the rejected batch lands in the catalog.
	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/offers", nil)
	req.Header.Set("X-Tenant-Id", "t_test")
	s.OffersHandler(rr, req)
	var set model.OfferSet
	if err := json.Unmarshal(rr.Body.Bytes(), &set); err != nil || len(set.Flights) != 0 {
		t.Fatalf("catalog = %+v err=%v", set, err)
	}
}

func TestPlanSyncRejectsMalformedOffer(t *testing.T) {
	s := newTestServer(t)
	bad := samplePlanRequest()
	bad.Offers.Flights[0].Price = -120
	rr := postJSON(t, s.PlanHandler, "/v1/plan", bad)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d body %s", rr.Code, rr.Body)
	}
}

func TestPlansRejectsMalformedInlineOffers(t *testing.T) {
	s := newTestServer(t)
	bad := samplePlanRequest()
	bad.Offers.Flights[0].Origin = ""
	rr := postJSON(t, s.PlansHandler, "/v1/plans", bad)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d body %s", rr.Code, rr.Body)
	}
}

func TestOffersRejectsEmptyImport(t *testing.T) {
	s := newTestServer(t)
	rr := postJSON(t, s.OffersHandler, "/v1/offers", map[string]any{"tenantId": "t_test"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d", rr.Code)
	}
}

func TestSubscriptionsLifecycle(t *testing.T) {
	s := newTestServer(t)
	rr := postJSON(t, s.SubscriptionsHandler, "/v1/subscriptions", model.SubscriptionRequest{
		TenantID: "t_test", URL: "https://example.com/hook", Events: []string{"plan.completed"}, Secret: "s",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d body %s", rr.Code, rr.Body)
	}
	var sub model.Subscription
	if err := json.Unmarshal(rr.Body.Bytes(), &sub); err != nil {
		t.Fatal(err)
	}

	rr = postJSON(t, s.SubscriptionsHandler, "/v1/subscriptions", model.SubscriptionRequest{
		TenantID: "t_test", URL: "https://example.com/hook", Events: []string{"order.created"}, Secret: "s",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown event accepted: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil)
	req.Header.Set("X-Tenant-Id", "t_test")
	s.SubscriptionByIDHandler(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil)
	req.Header.Set("X-Tenant-Id", "t_test")
	s.SubscriptionByIDHandler(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete: got %d", rr.Code)
	}
}

func TestSolverConfigReportsTunables(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.SolverConfigHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solver/config", nil))
	if rr.Code != 200 {
		t.Fatalf("got %d", rr.Code)
	}
	var cfg map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg["groundThresholdKm"].(float64) != 400 {
		t.Fatalf("cfg = %+v", cfg)
	}
}
