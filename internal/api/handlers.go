package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tripsolver/internal/metrics"
	"tripsolver/internal/model"
	"tripsolver/internal/plan"
	"tripsolver/internal/store"
)

// PlanHandler handles POST /v1/plan: a synchronous solve inside the
// request, bounded by the configured time budget.
func (s *Server) PlanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.TenantID == "" {
		_, req.TenantID = s.withTenant(r)
	}
	offers := req.Offers
	if offersEmpty(offers) {
		var err error
		offers, err = s.Store.GetOffers(r.Context(), req.TenantID)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Offer lookup failed", err.Error(), r.URL.Path)
			return
		}
	}
	start := time.Now()
	res, err := s.Planner.Plan(r.Context(), req.Request, offers)
	if err != nil {
		if plan.IsValidation(err) {
			writeProblem(w, http.StatusBadRequest, "Invalid travel request", err.Error(), r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Plan failed", err.Error(), r.URL.Path)
		return
	}
	metrics.Solves.WithLabelValues(string(res.Status)).Inc()
	metrics.SolveDuration.WithLabelValues(string(res.Status)).Observe(time.Since(start).Seconds())
	if res.Status == model.StatusFeasibleWithGap {
		metrics.SolveGap.Observe(res.OptimalityGap)
	}
	writeJSON(w, http.StatusOK, res)
}

// PlansHandler handles POST/GET /v1/plans: enqueue an asynchronous solve
// or list the tenant's jobs.
func (s *Server) PlansHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req model.PlanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			_, req.TenantID = s.withTenant(r)
		}
		// Fail fast on requests that would never solve.
		if err := plan.ValidateRequest(&req.Request); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid travel request", err.Error(), r.URL.Path)
			return
		}
		var inline *model.OfferSet
		if !offersEmpty(req.Offers) {
			if err := plan.ValidateOffers(req.Offers); err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid offers", err.Error(), r.URL.Path)
				return
			}
			inline = &req.Offers
		}
		job, err := s.Store.CreatePlanJob(r.Context(), req.TenantID, req.Request, inline)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create plan failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusAccepted, job)
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListPlanJobs(r.Context(), tenant, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List plans failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// PlanByIDHandler handles GET /v1/plans/{id} and the live stream at
// /v1/plans/{id}/events/stream.
func (s *Server) PlanByIDHandler(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/v1/plans/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/plans/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if len(parts) >= 3 && parts[1] == "events" && parts[2] == "stream" {
		s.streamPlanEvents(w, r, id)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, tenant := s.withTenant(r)
	job, err := s.Store.GetPlanJob(r.Context(), tenant, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Plan not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Get plan failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) streamPlanEvents(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	// initial heartbeat
	fmt.Fprintf(w, "event: heartbeat\n")
	fmt.Fprintf(w, "data: {\"planId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
	flusher.Flush()
	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", string(b))
			flusher.Flush()
		case <-time.After(15 * time.Second):
			fmt.Fprintf(w, "event: heartbeat\n")
			fmt.Fprintf(w, "data: {\"planId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

// OffersHandler handles POST/GET /v1/offers: import to and read from the
// tenant catalog.
func (s *Server) OffersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			TenantID string         `json:"tenantId"`
			Offers   model.OfferSet `json:"offers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			_, req.TenantID = s.withTenant(r)
		}
		if offersEmpty(req.Offers) {
			writeProblem(w, http.StatusBadRequest, "Empty import", "no offers in request body", r.URL.Path)
			return
		}
		if err := plan.ValidateOffers(req.Offers); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid offers", err.Error(), r.URL.Path)
			return
		}
		created, err := s.Store.ImportOffers(r.Context(), req.TenantID, req.Offers)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Import offers failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"created": created})
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		set, err := s.Store.GetOffers(r.Context(), tenant)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List offers failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, set)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SolverConfigHandler reports the effective solver tunables.
func (s *Server) SolverConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/solver/config" || r.Method != http.MethodGet {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	cfg := s.Planner.Cfg
	writeJSON(w, http.StatusOK, map[string]any{
		"timeBudgetMs":       cfg.TimeBudget.Milliseconds(),
		"groundThresholdKm":  cfg.GroundThresholdKm,
		"roadSpeedKph":       cfg.RoadSpeedKph,
		"groundCostPerKm":    cfg.GroundCostPerKm,
		"layoverOverheadMin": cfg.LayoverOverheadMin,
		"childFactor":        cfg.ChildFactor,
	})
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			_, req.TenantID = s.withTenant(r)
		}
		if err := validateSubscription(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", err.Error(), r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListSubscriptions(r.Context(), tenant, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, tenant := s.withTenant(r)
	if err := s.Store.DeleteSubscription(r.Context(), tenant, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Subscription not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Delete subscription failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Store unavailable", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func offersEmpty(set model.OfferSet) bool {
	return len(set.Flights) == 0 && len(set.Ground) == 0 && len(set.Hotels) == 0 && len(set.Cars) == 0
}
