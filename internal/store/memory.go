package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tripsolver/internal/model"
)

// Memory is the in-memory store used when no DATABASE_URL is set. All
// state is tenant-keyed the same way the Postgres store shards by the
// tenant_id column.
type Memory struct {
	mu         sync.Mutex
	offers     map[string]*model.OfferSet    // tenant -> catalog
	jobs       map[string]model.PlanJob      // id -> job
	jobsByTen  map[string][]string           // tenant -> job ids, insertion order
	queue      []string                      // queued job ids, FIFO
	subs       map[string][]model.Subscription
	deliveries map[string]*WebhookDelivery
	orderIDs   []string // delivery ids, insertion order
}

func NewMemory() *Memory {
	return &Memory{
		offers:     map[string]*model.OfferSet{},
		jobs:       map[string]model.PlanJob{},
		jobsByTen:  map[string][]string{},
		subs:       map[string][]model.Subscription{},
		deliveries: map[string]*WebhookDelivery{},
	}
}

func (m *Memory) ImportOffers(ctx context.Context, tenantID string, set model.OfferSet) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cat := m.offers[tenantID]
	if cat == nil {
		cat = &model.OfferSet{}
		m.offers[tenantID] = cat
	}
	cat.Flights = append(cat.Flights, set.Flights...)
	cat.Ground = append(cat.Ground, set.Ground...)
	cat.Hotels = append(cat.Hotels, set.Hotels...)
	cat.Cars = append(cat.Cars, set.Cars...)
	return len(set.Flights) + len(set.Ground) + len(set.Hotels) + len(set.Cars), nil
}

func (m *Memory) GetOffers(ctx context.Context, tenantID string) (model.OfferSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cat := m.offers[tenantID]
	if cat == nil {
		return model.OfferSet{}, nil
	}
	out := model.OfferSet{
		Flights: append([]model.FlightOffer(nil), cat.Flights...),
		Ground:  append([]model.GroundOffer(nil), cat.Ground...),
		Hotels:  append([]model.HotelRate(nil), cat.Hotels...),
		Cars:    append([]model.CarRate(nil), cat.Cars...),
	}
	return out, nil
}

func (m *Memory) CreatePlanJob(ctx context.Context, tenantID string, req model.TravelRequest, offers *model.OfferSet) (model.PlanJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	j := model.PlanJob{ID: uuid.New().String(), TenantID: tenantID, Status: "queued", Request: req, Offers: offers, CreatedAt: now, UpdatedAt: now}
	m.jobs[j.ID] = j
	m.jobsByTen[tenantID] = append(m.jobsByTen[tenantID], j.ID)
	m.queue = append(m.queue, j.ID)
	return j, nil
}

func (m *Memory) GetPlanJob(ctx context.Context, tenantID, id string) (model.PlanJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.TenantID != tenantID {
		return model.PlanJob{}, ErrNotFound
	}
	return j, nil
}

func (m *Memory) ListPlanJobs(ctx context.Context, tenantID, cursor string, limit int) ([]model.PlanJob, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.jobsByTen[tenantID]
	start := 0
	if cursor != "" {
		for i, id := range ids {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	out := []model.PlanJob{}
	var next string
	for i := start; i < len(ids) && len(out) < limit; i++ {
		out = append(out, m.jobs[ids[i]])
		next = ids[i]
	}
	if len(out) < limit {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) ClaimQueuedPlanJobs(ctx context.Context, limit int) ([]model.PlanJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 10
	}
	out := []model.PlanJob{}
	for len(m.queue) > 0 && len(out) < limit {
		id := m.queue[0]
		m.queue = m.queue[1:]
		j, ok := m.jobs[id]
		if !ok || j.Status != "queued" {
			continue
		}
		j.Status = "running"
		j.UpdatedAt = time.Now().UTC()
		m.jobs[id] = j
		out = append(out, j)
	}
	return out, nil
}

func (m *Memory) CompletePlanJob(ctx context.Context, id string, result *model.PlanResult, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if errMsg != "" {
		j.Status = "failed"
		j.Error = errMsg
	} else {
		j.Status = "done"
		j.Result = result
	}
	j.UpdatedAt = time.Now().UTC()
	m.jobs[id] = j
	return nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs[req.TenantID] = append(m.subs[req.TenantID], s)
	return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs[tenantID] {
		for _, e := range s.Events {
			if e == eventType {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.subs[tenantID]
	start := 0
	if cursor != "" {
		for i := range list {
			if list[i].ID == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	end := start + limit
	if end > len(list) {
		end = len(list)
	}
	items := append([]model.Subscription(nil), list[start:end]...)
	next := ""
	if end < len(list) {
		next = list[end-1].ID
	}
	return items, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	arr := m.subs[tenantID]
	out := make([]model.Subscription, 0, len(arr))
	found := false
	for _, s := range arr {
		if s.ID == id {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		return ErrNotFound
	}
	m.subs[tenantID] = out
	return nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &WebhookDelivery{
		ID: id, TenantID: tenantID, SubscriptionID: subscriptionID,
		EventType: eventType, URL: url, Secret: secret, Payload: payload,
		Status: DeliveryPending, NextAttemptAt: time.Now(), CreatedAt: time.Now().UTC(),
	}
	m.orderIDs = append(m.orderIDs, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.orderIDs {
		d := m.deliveries[id]
		if d == nil || d.Status != DeliveryPending || d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, *d)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

const maxDeliveryAttempts = 5

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Attempts++
	if success {
		d.Status = DeliveryDelivered
		return nil
	}
	d.LastError = lastError
	if d.Attempts >= maxDeliveryAttempts {
		d.Status = DeliveryDead
		return nil
	}
	// 30s, 60s, 120s, 240s between attempts
	backoff := 30 * time.Second << (d.Attempts - 1)
	d.NextAttemptAt = time.Now().Add(backoff)
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
