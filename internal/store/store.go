package store

import (
	"context"
	"errors"

	"tripsolver/internal/model"
)

// Store is the persistence interface used by the API server: the tenant
// offer catalog, asynchronous plan jobs, and webhook subscriptions with
// their delivery queue.
type Store interface {
	// Offer catalog
	ImportOffers(ctx context.Context, tenantID string, set model.OfferSet) (created int, err error)
	GetOffers(ctx context.Context, tenantID string) (model.OfferSet, error)

	// Plan jobs
	CreatePlanJob(ctx context.Context, tenantID string, req model.TravelRequest, offers *model.OfferSet) (model.PlanJob, error)
	GetPlanJob(ctx context.Context, tenantID, id string) (model.PlanJob, error)
	ListPlanJobs(ctx context.Context, tenantID, cursor string, limit int) (items []model.PlanJob, nextCursor string, err error)
	// ClaimQueuedPlanJobs marks up to limit queued jobs as running and
	// returns them; a job is handed to exactly one worker.
	ClaimQueuedPlanJobs(ctx context.Context, limit int) ([]model.PlanJob, error)
	CompletePlanJob(ctx context.Context, id string, result *model.PlanResult, errMsg string) error

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, tenantID, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, lastError string, responseCode, latencyMs int) error

	Ping(ctx context.Context) error
}

// ErrNotFound is returned when a record does not exist for the tenant.
var ErrNotFound = errors.New("not found")
