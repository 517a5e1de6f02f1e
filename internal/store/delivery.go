package store

import "time"

// WebhookDelivery is one queued attempt to notify a subscriber about a
// plan event. Deliveries are retried with exponential backoff until
// maxAttempts, then marked dead.
type WebhookDelivery struct {
	ID             string
	TenantID       string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string // pending | delivered | dead
	Attempts       int
	NextAttemptAt  time.Time
	LastError      string
	CreatedAt      time.Time
}

const (
	DeliveryPending   = "pending"
	DeliveryDelivered = "delivered"
	DeliveryDead      = "dead"
)
