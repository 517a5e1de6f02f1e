package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tripsolver/internal/model"
)

// Postgres backs the store with a relational schema; the travel request,
// offer set, and plan result are stored as JSONB documents.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// MigrateDir applies every *.sql file in dir in lexical order. Files are
// expected to be idempotent (CREATE TABLE IF NOT EXISTS et al).
func (p *Postgres) MigrateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := p.db.Exec(string(b)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) ImportOffers(ctx context.Context, tenantID string, set model.OfferSet) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	created := 0
	ins := func(kind string, doc any) error {
		b, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO offers (id, tenant_id, kind, doc) VALUES ($1,$2,$3,$4)`,
			uuid.New(), tenantID, kind, b)
		if err == nil {
			created++
		}
		return err
	}
	for _, f := range set.Flights {
		if err := ins("flight", f); err != nil {
			return 0, err
		}
	}
	for _, g := range set.Ground {
		if err := ins("ground", g); err != nil {
			return 0, err
		}
	}
	for _, h := range set.Hotels {
		if err := ins("hotel", h); err != nil {
			return 0, err
		}
	}
	for _, c := range set.Cars {
		if err := ins("car", c); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return created, nil
}

func (p *Postgres) GetOffers(ctx context.Context, tenantID string) (model.OfferSet, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT kind, doc FROM offers WHERE tenant_id=$1 ORDER BY created_at`, tenantID)
	if err != nil {
		return model.OfferSet{}, err
	}
	defer rows.Close()
	var set model.OfferSet
	for rows.Next() {
		var kind string
		var doc []byte
		if err := rows.Scan(&kind, &doc); err != nil {
			return model.OfferSet{}, err
		}
		switch kind {
		case "flight":
			var f model.FlightOffer
			if err := json.Unmarshal(doc, &f); err == nil {
				set.Flights = append(set.Flights, f)
			}
		case "ground":
			var g model.GroundOffer
			if err := json.Unmarshal(doc, &g); err == nil {
				set.Ground = append(set.Ground, g)
			}
		case "hotel":
			var h model.HotelRate
			if err := json.Unmarshal(doc, &h); err == nil {
				set.Hotels = append(set.Hotels, h)
			}
		case "car":
			var c model.CarRate
			if err := json.Unmarshal(doc, &c); err == nil {
				set.Cars = append(set.Cars, c)
			}
		}
	}
	return set, rows.Err()
}

func (p *Postgres) CreatePlanJob(ctx context.Context, tenantID string, req model.TravelRequest, offers *model.OfferSet) (model.PlanJob, error) {
	now := time.Now().UTC()
	j := model.PlanJob{ID: uuid.New().String(), TenantID: tenantID, Status: "queued", Request: req, Offers: offers, CreatedAt: now, UpdatedAt: now}
	reqDoc, err := json.Marshal(req)
	if err != nil {
		return model.PlanJob{}, err
	}
	var offersDoc any
	if offers != nil {
		b, err := json.Marshal(offers)
		if err != nil {
			return model.PlanJob{}, err
		}
		offersDoc = b
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO plans (id, tenant_id, status, request, offers, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6,$6)`,
		j.ID, tenantID, j.Status, reqDoc, offersDoc, now)
	if err != nil {
		return model.PlanJob{}, err
	}
	return j, nil
}

func (p *Postgres) GetPlanJob(ctx context.Context, tenantID, id string) (model.PlanJob, error) {
	row := p.db.QueryRowContext(ctx, `SELECT id::text, status, request, offers, result, error, created_at, updated_at FROM plans WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	return scanPlanJob(row, tenantID)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanPlanJob(row rowScanner, tenantID string) (model.PlanJob, error) {
	var j model.PlanJob
	var reqDoc []byte
	var offersDoc, resultDoc []byte
	var errMsg sql.NullString
	if err := row.Scan(&j.ID, &j.Status, &reqDoc, &offersDoc, &resultDoc, &errMsg, &j.CreatedAt, &j.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return j, ErrNotFound
		}
		return j, err
	}
	j.TenantID = tenantID
	if err := json.Unmarshal(reqDoc, &j.Request); err != nil {
		return j, err
	}
	if len(offersDoc) > 0 {
		var set model.OfferSet
		if err := json.Unmarshal(offersDoc, &set); err == nil {
			j.Offers = &set
		}
	}
	if len(resultDoc) > 0 {
		var res model.PlanResult
		if err := json.Unmarshal(resultDoc, &res); err == nil {
			j.Result = &res
		}
	}
	j.Error = errMsg.String
	return j, nil
}

func (p *Postgres) ListPlanJobs(ctx context.Context, tenantID, cursor string, limit int) ([]model.PlanJob, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx, `SELECT id::text, status, request, offers, result, error, created_at, updated_at FROM plans WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT id::text, status, request, offers, result, error, created_at, updated_at FROM plans WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.PlanJob{}
	for rows.Next() {
		j, err := scanPlanJob(rows, tenantID)
		if err != nil {
			return nil, "", err
		}
		out = append(out, j)
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

// ClaimQueuedPlanJobs uses FOR UPDATE SKIP LOCKED so concurrent workers
// never claim the same job.
func (p *Postgres) ClaimQueuedPlanJobs(ctx context.Context, limit int) ([]model.PlanJob, error) {
	if limit <= 0 {
		limit = 10
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id::text, tenant_id, request, offers FROM plans WHERE status='queued' ORDER BY created_at LIMIT $1 FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, err
	}
	out := []model.PlanJob{}
	for rows.Next() {
		var j model.PlanJob
		var reqDoc, offersDoc []byte
		if err := rows.Scan(&j.ID, &j.TenantID, &reqDoc, &offersDoc); err != nil {
			rows.Close()
			return nil, err
		}
		if err := json.Unmarshal(reqDoc, &j.Request); err != nil {
			rows.Close()
			return nil, err
		}
		if len(offersDoc) > 0 {
			var set model.OfferSet
			if err := json.Unmarshal(offersDoc, &set); err == nil {
				j.Offers = &set
			}
		}
		j.Status = "running"
		out = append(out, j)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, j := range out {
		if _, err := tx.ExecContext(ctx, `UPDATE plans SET status='running', updated_at=now() WHERE id=$1`, j.ID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Postgres) CompletePlanJob(ctx context.Context, id string, result *model.PlanResult, errMsg string) error {
	if errMsg != "" {
		_, err := p.db.ExecContext(ctx, `UPDATE plans SET status='failed', error=$2, updated_at=now() WHERE id=$1`, id, errMsg)
		return err
	}
	doc, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `UPDATE plans SET status='done', result=$2, updated_at=now() WHERE id=$1`, id, doc)
	return err
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
	events, err := json.Marshal(req.Events)
	if err != nil {
		return model.Subscription{}, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`,
		s.ID, s.TenantID, s.URL, events, s.Secret)
	if err != nil {
		return model.Subscription{}, err
	}
	return s, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, events, secret FROM subscriptions WHERE tenant_id=$1 AND events ? $2`, tenantID, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows, tenantID)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSubscription(row rowScanner, tenantID string) (model.Subscription, error) {
	var s model.Subscription
	var events []byte
	if err := row.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, ErrNotFound
		}
		return s, err
	}
	s.TenantID = tenantID
	_ = json.Unmarshal(events, &s.Events)
	return s, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, events, secret FROM subscriptions WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, events, secret FROM subscriptions WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows, tenantID)
		if err != nil {
			return nil, "", err
		}
		out = append(out, s)
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at) VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,now())`,
		id, tenantID, subscriptionID, eventType, url, secret, payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, tenant_id, subscription_id::text, event_type, url, secret, payload, status, attempts, next_attempt_at, created_at FROM webhook_deliveries WHERE status='pending' AND next_attempt_at <= now() ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts, &d.NextAttemptAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, lastError string, responseCode, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='delivered', attempts=attempts+1, response_code=$2, latency_ms=$3 WHERE id=$1`, id, responseCode, latencyMs)
		return err
	}
	// Retries double the delay per attempt; after maxDeliveryAttempts the
	// delivery is dead.
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4,
		status = CASE WHEN attempts+1 >= $5 THEN 'dead' ELSE 'pending' END,
		next_attempt_at = now() + (interval '30 seconds' * power(2, attempts))
		WHERE id=$1`, id, lastError, responseCode, latencyMs, maxDeliveryAttempts)
	return err
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
