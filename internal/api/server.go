package api

import (
	"context"
	"net/http"
	"os"
	"strings"

	"tripsolver/internal/config"
	"tripsolver/internal/jobs"
	"tripsolver/internal/model"
	"tripsolver/internal/plan"
	"tripsolver/internal/solver/highsmip"
	"tripsolver/internal/store"
	"tripsolver/internal/webhooks"
)

type Server struct {
	Store   store.Store
	Planner *plan.Planner
	Pub     *webhooks.Publisher
	Broker  EventBroker
	Cfg     config.Config
}

// NewServer wires the store, broker and planner from configuration. If
// DatabaseURL is unset the in-memory store is used.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		// Run migrations (dev helper)
		if os.Getenv("DB_MIGRATE") != "false" {
			_ = sp.MigrateDir("db/migrations")
		}
		s = sp
	}
	var broker EventBroker
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	planner := plan.New(func() plan.Engine { return highsmip.New() }, cfg.PlanConfig())
	return &Server{Store: s, Planner: planner, Pub: webhooks.NewPublisher(s), Broker: broker, Cfg: cfg}, nil
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
	// Tenant comes from a header for now; production deployments put a
	// gateway in front that fills it from credentials.
	tenant := r.Header.Get("X-Tenant-Id")
	if tenant == "" {
		tenant = "t_demo"
	}
	ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
	return ctx, tenant
}

type ctxKeyTenant struct{}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}

// NewPlanWorker creates the background solver for queued plans and hooks
// its completions into the live event broker.
func (s *Server) NewPlanWorker() *jobs.Worker {
	w := jobs.NewWorker(s.Store, s.Planner, s.Pub)
	w.Notify = func(j model.PlanJob) {
		evt := SSEEvent{Type: "plan." + j.Status, Data: map[string]any{"planId": j.ID, "status": j.Status}}
		if j.Result != nil {
			evt.Data["resultStatus"] = string(j.Result.Status)
		}
		s.Broker.Publish(j.ID, evt)
	}
	return w
}
