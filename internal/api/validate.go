package api

import (
	"fmt"
	"net/url"

	"tripsolver/internal/model"
	"tripsolver/internal/webhooks"
)

func validateSubscription(req *model.SubscriptionRequest) error {
	if req.URL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be absolute http(s)")
	}
	if len(req.Events) == 0 {
		return fmt.Errorf("events must not be empty")
	}
	for _, e := range req.Events {
		if e != webhooks.EventPlanCompleted && e != webhooks.EventPlanFailed {
			return fmt.Errorf("unknown event type: %s (allowed: %s, %s)", e, webhooks.EventPlanCompleted, webhooks.EventPlanFailed)
		}
	}
	return nil
}
