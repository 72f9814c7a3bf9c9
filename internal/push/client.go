// internal/push/client.go
package push

import (
	"context"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"gym-notification-engine/internal/common/config"
	"gym-notification-engine/internal/common/logger"
	"gym-notification-engine/internal/models"
)

// Outcome classifies one delivery attempt against a single subscription.
type Outcome int

const (
	// OutcomeSuccess: the push service accepted the message.
	OutcomeSuccess Outcome = iota
	// OutcomeRecoverable: the push service rejected our credentials
	// (401/403). The subscription is deactivated, not deleted.
	OutcomeRecoverable
	// OutcomePermanent: the destination no longer exists (404/410). The
	// subscription must be removed.
	OutcomePermanent
	// OutcomeTransient: network error or any other status. Counts as a
	// failed attempt for this destination only.
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRecoverable:
		return "recoverable"
	case OutcomePermanent:
		return "permanent"
	default:
		return "transient"
	}
}

// Client delivers encrypted payloads to push-service endpoints using the
// Web Push protocol with VAPID authentication.
type Client struct {
	cfg        config.PushConfig
	httpClient webpush.HTTPClient
	logger     logger.Logger
}

func NewClient(cfg config.PushConfig, log logger.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.GetTimeout()},
		logger:     log.WithFields(map[string]interface{}{"component": "push"}),
	}
}

// Send delivers payload to one subscription. Transient failures are retried
// in place up to the configured retry count with a fixed delay; recoverable
// and permanent outcomes are returned immediately since retrying them
// cannot succeed. Each attempt carries its own timeout so one stalled
// destination never stalls the rest of a fan-out.
func (c *Client) Send(ctx context.Context, sub models.Subscription, payload []byte, priority models.Priority) Outcome {
	outcome := OutcomeTransient
	for attempt := 0; attempt <= c.cfg.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return OutcomeTransient
			case <-time.After(c.cfg.GetRetryDelay()):
			}
		}

		outcome = c.attempt(ctx, sub, payload, priority)
		if outcome != OutcomeTransient {
			return outcome
		}
	}
	return outcome
}

func (c *Client) attempt(ctx context.Context, sub models.Subscription, payload []byte, priority models.Priority) Outcome {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.GetTimeout())
	defer cancel()

	resp, err := webpush.SendNotificationWithContext(attemptCtx, payload,
		&webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.Keys.P256dh,
				Auth:   sub.Keys.Auth,
			},
		},
		&webpush.Options{
			HTTPClient:      c.httpClient,
			Subscriber:      c.cfg.Subject,
			TTL:             c.cfg.TTL,
			Urgency:         urgencyFor(priority),
			VAPIDPublicKey:  c.cfg.VAPIDPublicKey,
			VAPIDPrivateKey: c.cfg.VAPIDPrivateKey,
		})
	if err != nil {
		c.logger.Warn("push attempt failed", map[string]interface{}{
			"endpoint": sub.Endpoint,
			"error":    err.Error(),
		})
		return OutcomeTransient
	}
	defer resp.Body.Close()

	return classifyStatus(resp.StatusCode)
}

// classifyStatus maps a push-service HTTP status to an Outcome. Only the
// documented auth and gone classes get special treatment; everything else is
// transient and never escalates a subscription's lifecycle.
func classifyStatus(code int) Outcome {
	switch {
	case code >= 200 && code < 300:
		return OutcomeSuccess
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return OutcomeRecoverable
	case code == http.StatusNotFound || code == http.StatusGone:
		return OutcomePermanent
	default:
		return OutcomeTransient
	}
}

func urgencyFor(priority models.Priority) webpush.Urgency {
	switch priority {
	case models.PriorityHigh:
		return webpush.UrgencyHigh
	case models.PriorityLow:
		return webpush.UrgencyLow
	default:
		return webpush.UrgencyNormal
	}
}
