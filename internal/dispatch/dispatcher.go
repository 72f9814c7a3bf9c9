// internal/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gym-notification-engine/internal/common/config"
	"gym-notification-engine/internal/common/logger"
	"gym-notification-engine/internal/common/metrics"
	"gym-notification-engine/internal/models"
	"gym-notification-engine/internal/push"
	"gym-notification-engine/internal/templates"
)

// SubscriptionRegistry is the slice of the subscription store the dispatcher
// needs: the fan-out set plus the two lifecycle reactions to delivery
// failures.
type SubscriptionRegistry interface {
	ListActive(ctx context.Context, recipientID string) ([]models.Subscription, error)
	Deactivate(ctx context.Context, endpoint string) error
	Remove(ctx context.Context, endpoint string) error
}

// ResultLedger records the aggregate delivery outcome on the notification row.
type ResultLedger interface {
	MarkResult(ctx context.Context, id string, anySucceeded bool) error
}

// Sender delivers one payload to one destination. Satisfied by *push.Client.
type Sender interface {
	Send(ctx context.Context, sub models.Subscription, payload []byte, priority models.Priority) push.Outcome
}

// Result is the per-destination tally of one dispatch.
type Result struct {
	Succeeded int
	Failed    int
}

// Dispatcher fans one stored notification out to every active device of its
// recipient. All destinations are attempted concurrently; a failure on one
// never short-circuits the others. The notification is marked sent if at
// least one destination accepted it, failed otherwise.
type Dispatcher struct {
	subs      SubscriptionRegistry
	ledger    ResultLedger
	sender    Sender
	templates *templates.Registry
	cfg       config.PushConfig
	logger    logger.Logger
}

func NewDispatcher(subs SubscriptionRegistry, ledger ResultLedger, sender Sender,
	registry *templates.Registry, cfg config.PushConfig, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		subs:      subs,
		ledger:    ledger,
		sender:    sender,
		templates: registry,
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "dispatch"}),
	}
}

// webPayload is the JSON document the service worker receives.
type webPayload struct {
	Title   string             `json:"title"`
	Body    string             `json:"body"`
	Icon    string             `json:"icon,omitempty"`
	Badge   string             `json:"badge,omitempty"`
	URL     string             `json:"url"`
	Data    map[string]string  `json:"data,omitempty"`
	Actions []templates.Action `json:"actions,omitempty"`
}

// Dispatch delivers n to every active subscription of its recipient and
// records the aggregate outcome. A recipient with no active subscriptions is
// not an error: the notification is marked failed and the empty tally
// returned, so trigger runs over unsubscribed members stay quiet.
func (d *Dispatcher) Dispatch(ctx context.Context, n *models.Notification) (Result, error) {
	start := time.Now()

	subs, err := d.subs.ListActive(ctx, n.RecipientID)
	if err != nil {
		return Result{}, fmt.Errorf("listing subscriptions for %s: %w", n.RecipientID, err)
	}
	if len(subs) == 0 {
		d.logger.Warn("recipient has no active subscriptions", map[string]interface{}{
			"notification_id": n.ID,
			"recipient_id":    n.RecipientID,
		})
		if err := d.ledger.MarkResult(ctx, n.ID, false); err != nil {
			return Result{}, err
		}
		metrics.NotificationsDispatched.WithLabelValues(string(n.Category), string(models.StatusFailed)).Inc()
		return Result{}, nil
	}

	payload, err := d.buildPayload(n)
	if err != nil {
		return Result{}, fmt.Errorf("encoding push payload: %w", err)
	}

	outcomes := make(chan push.Outcome, len(subs))
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub models.Subscription) {
			defer wg.Done()
			outcomes <- d.deliver(ctx, n, sub, payload)
		}(sub)
	}
	wg.Wait()
	close(outcomes)

	var res Result
	for outcome := range outcomes {
		if outcome == push.OutcomeSuccess {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}

	status := models.StatusSent
	if res.Succeeded == 0 {
		status = models.StatusFailed
	}
	if err := d.ledger.MarkResult(ctx, n.ID, res.Succeeded > 0); err != nil {
		return res, err
	}

	metrics.NotificationsDispatched.WithLabelValues(string(n.Category), string(status)).Inc()
	metrics.DispatchDuration.WithLabelValues(string(n.Category)).Observe(time.Since(start).Seconds())

	d.logger.Info("notification dispatched", map[string]interface{}{
		"notification_id": n.ID,
		"recipient_id":    n.RecipientID,
		"category":        string(n.Category),
		"succeeded":       res.Succeeded,
		"failed":          res.Failed,
	})
	return res, nil
}

// deliver pushes to one destination and applies the subscription lifecycle
// reaction its outcome demands.
func (d *Dispatcher) deliver(ctx context.Context, n *models.Notification, sub models.Subscription, payload []byte) push.Outcome {
	outcome := d.sender.Send(ctx, sub, payload, n.Priority)
	metrics.PushDeliveries.WithLabelValues(outcome.String()).Inc()

	switch outcome {
	case push.OutcomeRecoverable:
		if err := d.subs.Deactivate(ctx, sub.Endpoint); err != nil {
			d.logger.Error("deactivating rejected subscription", map[string]interface{}{
				"endpoint": sub.Endpoint,
				"error":    err.Error(),
			})
		}
	case push.OutcomePermanent:
		if err := d.subs.Remove(ctx, sub.Endpoint); err != nil {
			d.logger.Error("removing gone subscription", map[string]interface{}{
				"endpoint": sub.Endpoint,
				"error":    err.Error(),
			})
		}
	}
	return outcome
}

func (d *Dispatcher) buildPayload(n *models.Notification) ([]byte, error) {
	data := map[string]string{
		"notificationId": n.ID,
		"category":       string(n.Category),
		"uniqueId":       n.UniqueID,
	}
	if n.Data != nil {
		for k, v := range n.Data.Variables() {
			data[k] = v
		}
	}
	return json.Marshal(webPayload{
		Title:   n.Title,
		Body:    n.Message,
		Icon:    d.cfg.IconURL,
		Badge:   d.cfg.BadgeURL,
		URL:     categoryURL(n.Category),
		Data:    data,
		Actions: d.templates.Actions(n.Category),
	})
}

// categoryURL is the in-app deep link opened when the recipient taps the
// notification.
func categoryURL(category models.Category) string {
	switch category {
	case models.CategoryMembershipExpiry, models.CategoryPayment:
		return "/memberships"
	case models.CategoryAppointmentReminder:
		return "/appointments"
	case models.CategoryWorkoutReminder:
		return "/workouts"
	case models.CategoryPromotion:
		return "/promotions"
	default:
		return "/notifications"
	}
}
