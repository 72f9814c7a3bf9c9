// internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	apperrors "gym-notification-engine/internal/common/errors"
	"gym-notification-engine/internal/common/logger"
	"gym-notification-engine/internal/common/metrics"
	"gym-notification-engine/internal/dispatch"
	"gym-notification-engine/internal/models"
	"gym-notification-engine/internal/store"
	"gym-notification-engine/internal/templates"
)

// Ledger is the slice of the notification store the engine writes through.
type Ledger interface {
	Exists(ctx context.Context, recipientID string, category models.Category, uniqueID string) (bool, error)
	Create(ctx context.Context, n *models.Notification) error
}

// NotificationDispatcher fans a stored notification out to the recipient's
// devices. Satisfied by *dispatch.Dispatcher.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, n *models.Notification) (dispatch.Result, error)
}

// Renderer turns a category plus template variables into display text.
type Renderer interface {
	Render(category models.Category, vars map[string]string) (templates.Rendered, error)
}

// Engine is the write path of the notification system. Every notification,
// whether raised by a trigger evaluator or sent manually, goes through it:
// dedup check, template render, ledger insert, push dispatch. The ledger's
// unique constraint is the only authority on "already sent"; the cache and
// the Exists pre-check just keep the common case cheap.
type Engine struct {
	ledger          Ledger
	dispatcher      NotificationDispatcher
	templates       Renderer
	cache           *DedupCache
	logger          logger.Logger
	bulkConcurrency int
}

func New(ledger Ledger, dispatcher NotificationDispatcher, renderer Renderer,
	cache *DedupCache, bulkConcurrency int, log logger.Logger) *Engine {
	if bulkConcurrency < 1 {
		bulkConcurrency = 1
	}
	return &Engine{
		ledger:          ledger,
		dispatcher:      dispatcher,
		templates:       renderer,
		cache:           cache,
		bulkConcurrency: bulkConcurrency,
		logger:          log.WithFields(map[string]interface{}{"component": "engine"}),
	}
}

// Process runs every candidate of one trigger tick through the write path.
// Candidates are independent: one failing is logged and skipped, the rest
// still go out.
func (e *Engine) Process(ctx context.Context, candidates []models.Candidate) {
	for _, candidate := range candidates {
		if err := e.processCandidate(ctx, candidate); err != nil {
			e.logger.Error("processing candidate failed", map[string]interface{}{
				"recipient_id": candidate.RecipientID,
				"category":     string(candidate.Category),
				"unique_id":    candidate.UniqueID,
				"error":        err.Error(),
				"retryable":    apperrors.IsRetryable(err),
			})
		}
	}
}

func (e *Engine) processCandidate(ctx context.Context, candidate models.Candidate) error {
	key := dedupKey(candidate.RecipientID, candidate.Category, candidate.UniqueID)
	if e.cache.Seen(ctx, key) {
		metrics.DedupHits.WithLabelValues("cache").Inc()
		return nil
	}

	exists, err := e.ledger.Exists(ctx, candidate.RecipientID, candidate.Category, candidate.UniqueID)
	if err != nil {
		return apperrors.NewStoreUnavailableError("dedup lookup", err)
	}
	if exists {
		metrics.DedupHits.WithLabelValues("ledger").Inc()
		e.cache.MarkSeen(ctx, key)
		return nil
	}

	rendered, err := e.templates.Render(candidate.Category, candidate.Payload.Variables())
	if err != nil {
		return err
	}

	priority := candidate.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	n := &models.Notification{
		ID:          uuid.NewString(),
		RecipientID: candidate.RecipientID,
		Category:    candidate.Category,
		Title:       rendered.Title,
		Message:     rendered.Body,
		Status:      models.StatusPending,
		Priority:    priority,
		UniqueID:    candidate.UniqueID,
		Data:        candidate.Payload,
	}

	if err := e.ledger.Create(ctx, n); err != nil {
		if errors.Is(err, store.ErrDuplicateNotification) {
			// Another instance won the race between our Exists check and
			// this insert. The notification is already handled; do not
			// dispatch a second copy.
			metrics.DedupHits.WithLabelValues("constraint").Inc()
			e.cache.MarkSeen(ctx, key)
			return nil
		}
		return fmt.Errorf("creating notification: %w", err)
	}
	e.cache.MarkSeen(ctx, key)
	metrics.NotificationsCreated.WithLabelValues(string(candidate.Category)).Inc()

	if _, err := e.dispatcher.Dispatch(ctx, n); err != nil {
		return fmt.Errorf("dispatching notification %s: %w", n.ID, err)
	}
	return nil
}

// SendDirect creates and immediately dispatches a manual notification. No
// template and no dedup: each call is a distinct notification keyed by a
// fresh manual unique id.
func (e *Engine) SendDirect(ctx context.Context, recipientID, title, message string,
	category models.Category, priority models.Priority, data map[string]string) (*models.Notification, dispatch.Result, error) {
	if category == "" {
		category = models.CategorySystem
	}
	if priority == "" {
		priority = models.PriorityMedium
	}

	n := &models.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Category:    category,
		Title:       title,
		Message:     message,
		Status:      models.StatusPending,
		Priority:    priority,
		UniqueID:    "manual_" + uuid.NewString(),
		Data:        models.GenericPayload{Category: category, Values: data},
	}

	if err := e.ledger.Create(ctx, n); err != nil {
		return nil, dispatch.Result{}, fmt.Errorf("creating notification: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(category)).Inc()

	res, err := e.dispatcher.Dispatch(ctx, n)
	if err != nil {
		return n, res, fmt.Errorf("dispatching notification %s: %w", n.ID, err)
	}
	return n, res, nil
}
