// internal/service/service.go
package service

import (
	"context"
	"errors"
	"net/url"

	apperrors "gym-notification-engine/internal/common/errors"
	"gym-notification-engine/internal/common/logger"
	"gym-notification-engine/internal/dispatch"
	"gym-notification-engine/internal/engine"
	"gym-notification-engine/internal/models"
	"gym-notification-engine/internal/store"
)

// RegisterRequest is a browser push subscription as the client hands it
// over, straight from PushSubscription.toJSON() plus device context.
type RegisterRequest struct {
	Endpoint   string                  `json:"endpoint"`
	Keys       models.SubscriptionKeys `json:"keys"`
	DeviceInfo models.DeviceInfo       `json:"deviceInfo"`
}

// SubscriptionWriter is the slice of the subscription store the service
// needs for the register/unregister surface.
type SubscriptionWriter interface {
	Upsert(ctx context.Context, recipientID, endpoint string, keys models.SubscriptionKeys, device models.DeviceInfo) (*models.Subscription, error)
	RemoveByRecipientAndEndpoint(ctx context.Context, recipientID, endpoint string) error
}

// LedgerReader is the recipient-scoped read surface of the notification
// store.
type LedgerReader interface {
	ListByRecipient(ctx context.Context, recipientID string, page, pageSize int, filter store.ListFilter) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, ids []string, recipientID string) error
}

// Sender is the manual send surface of the engine.
type Sender interface {
	SendDirect(ctx context.Context, recipientID, title, message string, category models.Category, priority models.Priority, data map[string]string) (*models.Notification, dispatch.Result, error)
	SendBulk(ctx context.Context, recipientIDs []string, content engine.BulkContent) engine.BulkResult
}

// NotificationService is the recipient-facing API of the engine: device
// registration, the notification inbox, and the manual send paths the admin
// tooling calls. Every operation is scoped to an authenticated recipient id
// supplied by the caller.
type NotificationService struct {
	subs           SubscriptionWriter
	ledger         LedgerReader
	sender         Sender
	vapidPublicKey string
	logger         logger.Logger
}

func New(subs SubscriptionWriter, ledger LedgerReader, sender Sender, vapidPublicKey string, log logger.Logger) *NotificationService {
	return &NotificationService{
		subs:           subs,
		ledger:         ledger,
		sender:         sender,
		vapidPublicKey: vapidPublicKey,
		logger:         log.WithFields(map[string]interface{}{"component": "service"}),
	}
}

// VAPIDPublicKey returns the key the browser needs to create a subscription.
func (s *NotificationService) VAPIDPublicKey() string {
	return s.vapidPublicKey
}

// RegisterSubscription validates and stores a device subscription.
// Re-registering an existing (recipient, endpoint) pair refreshes it.
func (s *NotificationService) RegisterSubscription(ctx context.Context, recipientID string, req RegisterRequest) (*models.Subscription, error) {
	if err := validateRegister(req); err != nil {
		return nil, err
	}

	sub, err := s.subs.Upsert(ctx, recipientID, req.Endpoint, req.Keys, req.DeviceInfo)
	if err != nil {
		return nil, err
	}
	s.logger.Info("subscription registered", map[string]interface{}{
		"recipient_id": recipientID,
		"platform":     req.DeviceInfo.Platform,
	})
	return sub, nil
}

// UnregisterSubscription removes one device of the calling recipient.
func (s *NotificationService) UnregisterSubscription(ctx context.Context, recipientID, endpoint string) error {
	err := s.subs.RemoveByRecipientAndEndpoint(ctx, recipientID, endpoint)
	if errors.Is(err, store.ErrSubscriptionNotFound) {
		return apperrors.NewNotFoundError("subscription")
	}
	return err
}

// ListNotifications pages through the recipient's inbox, newest first.
func (s *NotificationService) ListNotifications(ctx context.Context, recipientID string, page, pageSize int, filter store.ListFilter) ([]models.Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.ledger.ListByRecipient(ctx, recipientID, page, pageSize, filter)
}

// UnreadCount returns the recipient's badge count.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	return s.ledger.CountUnread(ctx, recipientID)
}

// MarkRead marks the given notifications read. The whole batch is rejected
// when any id belongs to a different recipient.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.ledger.MarkRead(ctx, ids, recipientID)
	if errors.Is(err, store.ErrNotOwned) {
		return apperrors.NewAccessDeniedError("notification ids outside the caller's inbox")
	}
	return err
}

// SendDirect sends one manual notification, used by the admin tooling.
// Unlike the trigger path, a recipient without any registered device is
// surfaced to the caller; the notification itself is still recorded.
func (s *NotificationService) SendDirect(ctx context.Context, recipientID, title, message string, category models.Category, priority models.Priority, data map[string]string) (*models.Notification, dispatch.Result, error) {
	n, res, err := s.sender.SendDirect(ctx, recipientID, title, message, category, priority, data)
	if err == nil && res.Succeeded == 0 && res.Failed == 0 {
		return n, res, apperrors.NewNoActiveSubscriptionsError(recipientID)
	}
	return n, res, err
}

// SendBulk sends the same content to a set of recipients.
func (s *NotificationService) SendBulk(ctx context.Context, recipientIDs []string, content engine.BulkContent) engine.BulkResult {
	return s.sender.SendBulk(ctx, recipientIDs, content)
}

// validateRegister rejects subscriptions the push client could never use:
// the endpoint must be an absolute https URL and both encryption keys must
// be present.
func validateRegister(req RegisterRequest) error {
	u, err := url.Parse(req.Endpoint)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return apperrors.NewInvalidSubscriptionError("endpoint must be an absolute https URL")
	}
	if req.Keys.P256dh == "" || req.Keys.Auth == "" {
		return apperrors.NewInvalidSubscriptionError("p256dh and auth keys are required")
	}
	return nil
}
