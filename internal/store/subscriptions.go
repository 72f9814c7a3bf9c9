// internal/store/subscriptions.go
package store

import (
	"context"
	"fmt"

	"gym-notification-engine/internal/common/database"
	"gym-notification-engine/internal/models"

	"github.com/google/uuid"
)

// SubscriptionStore persists per-recipient push subscriptions. A recipient
// may register any number of devices; (recipient_id, endpoint) is unique.
type SubscriptionStore struct {
	db *database.PostgresClient
}

func NewSubscriptionStore(db *database.PostgresClient) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// Upsert creates or refreshes a subscription for (recipientID, endpoint).
// Re-registering always reactivates, refreshes keys and bumps last_seen_at.
func (s *SubscriptionStore) Upsert(ctx context.Context, recipientID, endpoint string, keys models.SubscriptionKeys, device models.DeviceInfo) (*models.Subscription, error) {
	sub := &models.Subscription{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Endpoint:    endpoint,
		Keys:        keys,
		DeviceInfo:  device,
		IsActive:    true,
	}

	query := `INSERT INTO push_subscriptions
                (id, recipient_id, endpoint, p256dh, auth, user_agent, platform, is_active, created_at, last_seen_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW())
              ON CONFLICT (recipient_id, endpoint) DO UPDATE SET
                p256dh = EXCLUDED.p256dh,
                auth = EXCLUDED.auth,
                user_agent = EXCLUDED.user_agent,
                platform = EXCLUDED.platform,
                is_active = TRUE,
                last_seen_at = NOW()
              RETURNING id, created_at, last_seen_at`
	err := s.db.QueryRow(ctx, query,
		sub.ID, recipientID, endpoint, keys.P256dh, keys.Auth,
		device.UserAgent, device.Platform,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.LastSeenAt)
	if err != nil {
		return nil, fmt.Errorf("upserting subscription: %w", err)
	}
	return sub, nil
}

// ListActive returns every active subscription of a recipient, in
// registration order. This is the fan-out set for one dispatch.
func (s *SubscriptionStore) ListActive(ctx context.Context, recipientID string) ([]models.Subscription, error) {
	query := `SELECT id, recipient_id, endpoint, p256dh, auth, user_agent, platform, is_active, created_at, last_seen_at
              FROM push_subscriptions
              WHERE recipient_id = $1 AND is_active = TRUE
              ORDER BY created_at`
	rows, err := s.db.Query(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("listing active subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		err := rows.Scan(&sub.ID, &sub.RecipientID, &sub.Endpoint,
			&sub.Keys.P256dh, &sub.Keys.Auth,
			&sub.DeviceInfo.UserAgent, &sub.DeviceInfo.Platform,
			&sub.IsActive, &sub.CreatedAt, &sub.LastSeenAt)
		if err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Deactivate flags the endpoint inactive. Used when the push service rejects
// credentials; the row survives so a re-registration can revive it.
func (s *SubscriptionStore) Deactivate(ctx context.Context, endpoint string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE push_subscriptions SET is_active = FALSE WHERE endpoint = $1`, endpoint)
	if err != nil {
		return fmt.Errorf("deactivating subscription: %w", err)
	}
	return nil
}

// Remove hard-deletes the endpoint. Used when the push service reports the
// destination gone for good.
func (s *SubscriptionStore) Remove(ctx context.Context, endpoint string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	if err != nil {
		return fmt.Errorf("removing subscription: %w", err)
	}
	return nil
}

// RemoveByRecipientAndEndpoint deletes one subscription on explicit
// unregister. Missing rows surface as ErrSubscriptionNotFound so the caller
// can report it.
func (s *SubscriptionStore) RemoveByRecipientAndEndpoint(ctx context.Context, recipientID, endpoint string) error {
	res, err := s.db.Exec(ctx,
		`DELETE FROM push_subscriptions WHERE recipient_id = $1 AND endpoint = $2`,
		recipientID, endpoint)
	if err != nil {
		return fmt.Errorf("removing subscription: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// CountActive returns the number of active subscriptions system-wide; feeds
// the gauge metric.
func (s *SubscriptionStore) CountActive(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM push_subscriptions WHERE is_active = TRUE`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting active subscriptions: %w", err)
	}
	return n, nil
}
