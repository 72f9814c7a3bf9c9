// internal/store/notifications.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"gym-notification-engine/internal/common/database"
	"gym-notification-engine/internal/models"

	"github.com/lib/pq"
)

// Sentinel errors surfaced by the stores.
var (
	ErrDuplicateNotification = errors.New("notification already exists for this dedup key")
	ErrNotificationNotFound  = errors.New("notification not found")
	ErrNotOwned              = errors.New("one or more notifications do not belong to the recipient")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
)

const uniqueViolation = "23505"

// ListFilter narrows ListByRecipient results. Zero values mean no filtering.
type ListFilter struct {
	Category models.Category
	Status   models.Status
}

// NotificationStore is the persisted notification ledger. It is both the
// audit log and the exactly-once guard: a unique index over (recipient_id,
// category, unique_id) backs Create's conflict detection.
type NotificationStore struct {
	db *database.PostgresClient
}

func NewNotificationStore(db *database.PostgresClient) *NotificationStore {
	return &NotificationStore{db: db}
}

// Exists reports whether a notification was already recorded for the dedup
// key, either for the recipient or as a system-wide broadcast row.
func (s *NotificationStore) Exists(ctx context.Context, recipientID string, category models.Category, uniqueID string) (bool, error) {
	query := `SELECT EXISTS (
                SELECT 1 FROM notifications
                WHERE category = $2 AND unique_id = $3
                  AND recipient_id IN ($1, $4))`
	var exists bool
	err := s.db.QueryRow(ctx, query, recipientID, category, uniqueID, models.RecipientAll).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking notification existence: %w", err)
	}
	return exists, nil
}

// Create inserts a pending notification. A unique-index conflict on the
// dedup key maps to ErrDuplicateNotification so overlapping evaluations of
// the same trigger instance resolve to a single row.
func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("marshaling notification data: %w", err)
	}

	query := `INSERT INTO notifications
                (id, recipient_id, category, title, message, status, priority, unique_id, data, scheduled_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
              RETURNING created_at`
	err = s.db.QueryRow(ctx, query,
		n.ID, n.RecipientID, n.Category, n.Title, n.Message,
		n.Status, n.Priority, n.UniqueID, data, n.ScheduledAt,
	).Scan(&n.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateNotification
		}
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

// MarkResult finalizes a dispatch attempt: sent when at least one
// destination succeeded, failed otherwise. Records the attempt time.
func (s *NotificationStore) MarkResult(ctx context.Context, id string, anySucceeded bool) error {
	status := models.StatusFailed
	if anySucceeded {
		status = models.StatusSent
	}
	query := `UPDATE notifications SET status = $2, sent_at = NOW() WHERE id = $1`
	res, err := s.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("marking notification result: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkRead transitions the given notifications to read, scoped to the
// recipient's own rows. If any id does not belong to recipientID the whole
// call fails with ErrNotOwned and nothing is updated.
func (s *NotificationStore) MarkRead(ctx context.Context, ids []string, recipientID string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("beginning mark-read transaction: %w", err)
	}
	defer tx.Rollback()

	var owned int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE id = ANY($1) AND recipient_id = $2`,
		pq.Array(ids), recipientID,
	).Scan(&owned)
	if err != nil {
		return fmt.Errorf("verifying notification ownership: %w", err)
	}
	if owned != len(ids) {
		return ErrNotOwned
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE notifications SET status = $3, read_at = NOW()
         WHERE id = ANY($1) AND recipient_id = $2`,
		pq.Array(ids), recipientID, models.StatusRead,
	)
	if err != nil {
		return fmt.Errorf("marking notifications read: %w", err)
	}

	return tx.Commit()
}

// ListByRecipient returns one page of a recipient's notifications, newest
// first, with the total count for pagination.
func (s *NotificationStore) ListByRecipient(ctx context.Context, recipientID string, page, pageSize int, filter ListFilter) ([]models.Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	where := `WHERE recipient_id = $1`
	args := []interface{}{recipientID}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting notifications: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`SELECT id, recipient_id, category, title, message, status, priority,
                unique_id, data, scheduled_at, sent_at, read_at, created_at
              FROM notifications %s
              ORDER BY created_at DESC
              LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// CountUnread returns the recipient's unread notification count (pending,
// sent and failed rows all count until acknowledged).
func (s *NotificationStore) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND status <> $2`,
		recipientID, models.StatusRead,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return n, nil
}

func scanNotification(rows *sql.Rows) (models.Notification, error) {
	var (
		n        models.Notification
		data     []byte
		schedAt  sql.NullTime
		sentAt   sql.NullTime
		readAt   sql.NullTime
	)
	err := rows.Scan(&n.ID, &n.RecipientID, &n.Category, &n.Title, &n.Message,
		&n.Status, &n.Priority, &n.UniqueID, &data, &schedAt, &sentAt, &readAt, &n.CreatedAt)
	if err != nil {
		return models.Notification{}, fmt.Errorf("scanning notification: %w", err)
	}
	if schedAt.Valid {
		n.ScheduledAt = &schedAt.Time
	}
	if sentAt.Valid {
		n.SentAt = &sentAt.Time
	}
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	if len(data) > 0 && string(data) != "null" {
		n.Data = decodePayload(n.Category, data)
	}
	return n, nil
}

// decodePayload rebuilds a generic payload view from the stored JSON. Read
// paths only need the values for display, not the typed variant.
func decodePayload(category models.Category, raw []byte) models.Payload {
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	values := make(map[string]string, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case string:
			values[k] = t
		case float64:
			values[k] = trimFloat(t)
		default:
			b, _ := json.Marshal(v)
			values[k] = string(b)
		}
	}
	return models.GenericPayload{Category: category, Values: values}
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
