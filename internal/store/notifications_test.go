// internal/store/notifications_test.go
package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gym-notification-engine/internal/common/database"
	"gym-notification-engine/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*NotificationStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewNotificationStore(&database.PostgresClient{DB: db}), mock
}

func TestNotificationStore_Exists(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
	}{
		{name: "dedup key already recorded", exists: true},
		{name: "dedup key unknown", exists: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectQuery("SELECT EXISTS").
				WithArgs("member-1", string(models.CategoryMembershipExpiry), "mem-42_7days", models.RecipientAll).
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.exists))

			got, err := s.Exists(context.Background(), "member-1", models.CategoryMembershipExpiry, "mem-42_7days")
			require.NoError(t, err)
			assert.Equal(t, tt.exists, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestNotificationStore_Create(t *testing.T) {
	n := &models.Notification{
		ID:          "n-1",
		RecipientID: "member-1",
		Category:    models.CategoryMembershipExpiry,
		Title:       "Membership expiring soon",
		Message:     "Your VIP membership expires in 7 day(s)",
		Status:      models.StatusPending,
		Priority:    models.PriorityMedium,
		UniqueID:    "mem-42_7days",
		Data:        models.ExpiryPayload{MembershipID: "mem-42", PackageName: "VIP", DaysLeft: 7, ExpiryDate: "05/09/2026"},
	}

	t.Run("inserts pending row", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("INSERT INTO notifications").
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

		err := s.Create(context.Background(), n)
		require.NoError(t, err)
		assert.False(t, n.CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to ErrDuplicateNotification", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("INSERT INTO notifications").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_notifications_dedup"})

		err := s.Create(context.Background(), n)
		assert.ErrorIs(t, err, ErrDuplicateNotification)
	})
}

func TestNotificationStore_MarkResult(t *testing.T) {
	tests := []struct {
		name         string
		anySucceeded bool
		wantStatus   models.Status
	}{
		{name: "at least one destination succeeded", anySucceeded: true, wantStatus: models.StatusSent},
		{name: "all destinations failed", anySucceeded: false, wantStatus: models.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectExec("UPDATE notifications SET status").
				WithArgs("n-1", string(tt.wantStatus)).
				WillReturnResult(sqlmock.NewResult(0, 1))

			err := s.MarkResult(context.Background(), "n-1", tt.anySucceeded)
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("missing row", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("UPDATE notifications SET status").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.MarkResult(context.Background(), "ghost", true)
		assert.ErrorIs(t, err, ErrNotificationNotFound)
	})
}

func TestNotificationStore_MarkRead_OwnershipEnforced(t *testing.T) {
	ids := []string{"n-1", "n-2"}

	t.Run("foreign id rejects the whole call", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		// Only one of the two ids belongs to the caller.
		mock.ExpectQuery("SELECT COUNT").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		err := s.MarkRead(context.Background(), ids, "member-1")
		assert.ErrorIs(t, err, ErrNotOwned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("owned ids all transition", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT COUNT").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectExec("UPDATE notifications SET status").
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err := s.MarkRead(context.Background(), ids, "member-1")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty id set is a no-op", func(t *testing.T) {
		s, mock := newMockStore(t)
		err := s.MarkRead(context.Background(), nil, "member-1")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNotificationStore_ListByRecipient(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	created := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "recipient_id", "category", "title", "message", "status", "priority",
		"unique_id", "data", "scheduled_at", "sent_at", "read_at", "created_at",
	}).
		AddRow("n-2", "member-1", "promotion", "New promotion: Summer", "20% off", "sent", "medium",
			"promo_p1", []byte(`{"promotionId":"p1","discountPercent":20}`), nil, created, nil, created).
		AddRow("n-1", "member-1", "membership_expiry", "Membership expiring soon", "7 days left", "read", "medium",
			"mem-42_7days", []byte(`null`), nil, created, created, created)

	mock.ExpectQuery("SELECT id, recipient_id").
		WillReturnRows(rows)

	got, total, err := s.ListByRecipient(context.Background(), "member-1", 1, 20, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)

	// JSON payload decoded into generic template variables.
	require.NotNil(t, got[0].Data)
	assert.Equal(t, "p1", got[0].Data.Variables()["promotionId"])
	assert.Equal(t, "20", got[0].Data.Variables()["discountPercent"])
	// Null payloads stay nil.
	assert.Nil(t, got[1].Data)
	assert.NotNil(t, got[1].ReadAt)
}

func TestNotificationStore_ListByRecipient_Filtered(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("member-1", string(models.CategoryPromotion), string(models.StatusSent)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT id, recipient_id").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "recipient_id", "category", "title", "message", "status", "priority",
			"unique_id", "data", "scheduled_at", "sent_at", "read_at", "created_at",
		}))

	got, total, err := s.ListByRecipient(context.Background(), "member-1", 1, 10,
		ListFilter{Category: models.CategoryPromotion, Status: models.StatusSent})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayloadRoundTrips(t *testing.T) {
	t.Run("manual payload stays flat", func(t *testing.T) {
		// Manual and bulk sends store a GenericPayload; reading the row
		// back must yield the same variables, not a nested wrapper.
		stored, err := json.Marshal(models.GenericPayload{
			Category: models.CategorySystem,
			Values:   map[string]string{"source": "admin"},
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{"source":"admin"}`, string(stored))

		payload := decodePayload(models.CategorySystem, stored)
		require.NotNil(t, payload)
		assert.Equal(t, map[string]string{"source": "admin"}, payload.Variables())

		// Re-marshaling the read row must not nest the data further.
		again, err := json.Marshal(payload)
		require.NoError(t, err)
		assert.JSONEq(t, string(stored), string(again))
	})

	t.Run("trigger payload", func(t *testing.T) {
		stored, err := json.Marshal(models.ExpiryPayload{
			MembershipID: "mem-1", PackageName: "VIP", DaysLeft: 3, ExpiryDate: "01/09/2026",
		})
		require.NoError(t, err)

		payload := decodePayload(models.CategoryMembershipExpiry, stored)
		require.NotNil(t, payload)
		assert.Equal(t, "VIP", payload.Variables()["packageName"])
		assert.Equal(t, "3", payload.Variables()["daysLeft"])
	})

	t.Run("empty manual payload", func(t *testing.T) {
		stored, err := json.Marshal(models.GenericPayload{Category: models.CategorySystem})
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(stored))
	})
}
