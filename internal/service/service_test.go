// internal/service/service_test.go
package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gym-notification-engine/internal/common/errors"
	"gym-notification-engine/internal/common/logger"
	"gym-notification-engine/internal/dispatch"
	"gym-notification-engine/internal/engine"
	"gym-notification-engine/internal/models"
	"gym-notification-engine/internal/store"
)

type mockSubscriptionWriter struct {
	upserted  []string
	removeErr error
}

func (m *mockSubscriptionWriter) Upsert(ctx context.Context, recipientID, endpoint string, keys models.SubscriptionKeys, device models.DeviceInfo) (*models.Subscription, error) {
	m.upserted = append(m.upserted, endpoint)
	return &models.Subscription{ID: "sub-1", RecipientID: recipientID, Endpoint: endpoint, Keys: keys, IsActive: true}, nil
}

func (m *mockSubscriptionWriter) RemoveByRecipientAndEndpoint(ctx context.Context, recipientID, endpoint string) error {
	return m.removeErr
}

type mockLedgerReader struct {
	markReadErr error
	markedIDs   []string
	listPage    int
	listSize    int
}

func (m *mockLedgerReader) ListByRecipient(ctx context.Context, recipientID string, page, pageSize int, filter store.ListFilter) ([]models.Notification, int, error) {
	m.listPage, m.listSize = page, pageSize
	return nil, 0, nil
}

func (m *mockLedgerReader) CountUnread(ctx context.Context, recipientID string) (int, error) {
	return 3, nil
}

func (m *mockLedgerReader) MarkRead(ctx context.Context, ids []string, recipientID string) error {
	m.markedIDs = ids
	return m.markReadErr
}

type mockSender struct {
	bulkCalled   bool
	directResult *dispatch.Result
}

func (m *mockSender) SendDirect(ctx context.Context, recipientID, title, message string, category models.Category, priority models.Priority, data map[string]string) (*models.Notification, dispatch.Result, error) {
	res := dispatch.Result{Succeeded: 1}
	if m.directResult != nil {
		res = *m.directResult
	}
	return &models.Notification{ID: "n-1", RecipientID: recipientID}, res, nil
}

func (m *mockSender) SendBulk(ctx context.Context, recipientIDs []string, content engine.BulkContent) engine.BulkResult {
	m.bulkCalled = true
	return engine.BulkResult{Successful: len(recipientIDs), Total: len(recipientIDs)}
}

func newTestService(subs *mockSubscriptionWriter, ledger *mockLedgerReader, sender *mockSender) *NotificationService {
	return New(subs, ledger, sender, "test-vapid-public-key", logger.NewNoOpLogger())
}

func validRequest() RegisterRequest {
	return RegisterRequest{
		Endpoint:   "https://push.example.com/send/abc",
		Keys:       models.SubscriptionKeys{P256dh: "key", Auth: "secret"},
		DeviceInfo: models.DeviceInfo{UserAgent: "Mozilla/5.0", Platform: "web"},
	}
}

func TestRegisterSubscription(t *testing.T) {
	subs := &mockSubscriptionWriter{}
	svc := newTestService(subs, &mockLedgerReader{}, &mockSender{})

	sub, err := svc.RegisterSubscription(context.Background(), "member-1", validRequest())

	require.NoError(t, err)
	assert.Equal(t, "member-1", sub.RecipientID)
	assert.Len(t, subs.upserted, 1)
}

func TestRegisterSubscription_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
	}{
		{name: "http endpoint", mutate: func(r *RegisterRequest) { r.Endpoint = "http://push.example.com/x" }},
		{name: "relative endpoint", mutate: func(r *RegisterRequest) { r.Endpoint = "/send/abc" }},
		{name: "empty endpoint", mutate: func(r *RegisterRequest) { r.Endpoint = "" }},
		{name: "missing p256dh", mutate: func(r *RegisterRequest) { r.Keys.P256dh = "" }},
		{name: "missing auth", mutate: func(r *RegisterRequest) { r.Keys.Auth = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs := &mockSubscriptionWriter{}
			svc := newTestService(subs, &mockLedgerReader{}, &mockSender{})

			req := validRequest()
			tt.mutate(&req)

			_, err := svc.RegisterSubscription(context.Background(), "member-1", req)

			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidSubscription))
			assert.Empty(t, subs.upserted, "invalid requests must not reach the store")
		})
	}
}

func TestUnregisterSubscription_NotFound(t *testing.T) {
	subs := &mockSubscriptionWriter{removeErr: store.ErrSubscriptionNotFound}
	svc := newTestService(subs, &mockLedgerReader{}, &mockSender{})

	err := svc.UnregisterSubscription(context.Background(), "member-1", "https://push.example.com/gone")

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestMarkRead_OwnershipViolation(t *testing.T) {
	ledger := &mockLedgerReader{markReadErr: store.ErrNotOwned}
	svc := newTestService(&mockSubscriptionWriter{}, ledger, &mockSender{})

	err := svc.MarkRead(context.Background(), "member-1", []string{"n-1", "n-2"})

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAccessDenied))
}

func TestMarkRead_EmptyBatch(t *testing.T) {
	ledger := &mockLedgerReader{}
	svc := newTestService(&mockSubscriptionWriter{}, ledger, &mockSender{})

	require.NoError(t, svc.MarkRead(context.Background(), "member-1", nil))
	assert.Empty(t, ledger.markedIDs, "an empty batch never hits the store")
}

func TestListNotifications_PagingDefaults(t *testing.T) {
	ledger := &mockLedgerReader{}
	svc := newTestService(&mockSubscriptionWriter{}, ledger, &mockSender{})

	_, _, err := svc.ListNotifications(context.Background(), "member-1", 0, 500, store.ListFilter{})

	require.NoError(t, err)
	assert.Equal(t, 1, ledger.listPage)
	assert.Equal(t, 20, ledger.listSize)
}

func TestVAPIDPublicKey(t *testing.T) {
	svc := newTestService(&mockSubscriptionWriter{}, &mockLedgerReader{}, &mockSender{})
	assert.Equal(t, "test-vapid-public-key", svc.VAPIDPublicKey())
}

func TestSendBulk_Delegates(t *testing.T) {
	sender := &mockSender{}
	svc := newTestService(&mockSubscriptionWriter{}, &mockLedgerReader{}, sender)

	result := svc.SendBulk(context.Background(), []string{"a", "b"}, engine.BulkContent{Title: "t", Message: "m"})

	assert.True(t, sender.bulkCalled)
	assert.Equal(t, 2, result.Total)
}

func TestSendDirect_NoActiveSubscriptions(t *testing.T) {
	sender := &mockSender{directResult: &dispatch.Result{}}
	svc := newTestService(&mockSubscriptionWriter{}, &mockLedgerReader{}, sender)

	n, _, err := svc.SendDirect(context.Background(), "member-1", "Hello", "body", models.CategorySystem, models.PriorityMedium, nil)

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNoActiveSubscriptions))
	require.NotNil(t, n, "the notification is still recorded for the inbox")
	assert.Equal(t, "member-1", n.RecipientID)
}

func TestSendDirect_Delivered(t *testing.T) {
	svc := newTestService(&mockSubscriptionWriter{}, &mockLedgerReader{}, &mockSender{})

	_, res, err := svc.SendDirect(context.Background(), "member-1", "Hello", "body", models.CategorySystem, models.PriorityMedium, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
}
