// internal/dispatch/dispatcher_test.go
package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym-notification-engine/internal/common/config"
	"gym-notification-engine/internal/common/logger"
	"gym-notification-engine/internal/models"
	"gym-notification-engine/internal/push"
	"gym-notification-engine/internal/templates"
)

type mockRegistry struct {
	mu          sync.Mutex
	subs        []models.Subscription
	listErr     error
	deactivated []string
	removed     []string
}

func (m *mockRegistry) ListActive(ctx context.Context, recipientID string) ([]models.Subscription, error) {
	return m.subs, m.listErr
}

func (m *mockRegistry) Deactivate(ctx context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deactivated = append(m.deactivated, endpoint)
	return nil
}

func (m *mockRegistry) Remove(ctx context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, endpoint)
	return nil
}

type mockLedger struct {
	mu      sync.Mutex
	marked  map[string]bool
	markErr error
}

func (m *mockLedger) MarkResult(ctx context.Context, id string, anySucceeded bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.marked == nil {
		m.marked = map[string]bool{}
	}
	m.marked[id] = anySucceeded
	return m.markErr
}

// mockSender maps endpoint to a fixed outcome and records payloads.
type mockSender struct {
	mu       sync.Mutex
	outcomes map[string]push.Outcome
	payloads [][]byte
}

func (m *mockSender) Send(ctx context.Context, sub models.Subscription, payload []byte, priority models.Priority) push.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, payload)
	if outcome, ok := m.outcomes[sub.Endpoint]; ok {
		return outcome
	}
	return push.OutcomeSuccess
}

func subscriptionsFor(endpoints ...string) []models.Subscription {
	subs := make([]models.Subscription, 0, len(endpoints))
	for i, ep := range endpoints {
		subs = append(subs, models.Subscription{
			ID:          string(rune('a' + i)),
			RecipientID: "member-1",
			Endpoint:    ep,
			IsActive:    true,
		})
	}
	return subs
}

func testNotification() *models.Notification {
	return &models.Notification{
		ID:          "n-1",
		RecipientID: "member-1",
		Category:    models.CategoryMembershipExpiry,
		Title:       "Membership expiring",
		Message:     "Your VIP package expires in 3 days",
		Status:      models.StatusPending,
		Priority:    models.PriorityMedium,
		UniqueID:    "mem-1_3days",
		Data: models.ExpiryPayload{
			MembershipID: "mem-1",
			PackageName:  "VIP",
			DaysLeft:     3,
			ExpiryDate:   "01/09/2026",
		},
	}
}

func newTestDispatcher(subs *mockRegistry, ledger *mockLedger, sender *mockSender) *Dispatcher {
	cfg := config.PushConfig{IconURL: "/icon.png", BadgeURL: "/badge.png"}
	return NewDispatcher(subs, ledger, sender, templates.NewRegistry(), cfg, logger.NewNoOpLogger())
}

func TestDispatch_AllDestinationsAttempted(t *testing.T) {
	// One device accepts, two have rejected credentials. The failures must
	// not stop the success, the notification counts as sent, and the two
	// rejected subscriptions get deactivated.
	subs := &mockRegistry{subs: subscriptionsFor(
		"https://push.example.com/a",
		"https://push.example.com/b",
		"https://push.example.com/c",
	)}
	ledger := &mockLedger{}
	sender := &mockSender{outcomes: map[string]push.Outcome{
		"https://push.example.com/a": push.OutcomeSuccess,
		"https://push.example.com/b": push.OutcomeRecoverable,
		"https://push.example.com/c": push.OutcomeRecoverable,
	}}

	res, err := newTestDispatcher(subs, ledger, sender).Dispatch(context.Background(), testNotification())

	require.NoError(t, err)
	assert.Equal(t, Result{Succeeded: 1, Failed: 2}, res)
	assert.True(t, ledger.marked["n-1"], "one accepted delivery marks the notification sent")
	assert.ElementsMatch(t,
		[]string{"https://push.example.com/b", "https://push.example.com/c"},
		subs.deactivated)
	assert.Empty(t, subs.removed)
}

func TestDispatch_GoneSubscriptionRemoved(t *testing.T) {
	subs := &mockRegistry{subs: subscriptionsFor("https://push.example.com/gone")}
	ledger := &mockLedger{}
	sender := &mockSender{outcomes: map[string]push.Outcome{
		"https://push.example.com/gone": push.OutcomePermanent,
	}}

	res, err := newTestDispatcher(subs, ledger, sender).Dispatch(context.Background(), testNotification())

	require.NoError(t, err)
	assert.Equal(t, Result{Succeeded: 0, Failed: 1}, res)
	assert.False(t, ledger.marked["n-1"])
	assert.Equal(t, []string{"https://push.example.com/gone"}, subs.removed)
	assert.Empty(t, subs.deactivated)
}

func TestDispatch_TransientLeavesSubscriptionAlone(t *testing.T) {
	subs := &mockRegistry{subs: subscriptionsFor("https://push.example.com/flaky")}
	ledger := &mockLedger{}
	sender := &mockSender{outcomes: map[string]push.Outcome{
		"https://push.example.com/flaky": push.OutcomeTransient,
	}}

	res, err := newTestDispatcher(subs, ledger, sender).Dispatch(context.Background(), testNotification())

	require.NoError(t, err)
	assert.Equal(t, Result{Succeeded: 0, Failed: 1}, res)
	assert.Empty(t, subs.deactivated)
	assert.Empty(t, subs.removed)
}

func TestDispatch_NoSubscriptions(t *testing.T) {
	subs := &mockRegistry{}
	ledger := &mockLedger{}
	sender := &mockSender{}

	res, err := newTestDispatcher(subs, ledger, sender).Dispatch(context.Background(), testNotification())

	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	require.Contains(t, ledger.marked, "n-1")
	assert.False(t, ledger.marked["n-1"], "no destinations means the notification is marked failed")
	assert.Empty(t, sender.payloads, "nothing should be pushed without a destination")
}

func TestDispatch_PayloadContents(t *testing.T) {
	subs := &mockRegistry{subs: subscriptionsFor("https://push.example.com/a")}
	ledger := &mockLedger{}
	sender := &mockSender{}

	_, err := newTestDispatcher(subs, ledger, sender).Dispatch(context.Background(), testNotification())
	require.NoError(t, err)
	require.Len(t, sender.payloads, 1)

	var payload webPayload
	require.NoError(t, json.Unmarshal(sender.payloads[0], &payload))

	assert.Equal(t, "Membership expiring", payload.Title)
	assert.Equal(t, "Your VIP package expires in 3 days", payload.Body)
	assert.Equal(t, "/icon.png", payload.Icon)
	assert.Equal(t, "/memberships", payload.URL)
	assert.Equal(t, "n-1", payload.Data["notificationId"])
	assert.Equal(t, "mem-1_3days", payload.Data["uniqueId"])
	assert.Equal(t, "VIP", payload.Data["packageName"])
	assert.NotEmpty(t, payload.Actions, "expiry pushes carry the renew action")
}

func TestCategoryURL(t *testing.T) {
	assert.Equal(t, "/appointments", categoryURL(models.CategoryAppointmentReminder))
	assert.Equal(t, "/workouts", categoryURL(models.CategoryWorkoutReminder))
	assert.Equal(t, "/promotions", categoryURL(models.CategoryPromotion))
	assert.Equal(t, "/notifications", categoryURL(models.CategorySystem))
}
