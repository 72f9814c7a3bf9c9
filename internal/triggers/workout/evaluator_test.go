// internal/triggers/workout/evaluator_test.go
package workout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym-notification-engine/internal/common/config"
	"gym-notification-engine/internal/common/logger"
	"gym-notification-engine/internal/models"
)

type mockWorkoutSource struct {
	sessions []models.WorkoutSession
	err      error
	from, to time.Time
}

func (m *mockWorkoutSource) ScheduledWorkoutsBetween(ctx context.Context, from, to time.Time) ([]models.WorkoutSession, error) {
	m.from, m.to = from, to
	return m.sessions, m.err
}

func TestEvaluate_LookaheadWindow(t *testing.T) {
	now := time.Date(2026, 8, 29, 17, 0, 0, 0, time.UTC)
	source := &mockWorkoutSource{sessions: []models.WorkoutSession{{
		ID: "wk-1", MemberID: "member-1",
		MuscleGroups: []string{"chest", "triceps"},
		Location:     "Free weights",
		StartsAt:     now.Add(time.Hour),
		Status:       "scheduled",
	}}}

	cfg := config.WorkoutTriggerConfig{LookaheadMinMin: 30, LookaheadMaxMin: 90}
	candidates, err := New(source, cfg, logger.NewNoOpLogger()).Evaluate(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Minute), source.from)
	assert.Equal(t, now.Add(90*time.Minute), source.to)

	require.Len(t, candidates, 1)
	c := candidates[0]
	assert.Equal(t, "wk-1_1h", c.UniqueID)
	assert.Equal(t, "member-1", c.RecipientID)
	assert.Equal(t, models.PriorityMedium, c.Priority)

	payload := c.Payload.(models.WorkoutPayload)
	assert.Equal(t, []string{"chest", "triceps"}, payload.MuscleGroups)
	assert.Equal(t, "18:00", payload.StartsAt)
}

func TestEvaluate_NoSessions(t *testing.T) {
	candidates, err := New(&mockWorkoutSource{}, config.WorkoutTriggerConfig{LookaheadMinMin: 30, LookaheadMaxMin: 90},
		logger.NewNoOpLogger()).Evaluate(context.Background(), time.Now())

	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestEvaluate_SourceError(t *testing.T) {
	source := &mockWorkoutSource{err: errors.New("connection refused")}
	_, err := New(source, config.WorkoutTriggerConfig{}, logger.NewNoOpLogger()).Evaluate(context.Background(), time.Now())
	require.Error(t, err)
}
