// internal/triggers/workout/evaluator.go
package workout

import (
	"context"
	"fmt"
	"time"

	"gym-notification-engine/internal/common/config"
	"gym-notification-engine/internal/common/logger"
	"gym-notification-engine/internal/models"
)

type WorkoutSource interface {
	ScheduledWorkoutsBetween(ctx context.Context, from, to time.Time) ([]models.WorkoutSession, error)
}

// Evaluator raises a workout_reminder candidate for every scheduled session
// starting inside the configured lookahead window (roughly one hour out).
// Each session reminds once: the unique id is fixed at "<workoutID>_1h"
// regardless of which tick inside the window catches it.
type Evaluator struct {
	source   WorkoutSource
	minAhead time.Duration
	maxAhead time.Duration
	logger   logger.Logger
}

func New(source WorkoutSource, cfg config.WorkoutTriggerConfig, log logger.Logger) *Evaluator {
	return &Evaluator{
		source:   source,
		minAhead: time.Duration(cfg.LookaheadMinMin) * time.Minute,
		maxAhead: time.Duration(cfg.LookaheadMaxMin) * time.Minute,
		logger:   log.WithFields(map[string]interface{}{"trigger": "workout"}),
	}
}

func (e *Evaluator) Category() models.Category { return models.CategoryWorkoutReminder }

func (e *Evaluator) Evaluate(ctx context.Context, now time.Time) ([]models.Candidate, error) {
	from := now.Add(e.minAhead)
	to := now.Add(e.maxAhead)

	sessions, err := e.source.ScheduledWorkoutsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading upcoming workouts: %w", err)
	}

	var candidates []models.Candidate
	for _, w := range sessions {
		candidates = append(candidates, models.Candidate{
			RecipientID: w.MemberID,
			Category:    models.CategoryWorkoutReminder,
			UniqueID:    fmt.Sprintf("%s_1h", w.ID),
			Priority:    models.PriorityMedium,
			Payload: models.WorkoutPayload{
				WorkoutID:    w.ID,
				MuscleGroups: w.MuscleGroups,
				Location:     w.Location,
				StartsAt:     w.StartsAt.Format("15:04"),
			},
		})
	}
	return candidates, nil
}
