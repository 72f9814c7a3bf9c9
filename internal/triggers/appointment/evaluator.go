// internal/triggers/appointment/evaluator.go
package appointment

import (
	"context"
	"fmt"
	"time"

	"gym-notification-engine/internal/common/config"
	"gym-notification-engine/internal/common/logger"
	"gym-notification-engine/internal/models"
)

type AppointmentSource interface {
	ConfirmedAppointmentsBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
}

// Evaluator raises an appointment_reminder candidate for every confirmed
// appointment starting N to N+1 hours from now, once per configured offset.
// The hour-wide window matches an hourly cron spec: consecutive ticks scan
// adjacent windows and never miss or double-count an appointment.
type Evaluator struct {
	source  AppointmentSource
	offsets []int
	logger  logger.Logger
}

func New(source AppointmentSource, cfg config.AppointmentTriggerConfig, log logger.Logger) *Evaluator {
	return &Evaluator{
		source:  source,
		offsets: cfg.OffsetHours,
		logger:  log.WithFields(map[string]interface{}{"trigger": "appointment"}),
	}
}

func (e *Evaluator) Category() models.Category { return models.CategoryAppointmentReminder }

func (e *Evaluator) Evaluate(ctx context.Context, now time.Time) ([]models.Candidate, error) {
	var candidates []models.Candidate
	for _, hours := range e.offsets {
		from := now.Add(time.Duration(hours) * time.Hour)
		to := from.Add(time.Hour)

		appointments, err := e.source.ConfirmedAppointmentsBetween(ctx, from, to)
		if err != nil {
			return nil, fmt.Errorf("loading appointments %dh out: %w", hours, err)
		}

		for _, a := range appointments {
			priority := models.PriorityMedium
			if hours <= 2 {
				priority = models.PriorityHigh
			}
			candidates = append(candidates, models.Candidate{
				RecipientID: a.MemberID,
				Category:    models.CategoryAppointmentReminder,
				UniqueID:    fmt.Sprintf("%s_%dh", a.ID, hours),
				Priority:    priority,
				Payload: models.AppointmentPayload{
					AppointmentID: a.ID,
					TrainerName:   a.TrainerName,
					Location:      a.Location,
					StartsAt:      a.StartsAt.Format("15:04 02/01/2006"),
				},
			})
		}
	}
	return candidates, nil
}
