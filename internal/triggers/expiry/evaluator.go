// internal/triggers/expiry/evaluator.go
package expiry

import (
	"context"
	"fmt"
	"time"

	"gym-notification-engine/internal/common/config"
	"gym-notification-engine/internal/common/logger"
	"gym-notification-engine/internal/models"
)

// MembershipSource is the read slice of the business store this evaluator
// needs.
type MembershipSource interface {
	ActiveMembershipsEndingBetween(ctx context.Context, from, to time.Time) ([]models.Membership, error)
}

// Evaluator raises a membership_expiry candidate for every active membership
// ending exactly N calendar days out, once per configured offset. The unique
// id "<membershipID>_<N>days" makes each offset its own notification while
// repeated ticks on the same day stay deduplicated downstream.
type Evaluator struct {
	source  MembershipSource
	offsets []int
	logger  logger.Logger
}

func New(source MembershipSource, cfg config.ExpiryTriggerConfig, log logger.Logger) *Evaluator {
	return &Evaluator{
		source:  source,
		offsets: cfg.OffsetDays,
		logger:  log.WithFields(map[string]interface{}{"trigger": "expiry"}),
	}
}

func (e *Evaluator) Category() models.Category { return models.CategoryMembershipExpiry }

func (e *Evaluator) Evaluate(ctx context.Context, now time.Time) ([]models.Candidate, error) {
	var candidates []models.Candidate
	for _, days := range e.offsets {
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
			AddDate(0, 0, days)
		dayEnd := dayStart.AddDate(0, 0, 1)

		memberships, err := e.source.ActiveMembershipsEndingBetween(ctx, dayStart, dayEnd)
		if err != nil {
			return nil, fmt.Errorf("loading memberships ending in %d days: %w", days, err)
		}

		for _, m := range memberships {
			priority := models.PriorityMedium
			if days <= 1 {
				priority = models.PriorityHigh
			}
			candidates = append(candidates, models.Candidate{
				RecipientID: m.MemberID,
				Category:    models.CategoryMembershipExpiry,
				UniqueID:    fmt.Sprintf("%s_%ddays", m.ID, days),
				Priority:    priority,
				Payload: models.ExpiryPayload{
					MembershipID: m.ID,
					PackageName:  m.PackageName,
					DaysLeft:     days,
					ExpiryDate:   m.EndDate.Format("02/01/2006"),
				},
			})
		}
	}
	return candidates, nil
}
