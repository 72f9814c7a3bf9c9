// internal/triggers/promotion/evaluator.go
package promotion

import (
	"context"
	"fmt"
	"time"

	"gym-notification-engine/internal/common/logger"
	"gym-notification-engine/internal/models"
)

// PromotionSource combines the two reads a broadcast needs: which promotions
// launch today and who is eligible to hear about them.
type PromotionSource interface {
	ActivePromotionsStartingBetween(ctx context.Context, from, to time.Time) ([]models.Promotion, error)
	ActiveVerifiedMemberIDs(ctx context.Context) ([]string, error)
}

// Evaluator raises promotion candidates for every active promotion whose
// start date is today, fanned out per active verified member. All candidates
// of one promotion share the unique id "promo_<promotionID>", so each member
// hears about a promotion exactly once no matter how often the trigger runs.
type Evaluator struct {
	source PromotionSource
	logger logger.Logger
}

func New(source PromotionSource, log logger.Logger) *Evaluator {
	return &Evaluator{
		source: source,
		logger: log.WithFields(map[string]interface{}{"trigger": "promotion"}),
	}
}

func (e *Evaluator) Category() models.Category { return models.CategoryPromotion }

func (e *Evaluator) Evaluate(ctx context.Context, now time.Time) ([]models.Candidate, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	promotions, err := e.source.ActivePromotionsStartingBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("loading starting promotions: %w", err)
	}
	if len(promotions) == 0 {
		return nil, nil
	}

	memberIDs, err := e.source.ActiveVerifiedMemberIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading eligible members: %w", err)
	}

	var candidates []models.Candidate
	for _, p := range promotions {
		payload := models.PromotionPayload{
			PromotionID:     p.ID,
			Name:            p.Name,
			DiscountPercent: p.DiscountPercent,
			EndDate:         p.EndDate.Format("02/01/2006"),
		}
		for _, memberID := range memberIDs {
			candidates = append(candidates, models.Candidate{
				RecipientID: memberID,
				Category:    models.CategoryPromotion,
				UniqueID:    "promo_" + p.ID,
				Priority:    models.PriorityMedium,
				Payload:     payload,
			})
		}
	}
	return candidates, nil
}
