// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"gym-notification-engine/internal/common/logger"
	"gym-notification-engine/internal/common/metrics"
	"gym-notification-engine/internal/models"
)

// Evaluator inspects the business stores at one instant and returns the
// notification candidates currently due. Evaluators are pure reads; all
// dedup and delivery happens downstream in the processor.
type Evaluator interface {
	Category() models.Category
	Evaluate(ctx context.Context, now time.Time) ([]models.Candidate, error)
}

// CandidateProcessor runs candidates through the notification write path.
// Satisfied by *engine.Engine.
type CandidateProcessor interface {
	Process(ctx context.Context, candidates []models.Candidate)
}

// Trigger pairs an evaluator with its cron spec.
type Trigger struct {
	Spec      string
	Evaluator Evaluator
}

// Scheduler drives the trigger evaluators on their cron specs. Each firing
// evaluates one category under a deadline and hands the candidates to the
// processor. A failed evaluation abandons that tick; the next firing starts
// clean.
type Scheduler struct {
	cron        *cron.Cron
	processor   CandidateProcessor
	triggers    []Trigger
	tickTimeout time.Duration
	logger      logger.Logger
	now         func() time.Time

	mu         sync.Mutex
	registered bool
	running    bool
}

func New(processor CandidateProcessor, tickTimeout time.Duration, log logger.Logger, triggers ...Trigger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		processor:   processor,
		triggers:    triggers,
		tickTimeout: tickTimeout,
		logger:      log.WithFields(map[string]interface{}{"component": "scheduler"}),
		now:         time.Now,
	}
}

// Start registers the cron entries and begins firing. Calling Start on a
// running scheduler is a no-op; after Stop it resumes without duplicating
// entries.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("scheduler already running", nil)
		return nil
	}

	if !s.registered {
		for _, trigger := range s.triggers {
			trigger := trigger
			_, err := s.cron.AddFunc(trigger.Spec, func() {
				s.runTick(trigger.Evaluator)
			})
			if err != nil {
				return fmt.Errorf("registering %s trigger (%q): %w", trigger.Evaluator.Category(), trigger.Spec, err)
			}
			s.logger.Info("trigger registered", map[string]interface{}{
				"category": string(trigger.Evaluator.Category()),
				"spec":     trigger.Spec,
			})
		}
		s.registered = true
	}

	s.cron.Start()
	s.running = true
	return nil
}

// Stop prevents further firings. Evaluations already in flight run to
// completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.logger.Info("scheduler stopped", nil)
}

func (s *Scheduler) runTick(ev Evaluator) {
	ctx, cancel := context.WithTimeout(context.Background(), s.tickTimeout)
	defer cancel()

	category := string(ev.Category())
	candidates, err := ev.Evaluate(ctx, s.now())
	if err != nil {
		metrics.TriggerTicks.WithLabelValues(category, "error").Inc()
		s.logger.Error("trigger evaluation failed, tick abandoned", map[string]interface{}{
			"category": category,
			"error":    err.Error(),
		})
		return
	}

	metrics.TriggerTicks.WithLabelValues(category, "ok").Inc()
	metrics.TriggerCandidates.WithLabelValues(category).Add(float64(len(candidates)))
	if len(candidates) == 0 {
		return
	}

	s.logger.Info("trigger tick produced candidates", map[string]interface{}{
		"category":   category,
		"candidates": len(candidates),
	})
	s.processor.Process(ctx, candidates)
}
