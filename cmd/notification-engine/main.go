// cmd/notification-engine/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gym-notification-engine/internal/common/config"
	"gym-notification-engine/internal/common/database"
	"gym-notification-engine/internal/common/logger"
	"gym-notification-engine/internal/common/metrics"
	"gym-notification-engine/internal/dispatch"
	"gym-notification-engine/internal/engine"
	"gym-notification-engine/internal/push"
	"gym-notification-engine/internal/scheduler"
	"gym-notification-engine/internal/service"
	"gym-notification-engine/internal/store"
	"gym-notification-engine/internal/templates"
	"gym-notification-engine/internal/triggers/appointment"
	"gym-notification-engine/internal/triggers/expiry"
	"gym-notification-engine/internal/triggers/promotion"
	"gym-notification-engine/internal/triggers/workout"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification engine...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry; the dedup cache is advisory, so a dead
	// redis degrades to ledger-only dedup instead of blocking startup ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Warn("redis unavailable, dedup cache disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Stores ---
	notificationStore := store.NewNotificationStore(pg)
	subscriptionStore := store.NewSubscriptionStore(pg)
	businessStore := store.NewBusinessStore(pg)

	// --- Delivery pipeline ---
	registry := templates.NewRegistry()
	pushClient := push.NewClient(cfg.Push, log)
	dispatcher := dispatch.NewDispatcher(subscriptionStore, notificationStore, pushClient, registry, cfg.Push, log)

	cache := engine.NewDedupCache(redisClient, cfg.Dispatch.GetDedupCacheTTL(), log)
	eng := engine.New(notificationStore, dispatcher, registry, cache, cfg.Dispatch.BulkConcurrency, log)

	svc := service.New(subscriptionStore, notificationStore, eng, cfg.Push.VAPIDPublicKey, log)

	// --- Trigger scheduler ---
	sched := scheduler.New(eng, cfg.Triggers.GetTickTimeout(), log,
		scheduler.Trigger{
			Spec:      cfg.Triggers.Expiry.Cron,
			Evaluator: expiry.New(businessStore, cfg.Triggers.Expiry, log),
		},
		scheduler.Trigger{
			Spec:      cfg.Triggers.Appointment.Cron,
			Evaluator: appointment.New(businessStore, cfg.Triggers.Appointment, log),
		},
		scheduler.Trigger{
			Spec:      cfg.Triggers.Workout.Cron,
			Evaluator: workout.New(businessStore, cfg.Triggers.Workout, log),
		},
		scheduler.Trigger{
			Spec:      cfg.Triggers.Promotion.Cron,
			Evaluator: promotion.New(businessStore, log),
		},
	)
	if err := sched.Start(); err != nil {
		zapLog.Fatal("scheduler failed to start", zap.Error(err))
	}
	zapLog.Info("Trigger scheduler started")

	// --- Subscription gauge refresh ---
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := subscriptionStore.CountActive(ctx); err == nil {
				metrics.ActiveSubscriptions.Set(float64(n))
			}
		}
	}()

	// --- API, Health & Metrics Server ---
	go func() {
		service.NewHandler(svc, log).Register(http.DefaultServeMux)

		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := pg.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Metrics.Address))
		if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping scheduler...")
	sched.Stop()
	zapLog.Info("Notification engine stopped gracefully")
}
