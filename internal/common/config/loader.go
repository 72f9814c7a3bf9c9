// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from configs/config.yaml (plus an optional
// config.<env>.yaml overlay) and the environment. Environment variables win
// over file values, e.g. DATABASE_POSTGRES_PASSWORD.
func Load() (*Config, error) {
	// .env is optional; existing env variables are never overridden.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // overlay is optional

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "gym-notification-engine"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Database.Postgres.Host == "" {
		cfg.Database.Postgres.Host = "localhost"
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 20
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}

	if cfg.Push.TTL == 0 {
		cfg.Push.TTL = 86400
	}
	if cfg.Push.Timeout == 0 {
		cfg.Push.Timeout = 10000
	}
	if cfg.Push.RetryDelay == 0 {
		cfg.Push.RetryDelay = 500
	}

	if cfg.Triggers.Expiry.Cron == "" {
		cfg.Triggers.Expiry.Cron = "0 8 * * *"
	}
	if len(cfg.Triggers.Expiry.OffsetDays) == 0 {
		cfg.Triggers.Expiry.OffsetDays = []int{7, 3, 1}
	}
	if cfg.Triggers.Appointment.Cron == "" {
		cfg.Triggers.Appointment.Cron = "@hourly"
	}
	if len(cfg.Triggers.Appointment.OffsetHours) == 0 {
		cfg.Triggers.Appointment.OffsetHours = []int{24, 2}
	}
	if cfg.Triggers.Workout.Cron == "" {
		cfg.Triggers.Workout.Cron = "@every 30m"
	}
	if cfg.Triggers.Workout.LookaheadMinMin == 0 {
		cfg.Triggers.Workout.LookaheadMinMin = 30
	}
	if cfg.Triggers.Workout.LookaheadMaxMin == 0 {
		cfg.Triggers.Workout.LookaheadMaxMin = 90
	}
	if cfg.Triggers.Promotion.Cron == "" {
		cfg.Triggers.Promotion.Cron = "0 9 * * *"
	}
	if cfg.Triggers.TickTimeout == 0 {
		cfg.Triggers.TickTimeout = 300
	}

	if cfg.Dispatch.BulkConcurrency == 0 {
		cfg.Dispatch.BulkConcurrency = 10
	}
	if cfg.Dispatch.DedupCacheTTL == 0 {
		cfg.Dispatch.DedupCacheTTL = 48
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9100"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if cfg.Push.Subject == "" {
		return fmt.Errorf("push.subject is required")
	}
	if cfg.Push.VAPIDPublicKey == "" || cfg.Push.VAPIDPrivateKey == "" {
		return fmt.Errorf("push VAPID key pair is required")
	}
	if !strings.HasPrefix(cfg.Push.Subject, "mailto:") && !strings.HasPrefix(cfg.Push.Subject, "https://") {
		return fmt.Errorf("push.subject must be a mailto: or https: URL")
	}
	return nil
}
