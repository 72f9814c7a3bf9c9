// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Push     PushConfig     `mapstructure:"push"`
	Triggers TriggersConfig `mapstructure:"triggers"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PushConfig configures the Web Push client. Subject and the VAPID key pair
// identify the application server to push services; the public key is also
// what registering clients fetch.
type PushConfig struct {
	Subject         string `mapstructure:"subject"` // mailto: or https: URL
	VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
	TTL             int    `mapstructure:"ttl"`         // seconds the push service may queue
	Timeout         int    `mapstructure:"timeout"`     // milliseconds, per delivery attempt
	RetryCount      int    `mapstructure:"retry_count"` // transient retries within one dispatch
	RetryDelay      int    `mapstructure:"retry_delay"` // milliseconds between transient retries
	IconURL         string `mapstructure:"icon_url"`
	BadgeURL        string `mapstructure:"badge_url"`
}

// GetTimeout returns the per-attempt delivery timeout.
func (p PushConfig) GetTimeout() time.Duration {
	return time.Duration(p.Timeout) * time.Millisecond
}

// GetRetryDelay returns the pause between transient retries.
func (p PushConfig) GetRetryDelay() time.Duration {
	return time.Duration(p.RetryDelay) * time.Millisecond
}

// TriggersConfig holds per-category cron specs and trigger offsets. Offsets
// are read-only at runtime.
type TriggersConfig struct {
	Expiry      ExpiryTriggerConfig      `mapstructure:"expiry"`
	Appointment AppointmentTriggerConfig `mapstructure:"appointment"`
	Workout     WorkoutTriggerConfig     `mapstructure:"workout"`
	Promotion   PromotionTriggerConfig   `mapstructure:"promotion"`
	TickTimeout int                      `mapstructure:"tick_timeout"` // seconds per evaluation run
}

// GetTickTimeout returns the per-tick evaluation deadline.
func (t TriggersConfig) GetTickTimeout() time.Duration {
	return time.Duration(t.TickTimeout) * time.Second
}

type ExpiryTriggerConfig struct {
	Cron       string `mapstructure:"cron"`
	OffsetDays []int  `mapstructure:"offset_days"`
}

type AppointmentTriggerConfig struct {
	Cron        string `mapstructure:"cron"`
	OffsetHours []int  `mapstructure:"offset_hours"`
}

type WorkoutTriggerConfig struct {
	Cron            string `mapstructure:"cron"`
	LookaheadMinMin int    `mapstructure:"lookahead_min_minutes"`
	LookaheadMaxMin int    `mapstructure:"lookahead_max_minutes"`
}

type PromotionTriggerConfig struct {
	Cron string `mapstructure:"cron"`
}

type DispatchConfig struct {
	BulkConcurrency int `mapstructure:"bulk_concurrency"`
	DedupCacheTTL   int `mapstructure:"dedup_cache_ttl"` // hours
}

// GetDedupCacheTTL returns how long dedup keys stay in the redis fast path.
func (d DispatchConfig) GetDedupCacheTTL() time.Duration {
	return time.Duration(d.DedupCacheTTL) * time.Hour
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}
