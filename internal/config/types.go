package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Detection DetectionConfig `yaml:"detection" mapstructure:"detection"`
	Masking   MaskingConfig   `yaml:"masking" mapstructure:"masking"`
	Mappings  MappingsConfig  `yaml:"mappings" mapstructure:"mappings"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
	Retention RetentionConfig `yaml:"retention" mapstructure:"retention"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// DetectionConfig controls the scanning pipeline
type DetectionConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// DisabledTypes removes individual information types from scanning.
	DisabledTypes []string `yaml:"disabled_types" mapstructure:"disabled_types"`
	// ScanTimeout bounds one scan; on expiry partial results are returned
	// flagged as truncated.
	ScanTimeout time.Duration `yaml:"scan_timeout" mapstructure:"scan_timeout"`
}

// MaskingConfig controls how masked values are rendered
type MaskingConfig struct {
	PreserveFormat bool `yaml:"preserve_format" mapstructure:"preserve_format"`
}

// MappingsConfig configures the session-scoped mapping store
type MappingsConfig struct {
	Backend   string        `yaml:"backend" mapstructure:"backend"` // redis or memory
	RedisURL  string        `yaml:"redis_url" mapstructure:"redis_url"`
	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// AuditConfig controls the audit trail
type AuditConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// AllowCleartext must remain false. Startup fails when it is set: audit
	// rows carry hashes only and no code path writes cleartext values.
	AllowCleartext bool `yaml:"allow_cleartext" mapstructure:"allow_cleartext"`
	NotifyHighRisk bool `yaml:"notify_high_risk" mapstructure:"notify_high_risk"`
}

// RetentionPolicyConfig is one framework/type retention override
type RetentionPolicyConfig struct {
	RetentionDays   int `yaml:"retention_days" mapstructure:"retention_days"`
	GracePeriodDays int `yaml:"grace_period_days" mapstructure:"grace_period_days"`
}

// RetentionConfig controls the retention sweep and archival
type RetentionConfig struct {
	// SweepSchedule is a standard 5-field cron expression.
	SweepSchedule string `yaml:"sweep_schedule" mapstructure:"sweep_schedule"`
	// Policies overrides retention per "FRAMEWORK/type" key.
	Policies map[string]RetentionPolicyConfig `yaml:"policies" mapstructure:"policies"`
	Archive  struct {
		Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
		Directory string `yaml:"directory" mapstructure:"directory"`
	} `yaml:"archive" mapstructure:"archive"`
}

// DatabaseConfig contains audit store connection settings
type DatabaseConfig struct {
	URL             string        `yaml:"url" mapstructure:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
		Path     string `yaml:"path" mapstructure:"path"`
		MaxSize  int    `yaml:"max_size" mapstructure:"max_size"`
		MaxAge   int    `yaml:"max_age" mapstructure:"max_age"`
		Compress bool   `yaml:"compress" mapstructure:"compress"`
	} `yaml:"file" mapstructure:"file"`
}

// WebSocketConfig contains the operational event stream configuration
type WebSocketConfig struct {
	Enabled        bool     `yaml:"enabled" mapstructure:"enabled"`
	Path           string   `yaml:"path" mapstructure:"path"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	Events         struct {
		BroadcastDetections  bool `yaml:"broadcast_detections" mapstructure:"broadcast_detections"`
		BroadcastSweeps      bool `yaml:"broadcast_sweeps" mapstructure:"broadcast_sweeps"`
		BroadcastEscalations bool `yaml:"broadcast_escalations" mapstructure:"broadcast_escalations"`
	} `yaml:"events" mapstructure:"events"`
}

// RateLimitConfig contains per-client token bucket limits
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Detection: DetectionConfig{
			Enabled:     true,
			ScanTimeout: 5 * time.Second,
		},
		Masking: MaskingConfig{
			PreserveFormat: true,
		},
		Mappings: MappingsConfig{
			Backend:   "redis",
			RedisURL:  "redis://localhost:6379/0",
			KeyPrefix: "dataveil",
			TTL:       15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:        true,
			NotifyHighRisk: true,
		},
		Retention: RetentionConfig{
			SweepSchedule: "*/5 * * * *",
		},
		Database: DatabaseConfig{
			URL:             "postgres://localhost:5432/dataveil?sslmode=disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		WebSocket: WebSocketConfig{
			Enabled:        true,
			Path:           "/ws",
			AllowedOrigins: []string{"*"},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 50,
			Burst:             100,
		},
	}
	cfg.Retention.Archive.Directory = "archives"
	cfg.WebSocket.Events.BroadcastDetections = true
	cfg.WebSocket.Events.BroadcastSweeps = true
	cfg.WebSocket.Events.BroadcastEscalations = true
	return cfg
}
