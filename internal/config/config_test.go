package config

import (
	"strings"
	"testing"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := validateConfig(GetDefaults()); err != nil {
		t.Fatalf("default configuration rejected: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "cleartext audit rows",
			mutate:  func(c *Config) { c.Audit.AllowCleartext = true },
			wantErr: "allow_cleartext is not supported",
		},
		{
			name:    "unknown mappings backend",
			mutate:  func(c *Config) { c.Mappings.Backend = "memcached" },
			wantErr: "invalid mappings backend",
		},
		{
			name:    "non-positive mapping TTL",
			mutate:  func(c *Config) { c.Mappings.TTL = 0 },
			wantErr: "TTL must be positive",
		},
		{
			name:    "non-positive scan timeout",
			mutate:  func(c *Config) { c.Detection.ScanTimeout = 0 },
			wantErr: "scan timeout must be positive",
		},
		{
			name: "retention days zero",
			mutate: func(c *Config) {
				c.Retention.Policies = map[string]RetentionPolicyConfig{
					"GDPR/email": {RetentionDays: 0},
				}
			},
			wantErr: "retention_days must be positive",
		},
		{
			name: "negative grace period",
			mutate: func(c *Config) {
				c.Retention.Policies = map[string]RetentionPolicyConfig{
					"GDPR/email": {RetentionDays: 30, GracePeriodDays: -1},
				}
			},
			wantErr: "grace_period_days cannot be negative",
		},
		{
			name: "rate limit without rate",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.RequestsPerSecond = 0
			},
			wantErr: "requests_per_second must be positive",
		},
		{
			name: "rate limit without burst",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.Burst = 0
			},
			wantErr: "burst must be positive",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := GetDefaults()
			tt.mutate(config)

			err := validateConfig(config)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestRateLimitIgnoredWhenDisabled(t *testing.T) {
	config := GetDefaults()
	config.RateLimit.Enabled = false
	config.RateLimit.RequestsPerSecond = 0
	config.RateLimit.Burst = 0

	if err := validateConfig(config); err != nil {
		t.Fatalf("disabled rate limit should not be validated: %v", err)
	}
}
