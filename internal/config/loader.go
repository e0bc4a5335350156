package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Load loads configuration from a JSON file.
// If the file doesn't exist, returns default configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, use defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv loads configuration from a JSON file and applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

//nolint:gocyclo // Environment variable parsing requires many conditional checks
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CONFRESH_POLL_INTERVAL"); v != "" {
		cfg.Poll.Interval = parseDuration(v, cfg.Poll.Interval)
	}
	if v := os.Getenv("CONFRESH_POLL_DEFAULT_INTERVAL"); v != "" {
		cfg.Poll.DefaultInterval = parseDuration(v, cfg.Poll.DefaultInterval)
	}

	if v := os.Getenv("CONFRESH_SOURCE_BASE_URL"); v != "" {
		cfg.Source.BaseURL = v
	}
	if v := os.Getenv("CONFRESH_SOURCE_TIMEOUT"); v != "" {
		cfg.Source.Timeout = parseDuration(v, cfg.Source.Timeout)
	}
	if v := os.Getenv("CONFRESH_SOURCE_USERNAME"); v != "" {
		cfg.Source.Username = v
	}
	if v := os.Getenv("CONFRESH_SOURCE_PASSWORD"); v != "" {
		cfg.Source.Password = NewSecretString(v)
	}

	if v := os.Getenv("CONFRESH_HISTORY_ENABLED"); v != "" {
		cfg.History.Enabled = parseBool(v)
	}
	if v := os.Getenv("CONFRESH_HISTORY_MAX_SIZE_MB"); v != "" {
		cfg.History.MaxSizeMB = parseInt(v, cfg.History.MaxSizeMB)
	}
	if v := os.Getenv("CONFRESH_HISTORY_RETENTION"); v != "" {
		cfg.History.Retention = parseDuration(v, cfg.History.Retention)
	}

	if v := os.Getenv("CONFRESH_SNAPSHOT_ENABLED"); v != "" {
		cfg.Snapshot.Enabled = parseBool(v)
	}
	if v := os.Getenv("CONFRESH_SNAPSHOT_ADDRESS"); v != "" {
		cfg.Snapshot.Address = v
	}
	if v := os.Getenv("CONFRESH_SNAPSHOT_PASSWORD"); v != "" {
		cfg.Snapshot.Password = NewSecretString(v)
	}
	if v := os.Getenv("CONFRESH_SNAPSHOT_DB"); v != "" {
		cfg.Snapshot.DB = parseInt(v, cfg.Snapshot.DB)
	}
	if v := os.Getenv("CONFRESH_SNAPSHOT_KEY_PREFIX"); v != "" {
		cfg.Snapshot.KeyPrefix = v
	}
	if v := os.Getenv("CONFRESH_SNAPSHOT_TTL"); v != "" {
		cfg.Snapshot.TTL = parseDuration(v, cfg.Snapshot.TTL)
	}
	if v := os.Getenv("CONFRESH_SNAPSHOT_POOL_SIZE"); v != "" {
		cfg.Snapshot.PoolSize = parseInt(v, cfg.Snapshot.PoolSize)
	}
	if v := os.Getenv("CONFRESH_SNAPSHOT_ENABLE_TLS"); v != "" {
		cfg.Snapshot.EnableTLS = parseBool(v)
	}
	if v := os.Getenv("CONFRESH_SNAPSHOT_TLS_SKIP_VERIFY"); v != "" {
		cfg.Snapshot.TLSSkipVerify = parseBool(v)
	}

	if v := os.Getenv("CONFRESH_RETRY_ENABLED"); v != "" {
		cfg.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("CONFRESH_RETRY_MAX_ATTEMPTS"); v != "" {
		cfg.Retry.MaxAttempts = parseInt(v, cfg.Retry.MaxAttempts)
	}

	if v := os.Getenv("CONFRESH_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	if v := os.Getenv("DD_AGENT_HOST"); v != "" {
		cfg.Metrics.DataDog.AgentHost = v
		cfg.Metrics.DataDog.Enabled = true
	}
	if v := os.Getenv("DD_DOGSTATSD_PORT"); v != "" {
		cfg.Metrics.DataDog.Port = parseInt(v, cfg.Metrics.DataDog.Port)
	}
	if v := os.Getenv("DD_SERVICE"); v != "" {
		cfg.Metrics.DataDog.Prefix = v
	}
	if v := os.Getenv("DD_ENV"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "env:"+v)
	}
	if v := os.Getenv("DD_VERSION"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "version:"+v)
	}

	if v := os.Getenv("CONFRESH_DATADOG_ENABLED"); v != "" {
		if os.Getenv("DD_AGENT_HOST") == "" {
			cfg.Metrics.DataDog.Enabled = parseBool(v)
		}
	}
	if v := os.Getenv("CONFRESH_DATADOG_PREFIX"); v != "" {
		if os.Getenv("DD_SERVICE") == "" {
			cfg.Metrics.DataDog.Prefix = v
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Poll.Interval < 0 {
		return fmt.Errorf("poll.interval must not be negative")
	}
	if c.Poll.DefaultInterval <= 0 {
		return fmt.Errorf("poll.defaultInterval must be positive")
	}

	if c.Source.Timeout < 0 {
		return fmt.Errorf("source.timeout must not be negative")
	}

	if c.History.Enabled {
		if c.History.MaxSizeMB <= 0 {
			return fmt.Errorf("history.maxSizeMB must be positive")
		}
		if c.History.Shards <= 0 || (c.History.Shards&(c.History.Shards-1)) != 0 {
			return fmt.Errorf("history.shards must be a positive power of 2")
		}
		if c.History.Retention <= 0 {
			return fmt.Errorf("history.retention must be positive")
		}
	}

	if c.Snapshot.Enabled {
		if c.Snapshot.Address == "" {
			return fmt.Errorf("snapshot.address is required when snapshots are enabled")
		}
		if c.Snapshot.PoolSize <= 0 {
			return fmt.Errorf("snapshot.poolSize must be positive")
		}
		if c.Snapshot.TTL < 0 {
			return fmt.Errorf("snapshot.ttl must not be negative")
		}
	}

	if c.Retry.Enabled {
		if c.Retry.MaxAttempts <= 0 {
			return fmt.Errorf("retry.maxAttempts must be positive")
		}
	}

	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseInt(s string, defaultVal int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return v
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)

	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}
