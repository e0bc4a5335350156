package config

import "time"

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Poll: PollConfig{
			Interval:        0, // follow the service's suggestion
			DefaultInterval: 30 * time.Second,
		},
		Source: SourceConfig{
			BaseURL:  "",
			Timeout:  10 * time.Second,
			Username: "",
			Password: SecretString{},
		},
		History: HistoryConfig{
			Enabled:          true,
			MaxSizeMB:        64,
			Retention:        24 * time.Hour,
			CleanupInterval:  5 * time.Minute,
			Shards:           64,
			MaxPayloadSize:   10 * 1024 * 1024, // 10MB
			HardMaxCacheSize: false,
		},
		Snapshot: SnapshotConfig{
			Enabled:             false,
			Address:             "localhost:6379",
			Password:            SecretString{},
			DB:                  0,
			KeyPrefix:           "confresh:snapshot:",
			TTL:                 0, // keep last snapshot indefinitely
			PoolSize:            10,
			MinIdleConns:        1,
			DialTimeout:         5 * time.Second,
			ReadTimeout:         3 * time.Second,
			WriteTimeout:        3 * time.Second,
			PoolTimeout:         4 * time.Second,
			MaxPendingWrites:    64,
			EnableTLS:           false,
			TLSSkipVerify:       false,
			HealthCheckInterval: 5 * time.Second,
		},
		Retry: RetryConfig{
			Enabled:        true,
			MaxAttempts:    3,
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			Multiplier:     2.0,
			Jitter:         true,
		},
		Metrics: MetricsConfig{
			Enabled:         true,
			PublishInterval: 10 * time.Second,
			DataDog: DataDogConfig{
				Enabled:                false,
				AgentHost:              "127.0.0.1",
				Port:                   8125,
				Prefix:                 "confresh",
				Tags:                   []string{},
				PublishIntervalSeconds: 30,
			},
		},
		Profile: ProfileConfig{
			Enabled:         true,
			MaxNameLength:   128,
			AllowWhitespace: false,
		},
	}
}

// ForTesting returns a minimal configuration suitable for unit tests.
// Poll intervals are in the tens of milliseconds so scheduling tests
// resolve quickly.
func ForTesting() *Config {
	return &Config{
		Poll: PollConfig{
			Interval:        0,
			DefaultInterval: 20 * time.Millisecond,
		},
		Source: SourceConfig{
			Timeout: 1 * time.Second,
		},
		History: HistoryConfig{
			Enabled:          true,
			MaxSizeMB:        16,
			Retention:        1 * time.Minute,
			CleanupInterval:  1 * time.Second,
			Shards:           16,
			MaxPayloadSize:   1024 * 1024, // 1MB
			HardMaxCacheSize: false,
		},
		Snapshot: SnapshotConfig{
			Enabled:             false, // Disabled for unit tests
			Address:             "localhost:6379",
			KeyPrefix:           "test:snapshot:",
			TTL:                 1 * time.Minute,
			PoolSize:            10,
			MinIdleConns:        1,
			DialTimeout:         1 * time.Second,
			ReadTimeout:         1 * time.Second,
			WriteTimeout:        1 * time.Second,
			PoolTimeout:         1 * time.Second,
			MaxPendingWrites:    16,
			HealthCheckInterval: 0,
		},
		Retry: RetryConfig{
			Enabled:        false,
			MaxAttempts:    1,
			InitialBackoff: 10 * time.Millisecond,
			MaxBackoff:     100 * time.Millisecond,
			Multiplier:     2.0,
			Jitter:         false,
		},
		Metrics: MetricsConfig{
			Enabled:         false,
			PublishInterval: 1 * time.Second,
		},
		Profile: ProfileConfig{
			Enabled:         true,
			MaxNameLength:   128,
			AllowWhitespace: false,
		},
	}
}

// ForTestingWithRedis returns a test config with the snapshot store enabled.
func ForTestingWithRedis(addr string) *Config {
	cfg := ForTesting()
	cfg.Snapshot.Enabled = true
	cfg.Snapshot.Address = addr
	return cfg
}
