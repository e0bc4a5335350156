// Package config provides configuration management for confresh.
package config

import (
	"time"

	"github.com/avermeer/confresh/internal/types"
)

// SecretString is a string type that redacts its value when marshaled to JSON.
type SecretString = types.SecretString

// NewSecretString creates a new SecretString with the provided value.
func NewSecretString(value string) SecretString {
	return types.NewSecretString(value)
}

// Config contains all configuration for a confresh refresher.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type Config struct {
	Poll     PollConfig     `json:"poll"`
	Source   SourceConfig   `json:"source"`
	History  HistoryConfig  `json:"history"`
	Snapshot SnapshotConfig `json:"snapshot"`
	Retry    RetryConfig    `json:"retry"`
	Metrics  MetricsConfig  `json:"metrics"`
	Profile  ProfileConfig  `json:"profile"`
}

// PollConfig controls refresh scheduling.
type PollConfig struct {
	// Interval is the caller-fixed poll interval. Zero means follow the
	// service's suggestion. When both are present the larger wins.
	Interval time.Duration `json:"interval"`

	// DefaultInterval applies when neither the caller nor the service
	// supplies an interval.
	DefaultInterval time.Duration `json:"defaultInterval"`
}

// SourceConfig contains connection settings for the HTTP source.
type SourceConfig struct {
	Timeout  time.Duration `json:"timeout"`
	Password SecretString  `json:"password"`
	BaseURL  string        `json:"baseURL"`
	Username string        `json:"username"`
}

// ProfileConfig contains configuration for profile name validation.
type ProfileConfig struct {
	ReservedPatterns []string `json:"reservedPatterns"`
	MaxNameLength    int      `json:"maxNameLength"`
	Enabled          bool     `json:"enabled"`
	AllowWhitespace  bool     `json:"allowWhitespace"`
}

// ToTypesConfig converts this config to a types.ProfileValidationConfig.
func (c ProfileConfig) ToTypesConfig() types.ProfileValidationConfig {
	return types.ProfileValidationConfig{
		MaxNameLength:    c.MaxNameLength,
		AllowWhitespace:  c.AllowWhitespace,
		ReservedPatterns: c.ReservedPatterns,
	}
}

// HistoryConfig contains configuration for the version history archive.
type HistoryConfig struct {
	Retention        time.Duration `json:"retention"`
	CleanupInterval  time.Duration `json:"cleanupInterval"`
	MaxSizeMB        int           `json:"maxSizeMB"`
	Shards           int           `json:"shards"`
	MaxPayloadSize   int           `json:"maxPayloadSize"`
	Enabled          bool          `json:"enabled"`
	HardMaxCacheSize bool          `json:"hardMaxCacheSize"`
}

// SnapshotConfig contains configuration for the Redis snapshot store.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type SnapshotConfig struct {
	TTL                 time.Duration `json:"ttl"`
	DialTimeout         time.Duration `json:"dialTimeout"`
	ReadTimeout         time.Duration `json:"readTimeout"`
	WriteTimeout        time.Duration `json:"writeTimeout"`
	PoolTimeout         time.Duration `json:"poolTimeout"`
	HealthCheckInterval time.Duration `json:"healthCheckInterval"`
	Password            SecretString  `json:"password"`
	Address             string        `json:"address"`
	KeyPrefix           string        `json:"keyPrefix"`
	DB                  int           `json:"db"`
	PoolSize            int           `json:"poolSize"`
	MinIdleConns        int           `json:"minIdleConns"`
	MaxPendingWrites    int           `json:"maxPendingWrites"`
	Enabled             bool          `json:"enabled"`
	EnableTLS           bool          `json:"enableTLS"`
	TLSSkipVerify       bool          `json:"tlsSkipVerify"`
}

// RetryConfig contains configuration for the HTTP source's request retry.
type RetryConfig struct {
	InitialBackoff time.Duration `json:"initialBackoff"`
	MaxBackoff     time.Duration `json:"maxBackoff"`
	Multiplier     float64       `json:"multiplier"`
	MaxAttempts    int           `json:"maxAttempts"`
	Enabled        bool          `json:"enabled"`
	Jitter         bool          `json:"jitter"`
}

// MetricsConfig contains configuration for metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type MetricsConfig struct {
	PublishInterval time.Duration `json:"publishInterval"`
	DataDog         DataDogConfig `json:"datadog"`
	Enabled         bool          `json:"enabled"`
}

// DataDogConfig contains configuration for DataDog metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type DataDogConfig struct {
	Tags                   []string `json:"tags"`
	AgentHost              string   `json:"agentHost"`
	Prefix                 string   `json:"prefix"`
	Port                   int      `json:"port"`
	PublishIntervalSeconds int      `json:"publishIntervalSeconds"`
	Enabled                bool     `json:"enabled"`
}
