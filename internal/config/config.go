package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Detection DetectionConfig `mapstructure:"detection"`
	Etcd      EtcdConfig      `mapstructure:"etcd"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host     string `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort int    `mapstructure:"http_port"` // HTTP server port
}

// DetectionConfig tunes the change-point detection service
type DetectionConfig struct {
	Algorithm       string        `mapstructure:"algorithm"`        // Detector algorithm name (default: cusum)
	BaselineWindow  int           `mapstructure:"baseline_window"`  // Leading observations used to estimate the baseline
	SweepWorkers    int           `mapstructure:"sweep_workers"`    // Parallelism of parameter sweeps
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`        // How long cached sweep results stay valid
	PublishTriggers bool          `mapstructure:"publish_triggers"` // Publish a change event when a detection triggers
}

// EtcdConfig represents the series registry backend configuration
type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
}

// QueueConfig represents message queue configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // Queue type: nats (default), redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	// PublishObservations relays HTTP-appended batches to the dataset's
	// observation subject for downstream consumers. The in-process ingest
	// consumer drops the echo as out of order, so leave this off unless
	// another system consumes the subject.
	PublishObservations bool `mapstructure:"publish_observations"`

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`       // Redis database number (default: 0)
	RedisStream   string `mapstructure:"redis_stream"`   // Redis stream prefix (default: "driftwatch")
	RedisGroup    string `mapstructure:"redis_group"`    // Redis consumer group (default: "driftwatch-group")
	RedisConsumer string `mapstructure:"redis_consumer"` // Redis consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`  // Kafka broker addresses
	KafkaGroupID string   `mapstructure:"kafka_group_id"` // Kafka consumer group ID
}

// CacheConfig represents the detection result cache configuration
type CacheConfig struct {
	Type     string `mapstructure:"type"`     // Cache type: memory (default), redis
	URL      string `mapstructure:"url"`      // Redis URL when type is redis
	Password string `mapstructure:"password"` // Optional Redis authentication
	DB       int    `mapstructure:"db"`       // Redis database number
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, Kitchen
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("detection config: %w", err)
	}

	if err := c.Etcd.Validate(); err != nil {
		return fmt.Errorf("etcd config: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	return nil
}

// Validate validates detection configuration
func (c *DetectionConfig) Validate() error {
	if c.Algorithm == "" {
		return fmt.Errorf("detection.algorithm is required")
	}

	if c.BaselineWindow < 2 {
		return fmt.Errorf("detection.baseline_window must be at least 2")
	}

	if c.SweepWorkers < 1 {
		return fmt.Errorf("detection.sweep_workers must be at least 1")
	}

	if c.CacheTTL < 0 {
		return fmt.Errorf("detection.cache_ttl cannot be negative")
	}

	return nil
}

// Validate validates etcd configuration
func (c *EtcdConfig) Validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("etcd.endpoints is required")
	}

	if c.DialTimeout <= 0 {
		return fmt.Errorf("etcd.dial_timeout must be positive")
	}

	return nil
}

// Validate validates cache configuration
func (c *CacheConfig) Validate() error {
	switch c.Type {
	case "", "memory":
		return nil
	case "redis":
		if c.URL == "" {
			return fmt.Errorf("cache.url is required for redis cache")
		}
		return nil
	default:
		return fmt.Errorf("cache.type must be 'memory' or 'redis'")
	}
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
