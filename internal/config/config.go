// Package config provides configuration management for the gosearch application.
// All tunables are loaded once at startup into an immutable Config value;
// there is no runtime reconfiguration.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Crawler  CrawlerConfig
	Search   SearchConfig
	Logging  LoggingConfig
}

// AppConfig holds application-level metadata.
type AppConfig struct {
	Name    string
	Version string
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds the PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds the Redis connection and cache configuration.
type RedisConfig struct {
	URL       string
	QueueName string
	CacheTTL  time.Duration
}

// CrawlerConfig holds every crawl control plane tunable.
type CrawlerConfig struct {
	UserAgent             string
	RequestTimeout        time.Duration
	JobTimeout            time.Duration
	MaxDepth              int
	DefaultInterval       time.Duration
	ErrorInterval         time.Duration
	DomainLockTTL         time.Duration
	BaseScore             float64
	DepthPenalty          float64
	ErrorPenalty          float64
	MaxRetries            int
	RobotsCacheTTL        time.Duration
	MaxURLsPerDomain      int
	MaxURLLength          int
	MaxPathSegmentRepeats int
	WorkerConcurrency     int
	DispatchInterval      time.Duration
	DispatchLimit         int
	SeedFilePath          string
}

// SearchConfig holds the search pipeline configuration.
type SearchConfig struct {
	SynonymFilePath string
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string
}

// Load reads the configuration from environment variables, falling back to
// defaults. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	// Missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name:    "gosearch",
			Version: Version,
		},
		Server: ServerConfig{
			Host: v.GetString("server_host"),
			Port: v.GetInt("server_port"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database_url"),
		},
		Redis: RedisConfig{
			URL:       v.GetString("redis_url"),
			QueueName: v.GetString("queue_name"),
			CacheTTL:  seconds(v, "redis_ttl_seconds"),
		},
		Crawler: CrawlerConfig{
			UserAgent:             v.GetString("user_agent"),
			RequestTimeout:        seconds(v, "request_timeout"),
			JobTimeout:            seconds(v, "job_timeout"),
			MaxDepth:              v.GetInt("max_depth"),
			DefaultInterval:       seconds(v, "default_interval_seconds"),
			ErrorInterval:         seconds(v, "error_interval_seconds"),
			DomainLockTTL:         seconds(v, "domain_lock_ttl_seconds"),
			BaseScore:             v.GetFloat64("base_score"),
			DepthPenalty:          v.GetFloat64("depth_penalty"),
			ErrorPenalty:          v.GetFloat64("error_penalty"),
			MaxRetries:            v.GetInt("max_retries"),
			RobotsCacheTTL:        seconds(v, "robots_cache_ttl"),
			MaxURLsPerDomain:      v.GetInt("max_urls_per_domain"),
			MaxURLLength:          v.GetInt("max_url_length"),
			MaxPathSegmentRepeats: v.GetInt("max_path_segment_repeats"),
			WorkerConcurrency:     v.GetInt("worker_concurrency"),
			DispatchInterval:      seconds(v, "dispatch_interval_seconds"),
			DispatchLimit:         v.GetInt("dispatch_limit"),
			SeedFilePath:          v.GetString("seed_file_path"),
		},
		Search: SearchConfig{
			SynonymFilePath: v.GetString("synonym_file_path"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("log_level"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports configuration values that cannot work at runtime.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return &ValidationError{Field: "DATABASE_URL", Value: "", Reason: "must not be empty"}
	}
	if c.Redis.URL == "" {
		return &ValidationError{Field: "REDIS_URL", Value: "", Reason: "must not be empty"}
	}
	if c.Crawler.MaxDepth < 0 {
		return &ValidationError{Field: "MAX_DEPTH", Value: c.Crawler.MaxDepth, Reason: "must be non-negative"}
	}
	if c.Crawler.WorkerConcurrency < 1 {
		return &ValidationError{Field: "WORKER_CONCURRENCY", Value: c.Crawler.WorkerConcurrency, Reason: "must be at least 1"}
	}
	if c.Crawler.DispatchLimit < 1 {
		return &ValidationError{Field: "DISPATCH_LIMIT", Value: c.Crawler.DispatchLimit, Reason: "must be at least 1"}
	}
	return nil
}

// seconds reads an integer number of seconds as a time.Duration.
func seconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Second
}

// setDefaults sets default configuration values. Environment variables take
// precedence over every default below.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server_host", DefaultServerHost)
	v.SetDefault("server_port", DefaultServerPort)

	v.SetDefault("database_url", DefaultDatabaseURL)
	v.SetDefault("redis_url", DefaultRedisURL)
	v.SetDefault("queue_name", DefaultQueueName)
	v.SetDefault("redis_ttl_seconds", DefaultCacheTTLSeconds)

	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("request_timeout", DefaultRequestTimeoutSeconds)
	v.SetDefault("job_timeout", DefaultJobTimeoutSeconds)
	v.SetDefault("max_depth", DefaultMaxDepth)
	v.SetDefault("default_interval_seconds", DefaultIntervalSeconds)
	v.SetDefault("error_interval_seconds", DefaultErrorIntervalSeconds)
	v.SetDefault("domain_lock_ttl_seconds", DefaultDomainLockTTLSeconds)
	v.SetDefault("base_score", DefaultBaseScore)
	v.SetDefault("depth_penalty", DefaultDepthPenalty)
	v.SetDefault("error_penalty", DefaultErrorPenalty)
	v.SetDefault("max_retries", DefaultMaxRetries)
	v.SetDefault("robots_cache_ttl", DefaultRobotsCacheTTLSeconds)
	v.SetDefault("max_urls_per_domain", DefaultMaxURLsPerDomain)
	v.SetDefault("max_url_length", DefaultMaxURLLength)
	v.SetDefault("max_path_segment_repeats", DefaultMaxPathSegmentRepeats)
	v.SetDefault("worker_concurrency", DefaultWorkerConcurrency)
	v.SetDefault("dispatch_interval_seconds", DefaultDispatchIntervalSeconds)
	v.SetDefault("dispatch_limit", DefaultDispatchLimit)
	v.SetDefault("seed_file_path", "")

	v.SetDefault("synonym_file_path", DefaultSynonymFilePath)

	v.SetDefault("log_level", DefaultLogLevel)
}
