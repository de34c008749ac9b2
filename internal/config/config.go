// Package config loads ythist configuration from defaults, an optional YAML
// file and YTHIST_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ArseniyKD/yt-history-analysis/pkg/s3fetch"
	"github.com/ArseniyKD/yt-history-analysis/pkg/store"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "YTHIST_"

// ConfigPathEnvVar names a YAML config file when no path is passed to Load.
const ConfigPathEnvVar = EnvPrefix + "CONFIG"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete application configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	S3       S3Config       `koanf:"s3"`
	Log      LogConfig      `koanf:"log"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path          string `koanf:"path"`
	Synchronous   string `koanf:"synchronous"`
	BusyTimeoutMs int    `koanf:"busy_timeout_ms"`
	CacheSizeKB   int    `koanf:"cache_size_kb"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// DefaultLimit is used when a ranking request has no limit; requested
	// limits are clamped to [1, MaxLimit].
	DefaultLimit int `koanf:"default_limit"`
	MaxLimit     int `koanf:"max_limit"`

	// CORSOrigins lists allowed browser origins. Empty disables CORS.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitRequests per RateLimitWindow per client IP. 0 disables.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// S3Config configures access to s3:// inputs and export destinations.
type S3Config struct {
	Region      string `koanf:"region"`
	Concurrency int    `koanf:"concurrency"`
	PartSizeMB  int    `koanf:"part_size_mb"`
	TempDir     string `koanf:"temp_dir"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Debug bool `koanf:"debug"`
	Human bool `koanf:"human"`
}

// Default returns the built-in configuration.
func Default() *Config {
	db := store.DefaultConfig("youtube_history.db")
	return &Config{
		Database: DatabaseConfig{
			Path:          db.DBPath,
			Synchronous:   db.Synchronous,
			BusyTimeoutMs: db.BusyTimeoutMs,
			CacheSizeKB:   db.CacheSizeKB,
		},
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8000,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			DefaultLimit:      10,
			MaxLimit:          1000,
			CORSOrigins:       []string{},
			RateLimitRequests: 0,
			RateLimitWindow:   time.Minute,
		},
		S3: S3Config{
			Concurrency: 4,
			PartSizeMB:  8,
		},
	}
}

// Load builds the configuration. Precedence, lowest to highest: defaults,
// the YAML file at path (or $YTHIST_CONFIG when path is empty), then
// YTHIST_* environment variables such as YTHIST_DATABASE_PATH.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// sliceConfigPaths are list settings that arrive from the environment as
// comma-separated strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := []string{}
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps YTHIST_SECTION_KEY to section.key, e.g.
// YTHIST_SERVER_READ_TIMEOUT -> server.read_timeout. Variables that do not
// name a section key are ignored.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok || rest == "" {
		return ""
	}
	switch section {
	case "database", "server", "s3", "log":
		return section + "." + rest
	default:
		return ""
	}
}

// Validate checks configuration values.
func (c *Config) Validate() error {
	sc := c.StoreConfig()
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("%w: database: %w", ErrInvalid, err)
	}

	s := c.Server
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("%w: server.port must be in 1..65535, got %d", ErrInvalid, s.Port)
	}
	if s.MaxLimit < 1 {
		return fmt.Errorf("%w: server.max_limit must be positive, got %d", ErrInvalid, s.MaxLimit)
	}
	if s.DefaultLimit < 1 || s.DefaultLimit > s.MaxLimit {
		return fmt.Errorf("%w: server.default_limit must be in 1..%d, got %d", ErrInvalid, s.MaxLimit, s.DefaultLimit)
	}
	if s.ReadTimeout <= 0 || s.WriteTimeout <= 0 || s.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: server timeouts must be positive", ErrInvalid)
	}
	if s.RateLimitRequests < 0 {
		return fmt.Errorf("%w: server.rate_limit_requests must be non-negative, got %d", ErrInvalid, s.RateLimitRequests)
	}
	if s.RateLimitRequests > 0 && s.RateLimitWindow <= 0 {
		return fmt.Errorf("%w: server.rate_limit_window must be positive when rate limiting", ErrInvalid)
	}

	if c.S3.Concurrency < 0 || c.S3.PartSizeMB < 0 {
		return fmt.Errorf("%w: s3 concurrency and part size must be non-negative", ErrInvalid)
	}
	return nil
}

// StoreConfig converts the database section into a store.Config.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		DBPath:        c.Database.Path,
		Synchronous:   strings.ToUpper(c.Database.Synchronous),
		BusyTimeoutMs: c.Database.BusyTimeoutMs,
		CacheSizeKB:   c.Database.CacheSizeKB,
	}
}

// S3Options converts the s3 section into s3fetch.Options.
func (c *Config) S3Options() s3fetch.Options {
	return s3fetch.Options{
		Region: c.S3.Region,
		Transfer: s3fetch.TransferConfig{
			Concurrency: c.S3.Concurrency,
			PartSize:    int64(c.S3.PartSizeMB) * 1024 * 1024,
			TempDir:     c.S3.TempDir,
		},
	}
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// SetAddr overrides host and port from a host:port string.
func (c *Config) SetAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%w: address %q: %w", ErrInvalid, addr, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("%w: port %q: %w", ErrInvalid, port, err)
	}
	c.Server.Host = host
	c.Server.Port = p
	return nil
}
