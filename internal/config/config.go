// Package config loads the arbor configuration file and its environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/codec"
	"github.com/aretw0/arbor/pkg/domain"
)

// DefaultPath is the configuration file looked up in the working directory.
const DefaultPath = "arbor.yaml"

// Storage backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config represents the structure of arbor.yaml.
type Config struct {
	Store     string      `yaml:"store" json:"store"`
	DataDir   string      `yaml:"data_dir" json:"data_dir"`
	Format    string      `yaml:"format" json:"format"`
	Key       string      `yaml:"key" json:"key"`
	Direction string      `yaml:"direction" json:"direction"`
	Port      int         `yaml:"port" json:"port"`
	LogLevel  string      `yaml:"log_level" json:"log_level"`
	LogFormat string      `yaml:"log_format" json:"log_format"`
	Redis     RedisConfig `yaml:"redis" json:"redis"`

	// Strict rejects saves of trees with duplicate ids or dangling internal links.
	Strict bool `yaml:"strict" json:"strict"`
	// Redact lists regular expressions masked in node text before it is stored.
	Redact []string `yaml:"redact" json:"redact"`
}

// RedisConfig configures the Redis store and the distributed lock.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	TTL      string `yaml:"ttl" json:"ttl"`
	Lock     bool   `yaml:"lock" json:"lock"`
	LockTTL  string `yaml:"lock_ttl" json:"lock_ttl"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Store:     StoreFile,
		DataDir:   filepath.Join(".arbor", "trees"),
		Format:    string(codec.FormatJSON),
		Key:       domain.DefaultStorageKey,
		Direction: string(graph.DirectionTD),
		Port:      8080,
		LogLevel:  "info",
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "arbor:",
		},
	}
}

// Load reads a configuration file (YAML or JSON) on top of Default.
// A missing file is not an error: the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// ApplyEnv overrides fields from ARBOR_* variables found by lookup (os.LookupEnv).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"ARBOR_STORE":          &c.Store,
		"ARBOR_DATA_DIR":       &c.DataDir,
		"ARBOR_FORMAT":         &c.Format,
		"ARBOR_KEY":            &c.Key,
		"ARBOR_DIRECTION":      &c.Direction,
		"ARBOR_LOG_LEVEL":      &c.LogLevel,
		"ARBOR_LOG_FORMAT":     &c.LogFormat,
		"ARBOR_REDIS_ADDR":     &c.Redis.Addr,
		"ARBOR_REDIS_PASSWORD": &c.Redis.Password,
		"ARBOR_REDIS_PREFIX":   &c.Redis.Prefix,
		"ARBOR_REDIS_TTL":      &c.Redis.TTL,
	}
	for name, dst := range str {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"ARBOR_PORT":     &c.Port,
		"ARBOR_REDIS_DB": &c.Redis.DB,
	}
	for name, dst := range ints {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
		*dst = n
	}

	bools := map[string]*bool{
		"ARBOR_REDIS_LOCK": &c.Redis.Lock,
		"ARBOR_STRICT":     &c.Strict,
	}
	for name, dst := range bools {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
		*dst = b
	}
	return nil
}

// Validate checks the values that later stages would otherwise reject late.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("unknown store %q (want memory, file or redis)", c.Store)
	}
	if _, err := codec.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, err := graph.ParseDirection(c.Direction); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return err
	}
	if _, err := parseDuration(c.Redis.TTL); err != nil {
		return fmt.Errorf("invalid redis ttl: %w", err)
	}
	if _, err := parseDuration(c.Redis.LockTTL); err != nil {
		return fmt.Errorf("invalid redis lock_ttl: %w", err)
	}
	for _, p := range c.Redact {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// RedisTTL is the expiry of stored trees. Zero keeps them forever.
func (c Config) RedisTTL() time.Duration {
	d, _ := parseDuration(c.Redis.TTL)
	return d
}

// LockTTL is the lifetime of a distributed lock. Zero selects the default.
func (c Config) LockTTL() time.Duration {
	d, _ := parseDuration(c.Redis.LockTTL)
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
