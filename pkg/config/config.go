package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// Config holds all runtime configuration for the uniseek service.
type Config struct {
	// Host and Port control the HTTP listener.
	Host string `toml:"host"`
	Port string `toml:"port"`

	// DatabaseURL is the PostgreSQL connection string for the program catalog.
	DatabaseURL string `toml:"database_url"`

	// RedisURL is the optional shared cache endpoint. When empty, or when the
	// endpoint cannot be reached within the retry budget, the service runs on
	// an in-process cache for its whole lifetime.
	RedisURL string `toml:"redis_url"`

	Cache       CacheConfig       `toml:"cache"`
	Compression CompressionConfig `toml:"compression"`
	Metrics     MetricsConfig     `toml:"metrics"`

	// Synonyms and Regions extend the built-in term tables.
	Synonyms map[string][]string `toml:"synonyms,omitempty"`
	Regions  map[string]string   `toml:"regions,omitempty"`
}

// CacheConfig controls response cache behavior.
type CacheConfig struct {
	// TTL is how long a cached search response stays valid.
	TTL Duration `toml:"ttl"`
	// ConnectAttempts caps how many times the remote backend is tried at
	// startup before falling back to the in-process cache.
	ConnectAttempts int `toml:"connect_attempts"`
}

// CompressionConfig controls response encoding negotiation.
type CompressionConfig struct {
	// Threshold is the minimum payload size in bytes before compression is
	// considered at all.
	Threshold int `toml:"threshold"`
	// BrotliLevel and GzipLevel pick encoder effort. Defaults favor latency
	// over ratio since search payloads are generated per request.
	BrotliLevel int `toml:"brotli_level"`
	GzipLevel   int `toml:"gzip_level"`
}

// MetricsConfig controls the performance metric buffer.
type MetricsConfig struct {
	// BufferSize is the maximum number of retained request metrics.
	BufferSize int `toml:"buffer_size"`
	// SlowThreshold marks requests that get an immediate diagnostic log line.
	SlowThreshold Duration `toml:"slow_threshold"`
}

// Duration wraps time.Duration for TOML round-tripping.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// GetDefaultConfig returns a configuration with all defaults applied.
func GetDefaultConfig() *Config {
	return &Config{
		Host: "localhost",
		Port: "8080",
		Cache: CacheConfig{
			TTL:             Duration{5 * time.Minute},
			ConnectAttempts: 3,
		},
		Compression: CompressionConfig{
			Threshold:   1024,
			BrotliLevel: 4,
			GzipLevel:   6,
		},
		Metrics: MetricsConfig{
			BufferSize:    10000,
			SlowThreshold: Duration{time.Second},
		},
	}
}

// LoadConfig reads the TOML file at configPath, applying defaults for any
// missing values. A missing file yields the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := GetDefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(config)
	return config, nil
}

func applyDefaults(c *Config) {
	d := GetDefaultConfig()
	if c.Host == "" {
		c.Host = d.Host
	}
	if c.Port == "" {
		c.Port = d.Port
	}
	if c.Cache.TTL.Duration == 0 {
		c.Cache.TTL = d.Cache.TTL
	}
	if c.Cache.ConnectAttempts <= 0 {
		c.Cache.ConnectAttempts = d.Cache.ConnectAttempts
	}
	if c.Compression.Threshold <= 0 {
		c.Compression.Threshold = d.Compression.Threshold
	}
	if c.Compression.BrotliLevel <= 0 {
		c.Compression.BrotliLevel = d.Compression.BrotliLevel
	}
	if c.Compression.GzipLevel <= 0 {
		c.Compression.GzipLevel = d.Compression.GzipLevel
	}
	if c.Metrics.BufferSize <= 0 {
		c.Metrics.BufferSize = d.Metrics.BufferSize
	}
	if c.Metrics.SlowThreshold.Duration == 0 {
		c.Metrics.SlowThreshold = d.Metrics.SlowThreshold
	}
}

// SaveConfig writes the configuration as TOML to configPath.
func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveTemplateConfig writes the annotated sample configuration to configPath.
func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(configPath, []byte(configTemplate), 0644)
}

// GetDefaultConfigPath returns the default config file location, honoring
// XDG_CONFIG_HOME.
func GetDefaultConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "uniseek", "config.toml"), nil
}
