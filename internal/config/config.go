package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vitche/storage-timeline/pkg/timeline"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "stl.yml"

// SourceAuto picks the source from the location scheme.
const SourceAuto = "auto"

// Config represents the top-level stl.yml configuration
type Config struct {
	Version string        `yaml:"version"`
	Module  ModuleConfig  `yaml:"module"`
	Data    DataConfig    `yaml:"data"`
	Redis   RedisConfig   `yaml:"redis"`
	HTTP    HTTPConfig    `yaml:"http"`
	Storage StorageConfig `yaml:"storage"`
	Install InstallConfig `yaml:"install"`
}

// ModuleConfig says where the parser module comes from
type ModuleConfig struct {
	Location string `yaml:"location"`
	Source   string `yaml:"source,omitempty"` // auto, http, file or redis
}

// DataConfig says where timeline payloads come from
type DataConfig struct {
	Source string `yaml:"source,omitempty"` // auto, http, file or redis
	Root   string `yaml:"root,omitempty"`   // base directory for relative file locations
}

// RedisConfig is used by the redis source
type RedisConfig struct {
	URL       string `yaml:"url,omitempty"`
	KeyPrefix string `yaml:"key_prefix,omitempty"`
}

// HTTPConfig tunes the shared HTTP client
type HTTPConfig struct {
	Timeout            time.Duration `yaml:"timeout,omitempty"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify,omitempty"`
}

// StorageConfig points at a storage timeline service
type StorageConfig struct {
	URI    string `yaml:"uri,omitempty"`
	Binary bool   `yaml:"binary,omitempty"`
}

// InstallConfig controls `stl install`
type InstallConfig struct {
	Dir     string `yaml:"dir,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// Default returns the configuration used when no stl.yml exists.
func Default() *Config {
	return &Config{
		Version: "1.0",
		Module: ModuleConfig{
			Location: timeline.DefaultModuleLocation,
			Source:   SourceAuto,
		},
		Data: DataConfig{
			Source: SourceAuto,
		},
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
	}
}

// Validate performs strict validation on the configuration
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Module.Location == "" {
		return fmt.Errorf("module.location is required")
	}

	if err := validateSource("module.source", c.Module.Source); err != nil {
		return err
	}
	if err := validateSource("data.source", c.Data.Source); err != nil {
		return err
	}

	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must be >= 0, got %s", c.HTTP.Timeout)
	}

	if c.Module.Source == string(timeline.SourceRedis) || c.Data.Source == string(timeline.SourceRedis) ||
		c.ModuleSource() == timeline.SourceRedis {
		if c.Redis.URL == "" {
			return fmt.Errorf("redis.url is required when a redis source is used")
		}
	}
	if c.Redis.URL != "" {
		if _, err := redis.ParseURL(c.Redis.URL); err != nil {
			return fmt.Errorf("invalid redis.url: %w", err)
		}
	}

	if c.Storage.URI != "" {
		if u, err := url.Parse(c.Storage.URI); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("storage.uri must be an absolute URL, got '%s'", c.Storage.URI)
		}
	}

	if c.Install.BaseURL != "" {
		if u, err := url.Parse(c.Install.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("install.base_url must be an absolute URL, got '%s'", c.Install.BaseURL)
		}
	}

	return nil
}

func validateSource(field, source string) error {
	switch source {
	case "", SourceAuto, string(timeline.SourceHTTP), string(timeline.SourceFile), string(timeline.SourceRedis):
		return nil
	default:
		return fmt.Errorf("invalid %s: %s (must be 'auto', 'http', 'file', or 'redis')", field, source)
	}
}

// ModuleSource resolves module.source, detecting it from module.location
// when set to auto.
func (c *Config) ModuleSource() timeline.SourceKind {
	return resolveSource(c.Module.Source, c.Module.Location)
}

// DataSource resolves data.source for a payload location.
func (c *Config) DataSource(location string) timeline.SourceKind {
	return resolveSource(c.Data.Source, location)
}

func resolveSource(source, location string) timeline.SourceKind {
	if source == "" || source == SourceAuto {
		return timeline.DetectSource(location)
	}
	return timeline.SourceKind(source)
}

// RedisOptions parses redis.url.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if c.Redis.URL == "" {
		return nil, fmt.Errorf("redis.url is not configured")
	}
	opts, err := redis.ParseURL(c.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis.url: %w", err)
	}
	return opts, nil
}

// ApplyEnv overrides file values with STL_MODULE, STL_STORAGE_URI and REDIS_URL.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("STL_MODULE"); v != "" {
		c.Module.Location = v
	}
	if v := os.Getenv("STL_STORAGE_URI"); v != "" {
		c.Storage.URI = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
}

// Load reads stl.yml from the specified path on top of the defaults,
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Resolve loads the config at path. An empty path means stl.yml in dir,
// and a missing stl.yml there yields the defaults.
func Resolve(path, dir string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	candidate := filepath.Join(dir, FileName)
	if _, err := os.Stat(candidate); err == nil {
		return Load(candidate)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to check for %s: %w", FileName, err)
	}

	config := Default()
	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}
