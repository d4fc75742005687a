package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// Scoring weights and decay constants are deliberately not configurable
// here; they live as named constants next to the algorithms.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Registry  RegistryConfig  `yaml:"registry"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metricsAddr"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type RegistryConfig struct {
	// Remote registry index URL. Empty disables refresh.
	URL string `yaml:"url"`
	// Bearer token for the registry. If empty, read from env REGISTRY_TOKEN.
	Token string `yaml:"token"`
	// Minutes between refresh runs when serving.
	RefreshMinutes int `yaml:"refreshMinutes"`
}

type DiscoveryConfig struct {
	// Default list sizes for the discovery endpoints
	TrendingLimit int `yaml:"trendingLimit"`
	RelatedLimit  int `yaml:"relatedLimit"`
	ForYouLimit   int `yaml:"forYouLimit"`
	SuggestLimit  int `yaml:"suggestLimit"`
}

type RateLimitConfig struct {
	// Requests per second and burst for the API rate limiter
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Server:    ServerConfig{Addr: ":8080", MetricsAddr: ":9090"},
		Storage:   StorageConfig{DBPath: "./promptpulse.db"},
		Registry:  RegistryConfig{URL: "", Token: "", RefreshMinutes: 30},
		Discovery: DiscoveryConfig{TrendingLimit: 20, RelatedLimit: 10, ForYouLimit: 10, SuggestLimit: 5},
		RateLimit: RateLimitConfig{RPS: 20, Burst: 40},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Registry.Token == "" {
		c.Registry.Token = os.Getenv("REGISTRY_TOKEN")
	}
	if c.Registry.URL == "" {
		c.Registry.URL = os.Getenv("REGISTRY_URL")
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = os.Getenv("PROMPTPULSE_DB")
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
