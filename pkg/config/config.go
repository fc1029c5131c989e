// Package config loads the application configuration from YAML with
// environment-variable fallbacks for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Remote store providers.
const (
	ProviderNone      = "none"
	ProviderRedis     = "redis"
	ProviderFirestore = "firestore"
)

// Config represents the application configuration.
type Config struct {
	// LocalDir is where the local snapshot store keeps its files.
	// Defaults to ~/.focusforge/state.
	LocalDir string `yaml:"local_dir"`

	// Remote selects and configures the eventually-synced remote store.
	Remote RemoteConfig `yaml:"remote"`

	// Engine tunes timing behavior.
	Engine EngineConfig `yaml:"engine"`

	// MetricsPort serves /metrics and /health. Zero disables the server.
	MetricsPort int `yaml:"metrics_port"`
}

// RemoteConfig selects the remote snapshot store.
type RemoteConfig struct {
	// Provider is "none", "redis", or "firestore".
	Provider string `yaml:"provider"`

	Redis     RedisConfig     `yaml:"redis"`
	Firestore FirestoreConfig `yaml:"firestore"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// FirestoreConfig holds Firestore connection settings.
type FirestoreConfig struct {
	ProjectID       string `yaml:"project_id"`
	Collection      string `yaml:"collection"`
	CredentialsFile string `yaml:"credentials_file"`
}

// EngineConfig holds engine timing settings.
type EngineConfig struct {
	// MiningSpeed scales resource maturation. Defaults to 1.0.
	MiningSpeed float64 `yaml:"mining_speed"`

	SessionTick   Duration `yaml:"session_tick"`
	MiningTick    Duration `yaml:"mining_tick"`
	SweepInterval Duration `yaml:"sweep_interval"`
	SyncInterval  Duration `yaml:"sync_interval"`
}

// Duration decodes YAML strings like "30s" via time.ParseDuration.
type Duration time.Duration

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// LoadConfig loads configuration from a YAML file. A missing file is not
// an error; defaults and environment variables apply.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Apply defaults
	if cfg.LocalDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.LocalDir = filepath.Join(home, ".focusforge", "state")
		} else {
			cfg.LocalDir = ".focusforge-state"
		}
	}
	if cfg.Remote.Provider == "" {
		cfg.Remote.Provider = ProviderNone
	}
	if cfg.Engine.MiningSpeed == 0 {
		cfg.Engine.MiningSpeed = 1.0
	}

	// Load connection details from environment if not in config
	if cfg.Remote.Redis.Addr == "" {
		cfg.Remote.Redis.Addr = os.Getenv("FOCUSFORGE_REDIS_ADDR")
	}
	if cfg.Remote.Redis.Password == "" {
		cfg.Remote.Redis.Password = os.Getenv("FOCUSFORGE_REDIS_PASSWORD")
	}
	if cfg.Remote.Firestore.ProjectID == "" {
		cfg.Remote.Firestore.ProjectID = os.Getenv("GCP_PROJECT")
	}
	if cfg.Remote.Firestore.CredentialsFile == "" {
		cfg.Remote.Firestore.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}

	return &cfg, nil
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Remote.Provider {
	case ProviderNone:
	case ProviderRedis:
		if c.Remote.Redis.Addr == "" {
			return fmt.Errorf("remote.redis.addr is required for the redis provider")
		}
	case ProviderFirestore:
		if c.Remote.Firestore.ProjectID == "" {
			return fmt.Errorf("remote.firestore.project_id is required for the firestore provider")
		}
	default:
		return fmt.Errorf("unknown remote provider %q", c.Remote.Provider)
	}

	if c.Engine.MiningSpeed < 0 {
		return fmt.Errorf("engine.mining_speed must not be negative")
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("metrics_port %d out of range", c.MetricsPort)
	}

	return nil
}
