package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Remote.Provider != ProviderNone {
		t.Errorf("default provider = %q, want %q", cfg.Remote.Provider, ProviderNone)
	}
	if cfg.Engine.MiningSpeed != 1.0 {
		t.Errorf("default mining speed = %v, want 1.0", cfg.Engine.MiningSpeed)
	}
	if cfg.LocalDir == "" {
		t.Error("expected a default local dir")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
local_dir: /var/lib/focusforge
metrics_port: 9100
remote:
  provider: redis
  redis:
    addr: localhost:6379
    db: 2
engine:
  mining_speed: 2.0
  sync_interval: 30s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.LocalDir != "/var/lib/focusforge" {
		t.Errorf("local_dir = %q", cfg.LocalDir)
	}
	if cfg.MetricsPort != 9100 {
		t.Errorf("metrics_port = %d", cfg.MetricsPort)
	}
	if cfg.Remote.Provider != ProviderRedis {
		t.Errorf("provider = %q", cfg.Remote.Provider)
	}
	if cfg.Remote.Redis.Addr != "localhost:6379" || cfg.Remote.Redis.DB != 2 {
		t.Errorf("redis config = %+v", cfg.Remote.Redis)
	}
	if cfg.Engine.MiningSpeed != 2.0 {
		t.Errorf("mining_speed = %v", cfg.Engine.MiningSpeed)
	}
	if cfg.Engine.SyncInterval.Std() != 30*time.Second {
		t.Errorf("sync_interval = %v", cfg.Engine.SyncInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("config invalid: %v", err)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Remote.Provider = "dynamo" }},
		{"redis without addr", func(c *Config) { c.Remote.Provider = ProviderRedis }},
		{"firestore without project", func(c *Config) { c.Remote.Provider = ProviderFirestore }},
		{"negative mining speed", func(c *Config) { c.Engine.MiningSpeed = -1 }},
		{"metrics port out of range", func(c *Config) { c.MetricsPort = 70000 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Remote: RemoteConfig{Provider: ProviderNone}, Engine: EngineConfig{MiningSpeed: 1.0}}
			tc.mod(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnvFallback(t *testing.T) {
	t.Setenv("FOCUSFORGE_REDIS_ADDR", "redis.internal:6379")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Remote.Redis.Addr != "redis.internal:6379" {
		t.Errorf("redis addr = %q, want env fallback", cfg.Remote.Redis.Addr)
	}
}
