package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8431 {
		t.Errorf("default port = %d, want 8431", cfg.Server.Port)
	}
	if cfg.Provider.EmbedDimensions != 768 {
		t.Errorf("default embed dimensions = %d, want 768", cfg.Provider.EmbedDimensions)
	}
	if cfg.Memory.ShortDecayRate != 0.995 {
		t.Errorf("default short decay rate = %v, want 0.995", cfg.Memory.ShortDecayRate)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("default top_k = %d, want 3", cfg.Retrieval.TopK)
	}
	if cfg.Reflection.Autonomy {
		t.Error("autonomy should default to disabled")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("server:\n  port: 9100\nmemory:\n  min_score: 0.1\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Memory.MinScore != 0.1 {
		t.Errorf("min_score = %v, want 0.1", cfg.Memory.MinScore)
	}
	// Untouched fields keep their defaults.
	if cfg.Provider.EmbedModel != "nomic-embed-text" {
		t.Errorf("embed model = %q, want default", cfg.Provider.EmbedModel)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://other:5432/db")
	t.Setenv("SERVER_PORT", "9200")
	t.Setenv("AUTONOMY_ENABLED", "true")
	t.Setenv("REFLECTION_INTERVAL", "90s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.URL != "postgres://other:5432/db" {
		t.Errorf("database url = %q", cfg.Database.URL)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("port = %d, want 9200", cfg.Server.Port)
	}
	if !cfg.Reflection.Autonomy {
		t.Error("autonomy should be enabled via env")
	}
	if cfg.Reflection.Interval != 90*time.Second {
		t.Errorf("interval = %v, want 90s", cfg.Reflection.Interval)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"empty db url", func(c *Config) { c.Database.URL = "" }},
		{"zero dimensions", func(c *Config) { c.Provider.EmbedDimensions = 0 }},
		{"decay rate zero", func(c *Config) { c.Memory.ShortDecayRate = 0 }},
		{"decay rate above one", func(c *Config) { c.Memory.LongDecayRate = 1.5 }},
		{"negative min score", func(c *Config) { c.Memory.MinScore = -0.1 }},
		{"zero sweep interval", func(c *Config) { c.Memory.SweepInterval = 0 }},
		{"zero top_k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"zero sample size", func(c *Config) { c.Reflection.SampleSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateClampsReflectionInterval(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Reflection.Interval = time.Second
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Reflection.Interval != MinReflectionInterval {
		t.Errorf("interval = %v, want clamp to %v", cfg.Reflection.Interval, MinReflectionInterval)
	}
}

func TestRuntimeUpdate(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rt := NewRuntime(cfg)

	next, _ := Load("")
	next.Retrieval.TopK = 5
	if err := rt.Update(next); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if rt.Current().Retrieval.TopK != 5 {
		t.Errorf("top_k = %d after update, want 5", rt.Current().Retrieval.TopK)
	}

	bad, _ := Load("")
	bad.Retrieval.TopK = 0
	if err := rt.Update(bad); err == nil {
		t.Error("expected error for invalid update")
	}
	if rt.Current().Retrieval.TopK != 5 {
		t.Error("failed update must not replace active config")
	}
}
