package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Unexpected port: %s", cfg.Server.Port)
	}
	if cfg.Redis.TTL != 30*time.Second {
		t.Errorf("Unexpected redis ttl: %v", cfg.Redis.TTL)
	}
	if cfg.Database.URL != "" {
		t.Errorf("Expected no database by default, got %q", cfg.Database.URL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	content := `
server:
  port: "9090"
  read_timeout: 5s
  write_timeout: 5s

database:
  url: "postgres://localhost/vigor"

redis:
  url: "redis://localhost:6379/0"
  ttl: 1m

logging:
  level: "debug"
  format: "text"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	t.Setenv("RATE_ENGINE_LOGGING_LEVEL", "warn")

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Unexpected port: %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Unexpected read timeout: %v", cfg.Server.ReadTimeout)
	}
	if cfg.Redis.TTL != time.Minute {
		t.Errorf("Unexpected redis ttl: %v", cfg.Redis.TTL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected env override, got level %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Unexpected format: %s", cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/rate-engine.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidateErrors(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: "8080", ReadTimeout: time.Second, WriteTimeout: time.Second, ShutdownTimeout: time.Second},
			Redis:   RedisConfig{TTL: 30 * time.Second},
			Logging: LoggingConfig{Level: "info", Format: "json"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }},
		{"short redis ttl", func(c *Config) { c.Redis.URL = "redis://x"; c.Redis.TTL = time.Millisecond }},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("baseline config invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
