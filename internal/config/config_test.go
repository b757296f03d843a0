package config

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.BaseURL != "http://localhost:8080/fhir" {
		t.Errorf("expected default base URL, got %s", cfg.BaseURL)
	}
	if cfg.SearchMaxCount != 1000 {
		t.Errorf("expected default max count 1000, got %d", cfg.SearchMaxCount)
	}
	if cfg.UnknownParamWarnings {
		t.Error("expected unknown parameter warnings off by default")
	}
	if cfg.SeedFile != "" {
		t.Errorf("expected no seed file, got %s", cfg.SeedFile)
	}
	if cfg.BodyLimit != "1M" {
		t.Errorf("expected default body limit 1M, got %s", cfg.BodyLimit)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BASE_URL", "https://fhir.test/r4")
	t.Setenv("SEARCH_MAX_COUNT", "50")
	t.Setenv("UNKNOWN_PARAM_WARNINGS", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.BaseURL != "https://fhir.test/r4" {
		t.Errorf("expected base URL from env, got %s", cfg.BaseURL)
	}
	if cfg.SearchMaxCount != 50 {
		t.Errorf("expected max count 50, got %d", cfg.SearchMaxCount)
	}
	if !cfg.UnknownParamWarnings {
		t.Error("expected unknown parameter warnings on")
	}
	if cfg.Level() != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %s", cfg.Level())
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Setenv("BASE_URL", "localhost/fhir")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for relative BASE_URL")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Port:           "8080",
		BaseURL:        "http://localhost:8080/fhir",
		LogLevel:       "info",
		SearchMaxCount: 100,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"port not a number", func(c *Config) { c.Port = "http" }, true},
		{"port out of range", func(c *Config) { c.Port = "70000" }, true},
		{"ftp base", func(c *Config) { c.BaseURL = "ftp://host/fhir" }, true},
		{"no host", func(c *Config) { c.BaseURL = "http:///fhir" }, true},
		{"zero max count", func(c *Config) { c.SearchMaxCount = 0 }, true},
		{"max count above ceiling", func(c *Config) { c.SearchMaxCount = 5000 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}
