package config

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ehr/fhirmock/internal/search"
)

type Config struct {
	Port    string `mapstructure:"PORT"`
	Env     string `mapstructure:"ENV"`
	BaseURL string `mapstructure:"BASE_URL"`

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Seed data loaded at startup, JSON or YAML. Empty means start empty.
	SeedFile string `mapstructure:"SEED_FILE"`

	// Maximum accepted request body, e.g. "1M" or "512K".
	BodyLimit string `mapstructure:"BODY_LIMIT"`

	// Search
	SearchMaxCount       int  `mapstructure:"SEARCH_MAX_COUNT"`
	UnknownParamWarnings bool `mapstructure:"UNKNOWN_PARAM_WARNINGS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("BASE_URL", "http://localhost:8080/fhir")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SEED_FILE", "")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("SEARCH_MAX_COUNT", search.MaxCount)
	v.SetDefault("UNKNOWN_PARAM_WARNINGS", false)

	for _, key := range []string{
		"PORT", "ENV", "BASE_URL", "LOG_LEVEL", "SEED_FILE", "BODY_LIMIT",
		"SEARCH_MAX_COUNT", "UNKNOWN_PARAM_WARNINGS",
	} {
		_ = v.BindEnv(key)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level returns the parsed LOG_LEVEL. Validate has already rejected
// unparsable values, so the fallback only applies to hand-built configs.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.Port)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BASE_URL must be an absolute http(s) URL, got %q", c.BaseURL)
	}

	if c.SearchMaxCount < 1 || c.SearchMaxCount > search.MaxCount {
		return fmt.Errorf("SEARCH_MAX_COUNT must be between 1 and %d, got %d", search.MaxCount, c.SearchMaxCount)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}
