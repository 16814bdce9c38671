// Package config loads runtime configuration for both binaries (the
// matching engine and the admin plane) from an optional config.yaml layered
// under environment variables.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the two processes share. Fields are
// unmarshaled via mapstructure tags so config.yaml and environment
// variables (LISTEN_ADDR, ADMIN_ADDR, ...) bind to the same keys.
type Config struct {
	ListenAddr    string        `mapstructure:"LISTEN_ADDR"`
	AdminAddr     string        `mapstructure:"ADMIN_ADDR"`
	MatchInterval time.Duration `mapstructure:"MATCH_INTERVAL"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
}

// Load reads config.yaml from the working directory if present, then
// applies environment overrides, then fills in defaults for anything still
// unset. Unlike the original loader, a missing config file is not an error:
// a deployment driven entirely by environment variables must work.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":12345")
	v.SetDefault("ADMIN_ADDR", ":8080")
	v.SetDefault("MATCH_INTERVAL", 100*time.Millisecond)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("LOG_LEVEL", "info")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
