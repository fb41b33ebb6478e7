package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration. Values come from built-in
// defaults, then an optional YAML file named by CONFIG_PATH, then the
// environment (with .env filling in unset variables).
type Config struct {
	Env                   string  `yaml:"app_env"`
	Port                  string  `yaml:"port"`
	DBPath                string  `yaml:"db_path"`
	LogLevel              string  `yaml:"log_level"`
	LogFormat             string  `yaml:"log_format"`
	AuthSecret            string  `yaml:"auth_secret"`
	RateLimitRPS          float64 `yaml:"rate_limit_rps"`
	RateLimitBurst        int     `yaml:"rate_limit_burst"`
	SyncSchedule          string  `yaml:"sync_schedule"`
	SyncDaysBack          int     `yaml:"sync_days_back"`
	DepreciationCacheSize int     `yaml:"depreciation_cache_size"`
}

func defaults() Config {
	return Config{
		Env:                   "dev",
		Port:                  "8080",
		DBPath:                "./dev.db",
		LogLevel:              "info",
		LogFormat:             "json",
		RateLimitRPS:          20,
		RateLimitBurst:        40,
		SyncDaysBack:          7,
		DepreciationCacheSize: 1024,
	}
}

// IsDev reports whether migrations and seed data are applied at startup.
func (c Config) IsDev() bool {
	return c.Env == "" || strings.EqualFold(c.Env, "dev")
}

// Load reads CONFIG_PATH (if set), the local .env file and the environment.
func Load() (Config, error) {
	return load(os.Getenv("CONFIG_PATH"), ".env")
}

func load(yamlPath, dotenvPath string) (Config, error) {
	cfg := defaults()

	if yamlPath != "" {
		raw, err := os.ReadFile(yamlPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", yamlPath, err)
		}
	}

	// Production should inject real environment variables; the file is optional.
	if err := loadDotEnv(dotenvPath); err != nil {
		return Config{}, err
	}

	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < 0 {
				errs = append(errs, fmt.Errorf("%s must be a non-negative integer, got %q", key, v))
				return
			}
			*dst = n
		}
	}

	str("APP_ENV", &cfg.Env)
	str("PORT", &cfg.Port)
	str("DB_PATH", &cfg.DBPath)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("AUTH_SECRET", &cfg.AuthSecret)
	str("SYNC_SCHEDULE", &cfg.SyncSchedule)
	num("RATE_LIMIT_BURST", &cfg.RateLimitBurst)
	num("SYNC_DAYS_BACK", &cfg.SyncDaysBack)
	num("DEPRECIATION_CACHE_SIZE", &cfg.DepreciationCacheSize)
	if v, ok := os.LookupEnv("RATE_LIMIT_RPS"); ok && v != "" {
		rps, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || rps < 0 {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be a non-negative number, got %q", v))
		} else {
			cfg.RateLimitRPS = rps
		}
	}

	if cfg.DepreciationCacheSize < 1 {
		errs = append(errs, fmt.Errorf("DEPRECIATION_CACHE_SIZE must be at least 1, got %d", cfg.DepreciationCacheSize))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
