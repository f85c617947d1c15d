// Package config resolves runtime settings from a YAML file and the
// environment. Environment variables win over the file; the file wins over
// built-in defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

// Config is everything cmd/api needs to wire the service.
type Config struct {
	Port        string           `yaml:"port"`
	DatabaseURL string           `yaml:"databaseUrl"`
	RedisURL    string           `yaml:"redisUrl"`
	MapOrder    string           `yaml:"mapOrder"` // regions | centroids
	TwoOptIters int              `yaml:"twoOptMaxIterations"`
	RateRPS     float64          `yaml:"rateRps"`
	RateBurst   int              `yaml:"rateBurst"`
	Regions     map[string][]int `yaml:"regions"`
}

// DefaultRegions covers the base game maps. Deployments override the table
// from config when the game ships new areas.
func DefaultRegions() map[string][]int {
	return map[string][]int{
		"coastal lowlands": {10, 11, 12, 13},
		"verdant forest":   {20, 21, 22},
		"highland steppe":  {30, 31, 32, 33},
		"burning desert":   {40, 41},
		"frozen reach":     {50, 51, 52},
	}
}

// Load reads .env (if present), then the YAML config file, then the
// environment. CONFIG_FILE points at the file; the default config.yaml is
// only read when it exists.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:        "8080",
		MapOrder:    "regions",
		TwoOptIters: 50,
	}

	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if explicit {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("MAP_ORDER"); v != "" {
		cfg.MapOrder = v
	}
	if v := os.Getenv("TWO_OPT_MAX_ITERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TwoOptIters = n
		}
	}
	if v := os.Getenv("RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateRPS = f
		}
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateBurst = n
		}
	}

	if cfg.MapOrder != "regions" && cfg.MapOrder != "centroids" {
		return Config{}, fmt.Errorf("invalid mapOrder %q (want regions or centroids)", cfg.MapOrder)
	}
	if len(cfg.Regions) == 0 {
		cfg.Regions = DefaultRegions()
	}
	return cfg, nil
}
