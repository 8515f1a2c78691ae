package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all farm_service configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Model    ModelConfig    `yaml:"model"`
	Log      LogConfig      `yaml:"log"`
	Alerts   bool           `yaml:"alerts"` // raise high_risk alerts on High predictions
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "postgres" or "sqlite"
	URL    string `yaml:"url"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ModelConfig tunes the risk classifier and its training data.
type ModelConfig struct {
	Trees         int    `yaml:"trees"`
	Seed          uint64 `yaml:"seed"`
	SyntheticRows int    `yaml:"synthetic_rows"`
	MinHistorical int    `yaml:"min_historical"`
	Workers       int    `yaml:"workers"` // 0 means GOMAXPROCS
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Driver: "postgres"},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Model: ModelConfig{
			Trees:         100,
			Seed:          42,
			SyntheticRows: 1000,
			MinHistorical: 10,
		},
		Log:    LogConfig{Level: "info", Format: "text"},
		Alerts: true,
	}
}

// Load starts from Default, applies the YAML file at path when path is not
// empty, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	// POSTGRES_URL is kept for existing deployments; FARM_DB_URL wins.
	c.Database.URL = getenv("POSTGRES_URL", c.Database.URL)
	c.Database.URL = getenv("FARM_DB_URL", c.Database.URL)
	c.Database.Driver = getenv("FARM_DB_DRIVER", c.Database.Driver)
	c.Server.Addr = getenv("FARM_ADDR", c.Server.Addr)
	c.Log.Level = getenv("FARM_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getenv("FARM_LOG_FORMAT", c.Log.Format)
	c.Model.Trees = getenvInt("FARM_MODEL_TREES", c.Model.Trees)
	c.Model.Seed = getenvUint64("FARM_MODEL_SEED", c.Model.Seed)
	c.Model.SyntheticRows = getenvInt("FARM_SYNTHETIC_ROWS", c.Model.SyntheticRows)
	c.Model.MinHistorical = getenvInt("FARM_MIN_HISTORICAL", c.Model.MinHistorical)
	c.Model.Workers = getenvInt("FARM_TRAIN_WORKERS", c.Model.Workers)
	c.Alerts = getenvBool("FARM_ALERTS", c.Alerts)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url: required"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr: required"))
	}
	if c.Model.Trees <= 0 {
		errs = append(errs, fmt.Errorf("model.trees: must be positive, got %d", c.Model.Trees))
	}
	if c.Model.SyntheticRows <= 0 {
		errs = append(errs, fmt.Errorf("model.synthetic_rows: must be positive, got %d", c.Model.SyntheticRows))
	}
	if c.Model.MinHistorical <= 0 {
		errs = append(errs, fmt.Errorf("model.min_historical: must be positive, got %d", c.Model.MinHistorical))
	}
	if c.Model.Workers < 0 {
		errs = append(errs, fmt.Errorf("model.workers: must not be negative, got %d", c.Model.Workers))
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvUint64(key string, fallback uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
