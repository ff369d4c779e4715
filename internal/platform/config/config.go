package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	errInvalidPort           = errors.New("config: invalid PORT number")
	errConcurrencyOutOfRange = errors.New("config: SCAN_CONCURRENCY must be 1-100")
	errInvalidTimeout        = errors.New("config: timeouts must be positive")
	errInvalidConfidence     = errors.New("config: MIN_CONFIDENCE must be in [0,1]")
	errMissingModel          = errors.New("config: MODEL_PATH must not be empty")
)

// Config holds all application configuration. Values come from an optional
// YAML file pointed at by CONFIG_FILE, with environment variables taking
// precedence over both the file and the built-in defaults.
type Config struct {
	Port             string        `yaml:"port"`
	LogLevel         string        `yaml:"log_level"`
	ScanConcurrency  int           `yaml:"scan_concurrency"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`
	PerRecordTimeout time.Duration `yaml:"per_record_timeout"`
	BatchTimeout     time.Duration `yaml:"batch_timeout"` // 0 disables the batch deadline
	MaxBatchURLs     int           `yaml:"max_batch_urls"`
	MinConfidence    float64       `yaml:"min_confidence"` // 0 disables the low-confidence policy
	ModelPath        string        `yaml:"model_path"`
	ReportDBPath     string        `yaml:"report_db_path"`
}

func defaults() Config {
	return Config{
		Port:             "8080",
		LogLevel:         "INFO",
		ScanConcurrency:  10,
		ProbeTimeout:     10 * time.Second,
		PerRecordTimeout: 30 * time.Second,
		BatchTimeout:     5 * time.Minute,
		MaxBatchURLs:     500,
		MinConfidence:    0,
		ModelPath:        "model.json",
		ReportDBPath:     "reports.db",
	}
}

// Load reads configuration from the optional YAML file and environment
// variables, then validates the result.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.ScanConcurrency = getEnvAsInt("SCAN_CONCURRENCY", cfg.ScanConcurrency)
	cfg.ProbeTimeout = getEnvAsDuration("PROBE_TIMEOUT", cfg.ProbeTimeout)
	cfg.PerRecordTimeout = getEnvAsDuration("PER_RECORD_TIMEOUT", cfg.PerRecordTimeout)
	cfg.BatchTimeout = getEnvAsDuration("BATCH_TIMEOUT", cfg.BatchTimeout)
	cfg.MaxBatchURLs = getEnvAsInt("MAX_BATCH_URLS", cfg.MaxBatchURLs)
	cfg.MinConfidence = getEnvAsFloat("MIN_CONFIDENCE", cfg.MinConfidence)
	cfg.ModelPath = getEnv("MODEL_PATH", cfg.ModelPath)
	cfg.ReportDBPath = getEnv("REPORT_DB_PATH", cfg.ReportDBPath)

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q", errInvalidPort, c.Port)
	}

	if c.ScanConcurrency < 1 || c.ScanConcurrency > 100 {
		return fmt.Errorf("%w: got %d", errConcurrencyOutOfRange, c.ScanConcurrency)
	}

	if c.ProbeTimeout <= 0 || c.PerRecordTimeout <= 0 || c.BatchTimeout < 0 {
		return errInvalidTimeout
	}

	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: got %g", errInvalidConfidence, c.MinConfidence)
	}

	if c.ModelPath == "" {
		return errMissingModel
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsFloat(key string, fallback float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return v
}
