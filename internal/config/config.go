// Package config loads server settings from defaults, an optional YAML file
// and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PathEnv names the variable holding the YAML config path.
const PathEnv = "ANGKRINGAN_CONFIG"

type Config struct {
	HTTPAddr       string        `yaml:"http_addr"`
	GRPCAddr       string        `yaml:"grpc_addr"`
	DBDriver       string        `yaml:"db_driver"`
	DBDSN          string        `yaml:"db_dsn"`
	RedisAddr      string        `yaml:"redis_addr"`
	JWTSecret      string        `yaml:"jwt_secret"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	StorageDir     string        `yaml:"storage_dir"`
	PublicBaseURL  string        `yaml:"public_base_url"`
	WorkerCount    int           `yaml:"worker_count"`
	QueueSize      int           `yaml:"queue_size"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	TabIdleTimeout time.Duration `yaml:"tab_idle_timeout"`
	MetricsEnabled bool          `yaml:"metrics_enabled"`
}

func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		GRPCAddr:       ":50051",
		DBDriver:       "mysql",
		DBDSN:          "root:root@tcp(localhost:3306)/angkringan?parseTime=true",
		RedisAddr:      "localhost:6379",
		SessionTTL:     24 * time.Hour,
		StorageDir:     "./data/objects",
		PublicBaseURL:  "http://localhost:8080",
		WorkerCount:    4,
		QueueSize:      1000,
		RequestTimeout: 10 * time.Second,
		TabIdleTimeout: 30 * time.Minute,
		MetricsEnabled: true,
	}
}

// Load applies the YAML file named by ANGKRINGAN_CONFIG, if set, and the
// environment overrides on top of the defaults.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(PathEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := map[string]*string{
		"HTTP_ADDR":       &c.HTTPAddr,
		"GRPC_ADDR":       &c.GRPCAddr,
		"DB_DRIVER":       &c.DBDriver,
		"DB_DSN":          &c.DBDSN,
		"REDIS_ADDR":      &c.RedisAddr,
		"JWT_SECRET":      &c.JWTSecret,
		"STORAGE_DIR":     &c.StorageDir,
		"PUBLIC_BASE_URL": &c.PublicBaseURL,
	}
	for name, dst := range str {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	if v := getenv("WORKER_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WORKER_COUNT: %w", err)
		}
		c.WorkerCount = n
	}
	durations := map[string]*time.Duration{
		"REQUEST_TIMEOUT":  &c.RequestTimeout,
		"SESSION_TTL":      &c.SessionTTL,
		"TAB_IDLE_TIMEOUT": &c.TabIdleTimeout,
	}
	for name, dst := range durations {
		if v := getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = d
		}
	}
	if v := getenv("METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("METRICS_ENABLED: %w", err)
		}
		c.MetricsEnabled = b
	}
	return nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	switch strings.ToLower(c.DBDriver) {
	case "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("db_driver %q must be mysql or postgres", c.DBDriver))
	}
	if c.DBDSN == "" {
		errs = append(errs, errors.New("db_dsn is required"))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("jwt_secret must be at least 16 characters"))
	}
	if c.StorageDir == "" {
		errs = append(errs, errors.New("storage_dir is required"))
	}
	if c.WorkerCount < 1 {
		errs = append(errs, fmt.Errorf("worker_count %d must be positive", c.WorkerCount))
	}
	if c.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("queue_size %d must be positive", c.QueueSize))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	if c.TabIdleTimeout <= 0 {
		errs = append(errs, errors.New("tab_idle_timeout must be positive"))
	}
	return errors.Join(errs...)
}
