package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kozaktomas/plant-doctor/internal/constants"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Cluster  ClusterConfig  `yaml:"cluster"`
	Intake   IntakeConfig   `yaml:"intake"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Web      WebConfig      `yaml:"web"`
}

type ClusterConfig struct {
	SourceDir   string  `yaml:"source_dir"`   // images submitted for review
	DestDir     string  `yaml:"dest_dir"`     // wiped and rebuilt on every run
	Eps         float64 `yaml:"eps"`          // normalized Hamming radius in [0,1]
	MinSamples  int     `yaml:"min_samples"`  // defaults to 1
	Workers     int     `yaml:"workers"`
	Hash        string  `yaml:"hash"`         // phash, dhash or ahash
	SharedNoise bool    `yaml:"shared_noise"` // one cluster_-1 folder for all noise images
}

type IntakeConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	MaxImageSize        int     `yaml:"max_image_size"`
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`            // PostgreSQL connection URL, history is disabled when empty
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections (default 25)
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections (default 5)
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"` // CORS whitelist, localhost is always allowed
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Cluster: ClusterConfig{
			SourceDir:  constants.DefaultSourceDir,
			DestDir:    constants.DefaultDestDir,
			Eps:        constants.DefaultEps,
			MinSamples: constants.DefaultMinSamples,
			Workers:    constants.WorkerPoolSize,
			Hash:       constants.DefaultHashAlgorithm,
		},
		Intake: IntakeConfig{
			ConfidenceThreshold: constants.DefaultConfidenceThreshold,
			MaxImageSize:        constants.MaxImageSize,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
	}
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float in [0,1].
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f <= 1 {
		return f
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma-separated environment variable, dropping empty items.
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

// loadFile overlays a YAML file on top of cfg. Keys missing from the file keep their value.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration from defaults, the optional CONFIG_FILE and environment variables,
// in that order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.Cluster.SourceDir = envString("CLUSTER_SOURCE_DIR", cfg.Cluster.SourceDir)
	cfg.Cluster.DestDir = envString("CLUSTER_DEST_DIR", cfg.Cluster.DestDir)
	cfg.Cluster.Eps = envFloat("CLUSTER_EPS", cfg.Cluster.Eps)
	cfg.Cluster.MinSamples = envInt("CLUSTER_MIN_SAMPLES", cfg.Cluster.MinSamples)
	cfg.Cluster.Workers = envInt("CLUSTER_WORKERS", cfg.Cluster.Workers)
	cfg.Cluster.Hash = envString("CLUSTER_HASH", cfg.Cluster.Hash)
	cfg.Cluster.SharedNoise = envBool("CLUSTER_SHARED_NOISE", cfg.Cluster.SharedNoise)

	cfg.Intake.ConfidenceThreshold = envFloat("INTAKE_CONFIDENCE_THRESHOLD", cfg.Intake.ConfidenceThreshold)
	cfg.Intake.MaxImageSize = envInt("INTAKE_MAX_IMAGE_SIZE", cfg.Intake.MaxImageSize)

	cfg.Database.URL = envString("DATABASE_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	cfg.Log.Level = envString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envString("LOG_FORMAT", cfg.Log.Format)

	cfg.Web.Host = envString("WEB_HOST", cfg.Web.Host)
	cfg.Web.Port = envInt("WEB_PORT", cfg.Web.Port)
	cfg.Web.AllowedOrigins = envList("WEB_ALLOWED_ORIGINS", cfg.Web.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise only fail deep inside a run.
func (c *Config) Validate() error {
	if c.Cluster.SourceDir == "" {
		return fmt.Errorf("cluster source directory is required")
	}
	if c.Cluster.DestDir == "" {
		return fmt.Errorf("cluster destination directory is required")
	}
	if !(c.Cluster.Eps >= 0 && c.Cluster.Eps <= 1) {
		return fmt.Errorf("cluster eps must be within [0,1], got %v", c.Cluster.Eps)
	}
	if c.Cluster.MinSamples < 1 {
		return fmt.Errorf("cluster min_samples must be at least 1, got %d", c.Cluster.MinSamples)
	}
	if !(c.Intake.ConfidenceThreshold >= 0 && c.Intake.ConfidenceThreshold <= 1) {
		return fmt.Errorf("intake confidence threshold must be within [0,1], got %v", c.Intake.ConfidenceThreshold)
	}
	return nil
}

// HistoryEnabled reports whether run history can be persisted.
func (c *Config) HistoryEnabled() bool {
	return c.Database.URL != ""
}
