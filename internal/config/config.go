package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Database, empty selects the in-memory gallery
	DatabaseURL string `envconfig:"DATABASE_URL"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`

	// Embedder
	EmbedderProvider string `envconfig:"EMBEDDER_PROVIDER" default:"mock"`
	EmbedderURL      string `envconfig:"EMBEDDER_URL" default:"http://localhost:8501"`
	EmbedderModel    string `envconfig:"EMBEDDER_MODEL" default:"facenet"`
	ONNXModelPath    string `envconfig:"ONNX_MODEL_PATH" default:"models/facenet.onnx"`
	ONNXLibraryPath  string `envconfig:"ONNX_LIBRARY_PATH"`

	// Detector
	DetectorProvider string `envconfig:"DETECTOR_PROVIDER" default:"mock"`
	DeepFaceURL      string `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceDetector string `envconfig:"DEEPFACE_DETECTOR" default:"retinaface"`
	AWSRegion        string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Pipeline
	MatchThreshold     float32 `envconfig:"MATCH_THRESHOLD" default:"0.6"`
	DuplicateThreshold float32 `envconfig:"DUPLICATE_THRESHOLD" default:"0"`
	NormScale          float32 `envconfig:"NORM_SCALE" default:"127.5"`
	NormOffset         float32 `envconfig:"NORM_OFFSET" default:"127.5"`

	ImageDir      string        `envconfig:"IMAGE_DIR" default:"data/images"`
	StatsInterval time.Duration `envconfig:"STATS_INTERVAL" default:"1m"`

	// Alerts, evaluated once per stats interval
	AlertDropRatio float64       `envconfig:"ALERT_DROP_RATIO" default:"0.5"`
	AlertCooldown  time.Duration `envconfig:"ALERT_COOLDOWN" default:"5m"`

	// Webhook, empty URL disables delivery
	WebhookURL         string   `envconfig:"WEBHOOK_URL"`
	WebhookSecret      string   `envconfig:"WEBHOOK_SECRET"`
	WebhookEvents      []string `envconfig:"WEBHOOK_EVENTS" default:"gallery.enrolled,gallery.deleted,alert.triggered"`
	WebhookMaxAttempts int      `envconfig:"WEBHOOK_MAX_ATTEMPTS" default:"3"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MatchThreshold < -1 || c.MatchThreshold > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be within [-1, 1], got %v", c.MatchThreshold)
	}
	if c.DuplicateThreshold < 0 || c.DuplicateThreshold > 1 {
		return fmt.Errorf("DUPLICATE_THRESHOLD must be within [0, 1], got %v", c.DuplicateThreshold)
	}
	if c.NormScale == 0 {
		return fmt.Errorf("NORM_SCALE must not be zero")
	}
	if c.StatsInterval <= 0 {
		return fmt.Errorf("STATS_INTERVAL must be positive, got %s", c.StatsInterval)
	}
	if c.AlertDropRatio < 0 || c.AlertDropRatio > 1 {
		return fmt.Errorf("ALERT_DROP_RATIO must be within [0, 1], got %v", c.AlertDropRatio)
	}
	return nil
}

// UsesDatabase reports whether the gallery is backed by Postgres
func (c *Config) UsesDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) WebhookEnabled() bool {
	return c.WebhookURL != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
