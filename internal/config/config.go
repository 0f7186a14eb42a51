package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/bins"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/debounce"
)

const defaultPath = "internal/config/local.yaml"

// DefaultMinConfidence is the detector score below which detections are ignored
const DefaultMinConfidence = 0.60

const (
	SourceKafka    = "kafka"
	SourceReplay   = "replay"
	SourceDetector = "detector"
)

// Config структура конфига
type Config struct {
	StationID         string        `yaml:"station_id" env:"STATION_ID"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" env:"HEARTBEAT_INTERVAL"`

	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Pretty bool   `yaml:"pretty" env:"LOG_PRETTY"`
	} `yaml:"log"`

	Debounce struct {
		Cooldown time.Duration `yaml:"cooldown" env:"COOLDOWN"`
	} `yaml:"debounce"`

	Bins struct {
		Default  string         `yaml:"default" env:"DEFAULT_BIN"`
		Profiles []bins.Profile `yaml:"profiles"`
	} `yaml:"bins"`

	Detector struct {
		Endpoint      string  `yaml:"endpoint" env:"DETECTION_ENDPOINT"`
		MinConfidence float64 `yaml:"min_confidence" env:"MIN_CONFIDENCE"`
	} `yaml:"detector"`

	Source struct {
		Kind     string        `yaml:"kind" env:"SOURCE_KIND"`
		URL      string        `yaml:"url" env:"SOURCE_URL"`
		Interval time.Duration `yaml:"interval" env:"SOURCE_INTERVAL"`
	} `yaml:"source"`

	Postgres struct {
		DSN string `yaml:"dsn" env:"DATABASE_DSN"`
	} `yaml:"postgres"`

	Minio struct {
		Endpoint      string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
		AccessKey     string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
		SecretKey     string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
		ArchiveBucket string `yaml:"archive_bucket" env:"MINIO_ARCHIVE_BUCKET"`
	} `yaml:"minio"`

	Kafka struct {
		Brokers           []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		GroupID           string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
		DetectionTopic    string   `yaml:"detection_topic" env:"DETECTION_TOPIC"`
		CommandTopic      string   `yaml:"command_topic" env:"COMMAND_TOPIC"`
		HeartbeatTopic    string   `yaml:"heartbeat_topic" env:"HEARTBEAT_TOPIC"`
		NotificationTopic string   `yaml:"notification_topic" env:"NOTIFICATION_TOPIC"`
	} `yaml:"kafka"`

	Telemetry struct {
		CSVPath string `yaml:"csv_path" env:"TELEMETRY_CSV"`
	} `yaml:"telemetry"`

	Notify struct {
		QueueSize  int           `yaml:"queue_size" env:"NOTIFY_QUEUE_SIZE"`
		Workers    int           `yaml:"workers" env:"NOTIFY_WORKERS"`
		Timeout    time.Duration `yaml:"timeout" env:"NOTIFY_TIMEOUT"`
		Grace      time.Duration `yaml:"grace" env:"NOTIFY_GRACE"`
		WebhookURL string        `yaml:"webhook_url" env:"NOTIFY_WEBHOOK_URL"`
	} `yaml:"notify"`
}

// Load reads the YAML file and then applies environment overrides. A
// missing file yields the defaults.
func Load(filename string) (*Config, error) {
	cfg := newConfig()

	path := filename
	if path == "" {
		path = defaultPath
	}

	// Читаем YAML
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && filename == "":
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Переменные окружения имеют приоритет
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	cfg := newConfig()
	applyDefaults(cfg)
	return cfg
}

// newConfig pre-sets the fields where zero is a valid setting, so the file
// or environment can still override them with 0.
func newConfig() *Config {
	cfg := &Config{}
	cfg.Detector.MinConfidence = DefaultMinConfidence
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.StationID == "" {
		cfg.StationID = "bin-station"
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 5 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Debounce.Cooldown == 0 {
		cfg.Debounce.Cooldown = debounce.DefaultCooldown
	}
	if len(cfg.Bins.Profiles) == 0 {
		cfg.Bins.Profiles = bins.DefaultProfiles()
	}
	if cfg.Bins.Default == "" {
		cfg.Bins.Default = cfg.Bins.Profiles[0].Name
	}
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = SourceKafka
	}
	if cfg.Source.Interval == 0 {
		cfg.Source.Interval = 100 * time.Millisecond
	}
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9091"}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "binguard"
	}
	if cfg.Kafka.DetectionTopic == "" {
		cfg.Kafka.DetectionTopic = "detections"
	}
	if cfg.Kafka.CommandTopic == "" {
		cfg.Kafka.CommandTopic = "bin-commands"
	}
	if cfg.Kafka.HeartbeatTopic == "" {
		cfg.Kafka.HeartbeatTopic = "bin-heartbeats"
	}
	if cfg.Kafka.NotificationTopic == "" {
		cfg.Kafka.NotificationTopic = "bin-notifications"
	}
	if cfg.Telemetry.CSVPath == "" {
		cfg.Telemetry.CSVPath = "waste_telemetry.csv"
	}
	if cfg.Notify.QueueSize == 0 {
		cfg.Notify.QueueSize = 16
	}
	if cfg.Notify.Workers == 0 {
		cfg.Notify.Workers = 2
	}
	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = 5 * time.Second
	}
	if cfg.Notify.Grace == 0 {
		cfg.Notify.Grace = 3 * time.Second
	}
}
