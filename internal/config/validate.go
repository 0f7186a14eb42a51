package config

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/bins"
)

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Debounce.Cooldown <= 0 {
		return errors.New("debounce.cooldown must be positive")
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector.min_confidence must be within [0,1], got %v", c.Detector.MinConfidence)
	}
	if len(c.Bins.Profiles) == 0 {
		return errors.New("bins.profiles must not be empty")
	}
	if !lo.ContainsBy(c.Bins.Profiles, func(p bins.Profile) bool { return p.Name == c.Bins.Default }) {
		return fmt.Errorf("bins.default %q is not a configured profile", c.Bins.Default)
	}
	if !lo.Contains([]string{SourceKafka, SourceReplay, SourceDetector}, c.Source.Kind) {
		return fmt.Errorf("source.kind %q is not one of kafka, replay, detector", c.Source.Kind)
	}
	if c.Source.Kind != SourceKafka && c.Source.URL == "" {
		return fmt.Errorf("source.url is required for source.kind %q", c.Source.Kind)
	}
	if c.Source.Kind == SourceDetector && c.Detector.Endpoint == "" {
		return errors.New("detector.endpoint is required for source.kind detector")
	}
	if c.Source.Kind != SourceKafka && c.Minio.Endpoint == "" {
		return fmt.Errorf("minio.endpoint is required for source.kind %q", c.Source.Kind)
	}
	if c.Source.Kind == SourceKafka && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required for source.kind kafka")
	}
	if c.Notify.QueueSize <= 0 || c.Notify.Workers <= 0 {
		return errors.New("notify.queue_size and notify.workers must be positive")
	}
	return nil
}
