package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/kafka"
)

// Sink delivers a message to one notification backend
type Sink interface {
	Deliver(ctx context.Context, msg Message) error
}

// LogSink writes notifications to the operator log
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Deliver(_ context.Context, msg Message) error {
	s.log.Info().
		Str("event_id", msg.EventID).
		Str("verdict", string(msg.Verdict)).
		Str("bin", msg.Bin).
		Msg(msg.Text)
	return nil
}

// NotificationPublisher is implemented by kafka.Producer
type NotificationPublisher interface {
	SendNotification(msg kafka.Notification) error
}

// KafkaSink publishes the text for the speaker service
type KafkaSink struct {
	publisher NotificationPublisher
}

func NewKafkaSink(publisher NotificationPublisher) *KafkaSink {
	return &KafkaSink{publisher: publisher}
}

// Deliver returns when ctx ends even if the broker is still blocking; the
// publish itself finishes in the background.
func (s *KafkaSink) Deliver(ctx context.Context, msg Message) error {
	result := make(chan error, 1)
	go func() {
		result <- s.publisher.SendNotification(kafka.Notification{
			EventID:   msg.EventID,
			Text:      msg.Text,
			Verdict:   msg.Verdict,
			Bin:       msg.Bin,
			Timestamp: msg.Timestamp,
		})
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("publish notification %s: %w", msg.EventID, ctx.Err())
	}
}

// WebhookSink POSTs the message as JSON
type WebhookSink struct {
	url    string
	client *http.Client
}

func NewWebhookSink(url string, client *http.Client) *WebhookSink {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookSink{url: url, client: client}
}

func (s *WebhookSink) Deliver(ctx context.Context, msg Message) error {
	body, err := json.Marshal(map[string]any{
		"event_id":  msg.EventID,
		"text":      msg.Text,
		"verdict":   msg.Verdict,
		"bin":       msg.Bin,
		"timestamp": msg.Timestamp,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
