// Package source feeds detection frames and operator commands into the
// processing loop.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/kafka"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
)

// DecodeFrame accepts a frame object or a bare detection array, which is
// how the video runner stores per-frame predictions.
func DecodeFrame(data []byte) (models.Frame, error) {
	var frame models.Frame
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &frame.Detections); err != nil {
			return models.Frame{}, fmt.Errorf("decode detections: %w", err)
		}
		return frame, nil
	}
	if err := json.Unmarshal(trimmed, &frame); err != nil {
		return models.Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return frame, nil
}

// KafkaFrames decodes detection frames from msgs. Offsets are marked when
// the processing loop acks the frame.
func KafkaFrames(ctx context.Context, msgs <-chan kafka.Message, log zerolog.Logger) <-chan models.Frame {
	out := make(chan models.Frame)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				frame, err := DecodeFrame(msg.Value)
				if err != nil {
					log.Warn().Err(err).Msg("invalid frame message")
					// Не подтверждаем сообщение при ошибке парсинга
					continue
				}
				frame.Ack = msg.Mark
				select {
				case out <- frame:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// KafkaCommands decodes operator commands from msgs
func KafkaCommands(ctx context.Context, msgs <-chan kafka.Message, log zerolog.Logger) <-chan models.Command {
	out := make(chan models.Command, 8)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var cmd models.Command
				if err := json.Unmarshal(msg.Value, &cmd); err != nil {
					log.Warn().Err(err).Msg("invalid command message")
					continue
				}
				select {
				case out <- cmd:
					msg.Mark()
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
