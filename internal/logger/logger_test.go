package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWithWriterLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", false)

	log.Info().Msg("hidden")
	log.Warn().Str("component", "test").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"component":"test"`) || !strings.Contains(out, "shown") {
		t.Errorf("expected structured warn entry, got %s", out)
	}
}

func TestNewWithWriterUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "loud", false)

	log.Debug().Msg("debug")
	log.Info().Msg("info")

	out := buf.String()
	if strings.Contains(out, `"message":"debug"`) {
		t.Errorf("unknown level should default to info: %s", out)
	}
	if !strings.Contains(out, `"message":"info"`) {
		t.Errorf("expected info entry, got %s", out)
	}
}
