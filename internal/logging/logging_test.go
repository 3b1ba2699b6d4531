package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, "warn", false)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"message":"shown"`) {
		t.Fatalf("expected warn line in JSON output, got %s", out)
	}
}

func TestNewWithWriter_UnknownLevelDefaultsToInfo(t *testing.T) {
	logger := newWithWriter(&bytes.Buffer{}, "chatty", false)
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %s", logger.GetLevel())
	}
}
