package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := Setup("debug", "json", &buf)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Debug().Str("component", "test").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	for _, k := range []string{"time", "caller", "message", "component"} {
		if _, ok := entry[k]; !ok {
			t.Errorf("missing %q in %v", k, entry)
		}
	}
}

func TestSetup_LevelFallback(t *testing.T) {
	var buf bytes.Buffer
	log := Setup("loud", "json", &buf)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("expected info level, got %q", out)
	}
}

func TestSetup_Pretty(t *testing.T) {
	var buf bytes.Buffer
	log := Setup("info", "pretty", &buf)
	log.Info().Msg("readable")

	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("pretty output should not be JSON: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "readable") {
		t.Fatalf("missing message: %q", buf.String())
	}
}
