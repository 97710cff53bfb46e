package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// entries decodes one JSON object per logged line.
func entries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", scanner.Text(), err)
		}
		out = append(out, entry)
	}
	return out
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo || cfg.Pretty {
		t.Errorf("Expected JSON output at info level, got level=%s pretty=%v", cfg.Level, cfg.Pretty)
	}
	if cfg.Service != "catalog-feed" {
		t.Errorf("Expected default service catalog-feed, got %q", cfg.Service)
	}
}

func TestSetup_LevelGatesPipelineEvents(t *testing.T) {
	tests := []struct {
		name  string
		level LogLevel
		want  []string
	}{
		{"debug", LevelDebug, []string{"List element unresolved", "Media index built", "Upstream throttled", "Transform run failed"}},
		{"info", LevelInfo, []string{"Media index built", "Upstream throttled", "Transform run failed"}},
		{"warn", LevelWarn, []string{"Upstream throttled", "Transform run failed"}},
		{"error", LevelError, []string{"Transform run failed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: tt.level, Output: buf})

			logger.Debug().Str("media_id", "42").Msg("List element unresolved")
			logger.Info().Str("operation", "Files").Int("assets", 3).Msg("Media index built")
			logger.Warn().Str("operation", "Products").Int("page", 2).Msg("Upstream throttled")
			logger.Error().Str("error_class", "transport").Msg("Transform run failed")

			var got []string
			for _, e := range entries(t, buf) {
				got = append(got, e["message"].(string))
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("logged %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewLogger_CarriesComponentAndService(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf, Service: "catalog-feed"})

	logger := NewLogger("media")
	logger.Info().Str("operation", "Files").Int("page", 1).Msg("Page fetched")

	got := entries(t, buf)
	if len(got) != 1 {
		t.Fatalf("Expected one entry, got %d", len(got))
	}
	e := got[0]
	if e["component"] != "media" || e["service"] != "catalog-feed" || e["operation"] != "Files" {
		t.Errorf("Unexpected fields: %v", e)
	}
	if _, ok := e["time"]; !ok {
		t.Error("Expected a timestamp")
	}
}

func TestSetup_NoServiceField(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("catalog")
	logger.Info().Msg("Fetching catalog")

	if e := entries(t, buf)[0]; e["service"] != nil {
		t.Errorf("service should be absent when unset, got %v", e["service"])
	}
}

func TestWithRun(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := WithRun(NewLogger("transform"), "run-42")
	logger.Info().Str("strategy", "two_phase").Msg("Transform run finished")
	componentLogger := NewLogger("transform")
	componentLogger.Info().Msg("Outside any run")

	got := entries(t, buf)
	if len(got) != 2 {
		t.Fatalf("Expected two entries, got %d", len(got))
	}
	if got[0]["run_id"] != "run-42" || got[0]["component"] != "transform" || got[0]["strategy"] != "two_phase" {
		t.Errorf("Unexpected run entry: %v", got[0])
	}
	if _, ok := got[1]["run_id"]; ok {
		t.Error("run_id leaked into the component logger")
	}
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})

	logger := NewLogger("http")
	logger.Info().Str("run_id", "run-7").Msg("Feed served")

	output := buf.String()
	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("Expected console output, got JSON %q", output)
	}
	if !strings.Contains(output, "Feed served") || !strings.Contains(output, "run-7") {
		t.Errorf("Expected message and run id in console output, got %q", output)
	}
}
