package logging

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestSetupAndLevels(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, "text", "warn")
	defer Setup(os.Stdout, "text", "info")

	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Errorf("warn missing: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, "json", "debug")
	defer Setup(os.Stdout, "text", "info")

	Slog().Debug("dispatch", "path", "runtime")
	if !strings.Contains(buf.String(), `"path":"runtime"`) {
		t.Errorf("expected JSON attrs, got %s", buf.String())
	}
}

func TestDisable(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, "text", "debug")
	defer Setup(os.Stdout, "text", "info")

	Disable()
	Error("quiet")
	Slog().Error("also quiet")
	Enable()
	Error("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") || !strings.Contains(out, "loud") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
