package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsoleHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelDebug, Output: &buf})

	log.Info("endpoint created", "id", "101")

	out := buf.String()
	if !strings.Contains(out, "[info]") {
		t.Errorf("expected level tag in output, got %q", out)
	}
	if !strings.Contains(out, "endpoint created") {
		t.Errorf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "id=101") {
		t.Errorf("expected attribute in output, got %q", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelInfo, Output: &buf}).WithComponent("provision")

	log.Info("write complete")

	if !strings.Contains(buf.String(), "provision:") {
		t.Errorf("expected component tag, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelWarn, Output: &buf})

	log.Info("hidden")
	log.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should have been filtered")
	}
	if !strings.Contains(out, "visible") {
		t.Error("warn message should have been logged")
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelInfo, Output: &buf})

	log.Debug("before")
	log.SetLevel(LevelDebug)
	log.Debug("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Error("debug message logged before level change")
	}
	if !strings.Contains(out, "after") {
		t.Error("debug message missing after level change")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
		"warning": LevelWarn,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelInfo, Output: &buf, JSON: true})

	log.Info("reload", "ok", true)

	out := buf.String()
	if !strings.Contains(out, `"msg":"reload"`) {
		t.Errorf("expected JSON output, got %q", out)
	}
}
