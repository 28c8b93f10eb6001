package console

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Format: "json", Output: &buf})
	l.Info("[Pipeline] Stage complete", "stage", "segmenting")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "[Pipeline] Stage complete" {
		t.Fatalf("unexpected msg %v", line["msg"])
	}
	if line["stage"] != "segmenting" {
		t.Fatalf("unexpected stage %v", line["stage"])
	}
}

func TestDebugLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Output: &buf})
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug line written at info level: %q", buf.String())
	}

	buf.Reset()
	l = NewConsoleLogger(ConsoleLoggerParams{Debug: true, Format: "logfmt", Output: &buf})
	l.Debug("shown", "n", 3)
	if !strings.Contains(buf.String(), "msg=shown") || !strings.Contains(buf.String(), "n=3") {
		t.Fatalf("unexpected logfmt output %q", buf.String())
	}
}
