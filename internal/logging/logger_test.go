package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewTagsServiceAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, "warn", "satoshi", "test")

	logger.Info("dropped")
	logger.Warn("kept")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one json line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["service"] != "satoshi" || entry["env"] != "test" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, "loud", "", "")
	logger.Debug("dropped")
	logger.Info("kept")
	if bytes.Count(buf.Bytes(), []byte("\n")) != 1 {
		t.Fatalf("expected exactly one line, got %q", buf.String())
	}
}
