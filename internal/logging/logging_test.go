package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pigeon.log")

	logger, err := New(path, "test", false)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)[0]

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, line)
	}
	if entry["msg"] != "hello" {
		t.Errorf("msg = %v, want hello", entry["msg"])
	}
	if entry["profile"] != "test" {
		t.Errorf("profile = %v, want test", entry["profile"])
	}
}

func TestNewCreatesLogDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "pigeon.log")

	logger, err := New(path, "test", false)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_ = logger.Sync()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("log dir not created: %v", err)
	}
}
