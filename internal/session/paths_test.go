package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDir(t *testing.T) {
	home, _ := os.UserHomeDir()
	got := Dir("default")
	want := filepath.Join(home, ".pigeon", "profiles", "default")
	if got != want {
		t.Errorf("Dir(default) = %q, want %q", got, want)
	}
}

func TestLockPath(t *testing.T) {
	got := LockPath("test")
	if !strings.HasSuffix(got, filepath.Join("profiles", "test", "LOCK")) {
		t.Errorf("LockPath(test) = %q, want suffix profiles/test/LOCK", got)
	}
}

func TestOutboxPath(t *testing.T) {
	got := OutboxPath("test")
	if !strings.HasSuffix(got, filepath.Join("profiles", "test", "outbox.db")) {
		t.Errorf("OutboxPath(test) = %q, want suffix profiles/test/outbox.db", got)
	}
}

func TestLogPath(t *testing.T) {
	got := LogPath("test")
	if !strings.HasSuffix(got, filepath.Join("profiles", "test", "logs", "pigeon.log")) {
		t.Errorf("LogPath(test) = %q, want suffix profiles/test/logs/pigeon.log", got)
	}
}

func TestConfigPath(t *testing.T) {
	got := ConfigPath()
	if !strings.HasSuffix(got, filepath.Join(".pigeon", "config.toml")) {
		t.Errorf("ConfigPath() = %q, want suffix .pigeon/config.toml", got)
	}
}
