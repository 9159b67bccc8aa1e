package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.ServerURL = "https://chat.example.com"
	cfg.DefaultProfile = "work"
	cfg.Outbox.Enabled = true
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.ServerURL != "https://chat.example.com" {
		t.Errorf("ServerURL = %q, want %q", loaded.ServerURL, "https://chat.example.com")
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if !loaded.Outbox.Enabled {
		t.Error("Outbox.Enabled = false, want true")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(path, []byte("server_url = \"http://example.com\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Reconnect.Strategy != StrategyFixed {
		t.Errorf("Reconnect.Strategy = %q, want %q", loaded.Reconnect.Strategy, StrategyFixed)
	}
	if loaded.Reconnect.DelayMS != 5000 {
		t.Errorf("Reconnect.DelayMS = %d, want 5000", loaded.Reconnect.DelayMS)
	}
	if loaded.TypingExpiryMS != 1000 {
		t.Errorf("TypingExpiryMS = %d, want 1000", loaded.TypingExpiryMS)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"backoff strategy", func(c *Config) { c.Reconnect.Strategy = StrategyBackoff }, false},
		{"unknown strategy", func(c *Config) { c.Reconnect.Strategy = "random" }, true},
		{"negative delay", func(c *Config) { c.Reconnect.DelayMS = -1 }, true},
		{"negative typing expiry", func(c *Config) { c.TypingExpiryMS = -5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
