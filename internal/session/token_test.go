package session

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := SaveToken("test", "abc123"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}

	got, err := LoadToken("test")
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if got != "abc123" {
		t.Errorf("LoadToken() = %q, want %q", got, "abc123")
	}

	if err := ClearToken("test"); err != nil {
		t.Fatalf("ClearToken() error = %v", err)
	}
	got, err = LoadToken("test")
	if err != nil {
		t.Fatalf("LoadToken() after clear error = %v", err)
	}
	if got != "" {
		t.Errorf("LoadToken() after clear = %q, want empty", got)
	}
}

func TestLoadTokenMissingProfile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	got, err := LoadToken("never-logged-in")
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if got != "" {
		t.Errorf("LoadToken() = %q, want empty", got)
	}
}
