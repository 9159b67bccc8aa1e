package session

import (
	"os"
	"strings"
)

// SaveToken caches the access token for a profile.
func SaveToken(name, token string) error {
	if err := EnsureDir(name); err != nil {
		return err
	}
	return os.WriteFile(TokenPath(name), []byte(token+"\n"), 0600)
}

// LoadToken reads the cached access token. Returns empty string if the
// profile was never logged in.
func LoadToken(name string) (string, error) {
	data, err := os.ReadFile(TokenPath(name))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ClearToken removes the cached access token.
func ClearToken(name string) error {
	err := os.Remove(TokenPath(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
