package pnba

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Credentials is the Telegram API identity for this application. Loaded once
// and immutable for the adapter's lifetime.
type Credentials struct {
	APIID   int    `json:"api_id"`
	APIHash string `json:"api_hash"`
}

// LoadCredentials reads the credentials file referenced by the configuration.
// A missing credentials.path is a configuration error; an unreadable or
// invalid file propagates as-is.
func LoadCredentials(cfg *Config) (Credentials, error) {
	var creds Credentials

	if cfg == nil || cfg.Credentials.Path == "" {
		return creds, fmt.Errorf("missing 'credentials.path' in configuration")
	}

	path, err := cfg.resolvePath(cfg.Credentials.Path)
	if err != nil {
		return creds, err
	}

	slog.Debug("loading credentials", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return creds, fmt.Errorf("failed to read credentials: %w", err)
	}

	if err := json.Unmarshal(data, &creds); err != nil {
		return creds, fmt.Errorf("failed to parse credentials: %w", err)
	}

	if creds.APIID == 0 || creds.APIHash == "" {
		return creds, fmt.Errorf("credentials file must set api_id and api_hash")
	}

	return creds, nil
}
