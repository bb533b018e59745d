package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
)

// TokenFile holds the saved credentials: the long-lived device token
// from registration and the most recent session token minted from it.
type TokenFile struct {
	DeviceToken  string `json:"deviceToken"`
	SessionToken string `json:"sessionToken,omitempty"`
}

// TokenFilePath returns the default path for the token file.
func TokenFilePath() string {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, _ := os.UserHomeDir()
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "SlateSync", "token.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "slatesync", "token.json")
}

// SaveToken writes a token file, creating the directory if needed.
// The file is written with owner-only permissions.
func SaveToken(path string, tf *TokenFile) error {
	if path == "" {
		path = TokenFilePath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// LoadToken reads a saved token file.
func LoadToken(path string) (*TokenFile, error) {
	if path == "" {
		path = TokenFilePath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tf TokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, err
	}
	return &tf, nil
}
