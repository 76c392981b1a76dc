package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// The CLI authenticates to the local daemon with a bearer token kept in a
// secrets file next to the data directory. The token is generated on
// first use so fresh installs work without manual setup.

func secretsFilePath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "motargem", "secrets.json")
}

// GetAPIToken returns the local API bearer token, generating and
// persisting one if none exists yet.
func GetAPIToken() (string, error) {
	secrets, err := readSecrets()
	if err != nil {
		return "", err
	}

	if token := strings.TrimSpace(secrets["api_token"]); token != "" {
		return token, nil
	}

	token := uuid.New().String()
	secrets["api_token"] = token
	if err := writeSecrets(secrets); err != nil {
		return "", fmt.Errorf("persisting API token: %w", err)
	}
	return token, nil
}

func readSecrets() (map[string]string, error) {
	data, err := os.ReadFile(secretsFilePath())
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}

	var secrets map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	if secrets == nil {
		secrets = map[string]string{}
	}
	return secrets, nil
}

func writeSecrets(secrets map[string]string) error {
	p := secretsFilePath()
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, out, 0o600)
}
