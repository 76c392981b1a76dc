package config

import (
	"os"
	"path/filepath"
)

type Config struct {
	Server   ServerConfig
	Gemini   GeminiConfig
	Storage  StorageConfig
	Rotation RotationConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
}

type GeminiConfig struct {
	BaseURL string
	Model   string
}

type StorageConfig struct {
	DataDir string
}

// RotationConfig names the settings under which the credential pool and
// rotation cursor are stored. The core treats both as opaque keys.
type RotationConfig struct {
	PoolKey   string
	CursorKey string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4800,
		},
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-2.0-flash",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Rotation: RotationConfig{
			PoolKey:   "gemini_api_keys",
			CursorKey: "gemini_key_cursor",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "motargem-data"
		}
	}
	return filepath.Join(dir, "motargem")
}

// Load reads configuration from the JSON config file at
// $XDG_CONFIG_HOME/motargem/config.json and applies MOTARGEM_* environment
// variable overrides on top.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
