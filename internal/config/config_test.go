package config

import (
	"testing"
)

// fakeBackend is an in-memory test double for the Backend interface.
type fakeBackend struct {
	data map[string]any
}

func (f *fakeBackend) GetString(key string) (string, bool, error) {
	v, ok := f.data[key]
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (f *fakeBackend) GetInt(key string) (int, bool, error) {
	v, ok := f.data[key]
	if !ok {
		return 0, false, nil
	}
	return v.(int), true, nil
}

func (f *fakeBackend) SetString(key, val string) error { f.data[key] = val; return nil }
func (f *fakeBackend) SetInt(key string, val int) error { f.data[key] = val; return nil }
func (f *fakeBackend) Delete(key string) error          { delete(f.data, key); return nil }

// TestDefaults verifies all default values survive an empty backend.
func TestDefaults(t *testing.T) {
	cfg, err := loadWith(&fakeBackend{data: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4800 {
		t.Errorf("Server.Port = %d, want 4800", cfg.Server.Port)
	}
	if cfg.Gemini.BaseURL != "https://generativelanguage.googleapis.com" {
		t.Errorf("Gemini.BaseURL = %q", cfg.Gemini.BaseURL)
	}
	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("Gemini.Model = %q, want gemini-2.0-flash", cfg.Gemini.Model)
	}
	if cfg.Rotation.PoolKey != "gemini_api_keys" {
		t.Errorf("Rotation.PoolKey = %q, want gemini_api_keys", cfg.Rotation.PoolKey)
	}
	if cfg.Rotation.CursorKey != "gemini_key_cursor" {
		t.Errorf("Rotation.CursorKey = %q, want gemini_key_cursor", cfg.Rotation.CursorKey)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

// TestBackendOverride verifies that backend values override defaults.
func TestBackendOverride(t *testing.T) {
	b := &fakeBackend{data: map[string]any{
		"server.port":  9000,
		"gemini.model": "gemini-2.5-pro",
	}}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Gemini.Model != "gemini-2.5-pro" {
		t.Errorf("Gemini.Model = %q, want gemini-2.5-pro", cfg.Gemini.Model)
	}
}

// TestEnvOverride verifies that environment variables win over backend values.
func TestEnvOverride(t *testing.T) {
	b := &fakeBackend{data: map[string]any{
		"gemini.model": "from-file",
	}}

	t.Setenv("MOTARGEM_GEMINI_MODEL", "from-env")
	t.Setenv("MOTARGEM_SERVER_PORT", "5001")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Gemini.Model != "from-env" {
		t.Errorf("Gemini.Model = %q, want from-env", cfg.Gemini.Model)
	}
	if cfg.Server.Port != 5001 {
		t.Errorf("Server.Port = %d, want 5001", cfg.Server.Port)
	}
}

func TestEnvOverrideBadInt(t *testing.T) {
	t.Setenv("MOTARGEM_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(&fakeBackend{data: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4800 {
		t.Errorf("Server.Port = %d, want default retained on parse failure", cfg.Server.Port)
	}
}

func TestShowAllCoversEveryKey(t *testing.T) {
	infos := ShowAll(defaults())
	if len(infos) != len(specs) {
		t.Fatalf("ShowAll returned %d keys, want %d", len(infos), len(specs))
	}
	for _, info := range infos {
		if info.Key == "" || info.EnvVar == "" {
			t.Errorf("incomplete key info: %+v", info)
		}
	}
}

func TestSetKeyUnknown(t *testing.T) {
	if err := SetKey("no.such.key", "x"); err == nil {
		t.Error("expected error for unknown config key")
	}
}
