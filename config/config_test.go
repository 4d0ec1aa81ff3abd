package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 9090
  read_timeout_seconds: 5
model:
  path: /var/lib/models/model.json
  watch: true
log:
  level: debug
events:
  broker: localhost:9092
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Http.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Http.Port)
	}
	if cfg.ReadTimeout() != 5*time.Second {
		t.Errorf("read timeout = %v, want 5s", cfg.ReadTimeout())
	}
	// Untouched keys keep their defaults.
	if cfg.WriteTimeout() != 30*time.Second {
		t.Errorf("write timeout = %v, want default 30s", cfg.WriteTimeout())
	}
	if cfg.Model.Path != "/var/lib/models/model.json" || !cfg.Model.Watch {
		t.Errorf("model config = %+v", cfg.Model)
	}
	if cfg.Model.CacheSize != 1024 {
		t.Errorf("cache size = %d, want default 1024", cfg.Model.CacheSize)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if !cfg.EventsEnabled() {
		t.Error("events should be enabled when a broker is set")
	}
	if cfg.ArtifactEnabled() {
		t.Error("artifact store should be disabled without an endpoint")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "http:\n  port: 70000\n"},
		{"zero cache", "model:\n  cache_size: -1\n"},
		{"empty model path", "model:\n  path: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
