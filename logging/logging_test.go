package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")
	log := New(Config{Level: "debug", File: path, MaxSizeMB: 1})

	log.Info("hello")
	log.Debug("world")
	if err := log.Sync(); err != nil {
		// Sync on stdout fails on some platforms; the file is what
		// this test checks.
		t.Logf("sync: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"hello"`) {
		t.Errorf("log file missing info line: %s", out)
	}
	if !strings.Contains(out, `"msg":"world"`) {
		t.Errorf("log file missing debug line: %s", out)
	}
}

func TestNewUnknownLevelFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")
	log := New(Config{Level: "shouty", File: path})

	log.Info("kept")
	log.Debug("dropped")
	log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"kept"`) {
		t.Errorf("info line missing at fallback level: %s", out)
	}
	if strings.Contains(out, `"msg":"dropped"`) {
		t.Errorf("debug line should be filtered at info level: %s", out)
	}
}
