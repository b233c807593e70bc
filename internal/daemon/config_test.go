package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8087 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8087)
	}
	if cfg.Solver.MaxTasks != 256 {
		t.Errorf("Solver.MaxTasks = %d, want %d", cfg.Solver.MaxTasks, 256)
	}
	if cfg.Solver.MaxModes != 16 {
		t.Errorf("Solver.MaxModes = %d, want %d", cfg.Solver.MaxModes, 16)
	}
	if cfg.Solver.DefaultMaxCPU != 64 {
		t.Errorf("Solver.DefaultMaxCPU = %d, want %d", cfg.Solver.DefaultMaxCPU, 64)
	}
	if cfg.Solver.DefaultMaxSMS != 128 {
		t.Errorf("Solver.DefaultMaxSMS = %d, want %d", cfg.Solver.DefaultMaxSMS, 128)
	}
	if cfg.Storage.Path != "modesched.db" {
		t.Errorf("Storage.Path = %q, want %q", cfg.Storage.Path, "modesched.db")
	}
	if !cfg.Storage.Enabled {
		t.Error("Storage.Enabled should be true by default")
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be true by default")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modesched.toml")
	contents := `
[api]
port = 9090

[solver]
default_max_cpu = 8

[storage]
enabled = false
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 9090)
	}
	// Host was not in the file — should keep the default.
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want unchanged default %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.Solver.DefaultMaxCPU != 8 {
		t.Errorf("Solver.DefaultMaxCPU = %d, want %d", cfg.Solver.DefaultMaxCPU, 8)
	}
	if cfg.Solver.MaxModes != 16 {
		t.Errorf("Solver.MaxModes = %d, want unchanged default %d", cfg.Solver.MaxModes, 16)
	}
	if cfg.Storage.Enabled {
		t.Error("Storage.Enabled should be false after override")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}
