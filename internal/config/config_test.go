package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatchesSpecValues(t *testing.T) {
	s := Default()
	if s.Rho != 0.05 {
		t.Errorf("Rho = %v, want 0.05", s.Rho)
	}
	if s.RatioTrigger != 0.8 {
		t.Errorf("RatioTrigger = %v, want 0.8", s.RatioTrigger)
	}
	if s.Gamma != 1 {
		t.Errorf("Gamma = %v, want 1", s.Gamma)
	}
	if !s.SelfRepair {
		t.Errorf("SelfRepair = false, want true by default")
	}
}

func TestLoadOverlaysOnDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.toml")
	doc := "gamma = 3\nrho = 0.1\nallocator = \"task-oriented\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Gamma != 3 {
		t.Errorf("Gamma = %v, want 3", s.Gamma)
	}
	if s.Rho != 0.1 {
		t.Errorf("Rho = %v, want 0.1", s.Rho)
	}
	if s.Allocator != "task-oriented" {
		t.Errorf("Allocator = %q, want task-oriented", s.Allocator)
	}
	// Untouched fields keep their default.
	if s.SigmaNoise != 0.03 {
		t.Errorf("SigmaNoise = %v, want default 0.03", s.SigmaNoise)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected an error loading a nonexistent file")
	}
}
