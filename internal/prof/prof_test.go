package prof

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		CPUProfile:   filepath.Join(dir, "cpu.pprof"),
		MemProfile:   filepath.Join(dir, "mem.pprof"),
		RuntimeTrace: filepath.Join(dir, "trace.out"),
	}
	if !cfg.Enabled() {
		t.Fatalf("expected config to be enabled")
	}
	s, err := Start(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second stop must be a no-op, got %v", err)
	}
	for _, path := range []string{cfg.CPUProfile, cfg.MemProfile, cfg.RuntimeTrace} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s to exist: %v", filepath.Base(path), err)
		}
	}
}

func TestStartFailsCleanly(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope", "cpu.pprof")
	if _, err := Start(Config{CPUProfile: missing}); err == nil {
		t.Fatalf("expected error for an unwritable path")
	}
	// The CPU profiler must not be left running.
	s, err := Start(Config{CPUProfile: filepath.Join(t.TempDir(), "cpu.pprof")})
	if err != nil {
		t.Fatalf("profiler left running after failed start: %v", err)
	}
	_ = s.Stop()
}

func TestDisabledConfig(t *testing.T) {
	if (Config{}).Enabled() {
		t.Errorf("empty config must be disabled")
	}
	s, err := Start(Config{})
	if err != nil || s.Stop() != nil {
		t.Errorf("empty session must start and stop cleanly: %v", err)
	}
}
