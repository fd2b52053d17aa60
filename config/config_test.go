package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hobbes-aerokernel/aerosched/sched"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NumCPUs != 4 {
		t.Errorf("NumCPUs = %d, want 4", cfg.NumCPUs)
	}
	if cfg.Sched.AperiodicPolicy != sched.Dynamic {
		t.Errorf("AperiodicPolicy = %v, want Dynamic", cfg.Sched.AperiodicPolicy)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aerosched.yaml")
	content := "num_cpus: 8\naperiodic_policy: lottery\nslack_ns: 500\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NumCPUs != 8 {
		t.Errorf("NumCPUs = %d, want 8", cfg.NumCPUs)
	}
	if cfg.Sched.AperiodicPolicy != sched.Lottery {
		t.Errorf("AperiodicPolicy = %v, want Lottery", cfg.Sched.AperiodicPolicy)
	}
	if cfg.Sched.SlackNS != 500 {
		t.Errorf("SlackNS = %d, want 500", cfg.Sched.SlackNS)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aerosched.yaml")
	if err := os.WriteFile(path, []byte("num_cpus: 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AEROSCHED_NUM_CPUS", "16")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NumCPUs != 16 {
		t.Errorf("NumCPUs = %d, want 16 (env override)", cfg.NumCPUs)
	}
}
