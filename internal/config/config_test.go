package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxConcurrent != 1 || cfg.TasksFile != "tasks.yaml" {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadFillsMissingFieldsFromDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("max_concurrent: 4\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxConcurrent != 4 {
		t.Errorf("MaxConcurrent = %d, want 4", cfg.MaxConcurrent)
	}
	if cfg.TasksFile != "tasks.yaml" {
		t.Errorf("TasksFile = %q, want default", cfg.TasksFile)
	}
}

func TestApprovalTTLDefault(t *testing.T) {
	cfg := Defaults()
	if cfg.ApprovalTTL().Hours() != 24 {
		t.Errorf("ApprovalTTL = %v, want 24h", cfg.ApprovalTTL())
	}
}

func TestResolvePathJoinsRelative(t *testing.T) {
	got := ResolvePath("/base", "tasks.yaml")
	if got != filepath.Join("/base", "tasks.yaml") {
		t.Errorf("ResolvePath = %q", got)
	}
	if ResolvePath("/base", "/abs/tasks.yaml") != "/abs/tasks.yaml" {
		t.Errorf("ResolvePath should preserve absolute paths")
	}
}
