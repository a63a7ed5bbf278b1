package main

import (
	"testing"

	"github.com/kazz187/taskdeps/internal/config"
)

func testEnv() *config.Env {
	return &config.Env{
		BaseEnv: config.BaseEnv{
			TasksFile: ".taskdeps/tasks.yaml",
			HTTPHost:  "localhost",
			HTTPPort:  8080,
		},
		EngineEnv: config.EngineEnv{
			DefaultConcurrency: 3,
		},
	}
}

func TestDaemonConfigUsesResolvedTasksFile(t *testing.T) {
	cfg := daemonConfig(testEnv(), "other.yaml", "", 0)
	if cfg.TasksFile != "other.yaml" {
		t.Errorf("TasksFile = %q, want the file resolved from the flag", cfg.TasksFile)
	}
	if cfg.Address != "localhost" || cfg.Port != 8080 {
		t.Errorf("bind = %s:%d, want env defaults", cfg.Address, cfg.Port)
	}
	if cfg.DefaultConcurrency != 3 {
		t.Errorf("DefaultConcurrency = %d, want 3", cfg.DefaultConcurrency)
	}
}

func TestDaemonConfigFlagOverrides(t *testing.T) {
	cfg := daemonConfig(testEnv(), ".taskdeps/tasks.yaml", "0.0.0.0", 9090)
	if cfg.Address != "0.0.0.0" {
		t.Errorf("Address = %q, want flag override", cfg.Address)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want flag override", cfg.Port)
	}
}
