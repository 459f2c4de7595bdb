package config

import (
	"os"
	"testing"

	"github.com/spf13/cobra"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.RecoveryCap != 5 || !cfg.Memoize || cfg.LogLevel != "warn" || cfg.Format != "text" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestApplyEnvFillsUnsetFlags(t *testing.T) {
	cfg := Default()
	cmd := &cobra.Command{Use: "test"}
	Bind(cmd.Flags(), &cfg)

	os.Setenv("PRISMC_LOG_LEVEL", "debug")
	defer os.Unsetenv("PRISMC_LOG_LEVEL")

	if err := ApplyEnv(cmd); err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected env override to set log-level to debug, got %q", cfg.LogLevel)
	}
}

func TestApplyEnvDoesNotOverrideExplicitFlag(t *testing.T) {
	cfg := Default()
	cmd := &cobra.Command{Use: "test"}
	Bind(cmd.Flags(), &cfg)

	if err := cmd.Flags().Set("log-level", "error"); err != nil {
		t.Fatal(err)
	}

	os.Setenv("PRISMC_LOG_LEVEL", "debug")
	defer os.Unsetenv("PRISMC_LOG_LEVEL")

	if err := ApplyEnv(cmd); err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("explicit flag should win over env override, got %q", cfg.LogLevel)
	}
}
