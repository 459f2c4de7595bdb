// Package config binds cmd/prismc's CLI flags to a process-wide Config
// struct, plus the PRISMC_* environment variable overrides spec.md §6 scopes
// out of the core but cmd/prismc still wants for a usable CLI.
//
// Grounded on cmd/internal/env/env.go's pattern: a viper instance with
// AutomaticEnv and a command-name-derived prefix, visiting every pflag.Flag
// and filling in any left unset on the command line from the matching
// environment variable.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the resolved set of global options cmd/prismc reads, per
// SPEC_FULL.md §4.15.
type Config struct {
	RecoveryCap         int
	Memoize             bool
	LogLevel            string
	Format              string
	GrammarIncludePaths []string
}

// Default returns the zero-configuration defaults.
func Default() Config {
	return Config{
		RecoveryCap: 5,
		Memoize:     true,
		LogLevel:    "warn",
		Format:      "text",
	}
}

// EnvPrefix is the environment-variable prefix cmd/prismc's flags are
// looked up under, e.g. PRISMC_RECOVERY_CAP for --recovery-cap.
const EnvPrefix = "prismc"

// ApplyEnv fills in any flag on command left unset on the command line from
// its PRISMC_<FLAG> environment variable, the way
// env.CmdFlags.CheckEnvironmentVariables does for opa's own command tree.
func ApplyEnv(command *cobra.Command) error {
	var errs []string
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)

	command.Flags().VisitAll(func(f *pflag.Flag) {
		configName := strings.ReplaceAll(f.Name, "-", "_")
		if !f.Changed && v.IsSet(configName) {
			val := v.Get(configName)
			if err := command.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				errs = append(errs, err.Error())
			}
		}
	})

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("error mapping environment variables to command flags: %s", strings.Join(errs, "; "))
}

// Bind registers the global flags described in SPEC_FULL.md §4.14 onto fs,
// writing results into cfg.
func Bind(fs *pflag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.RecoveryCap, "recovery-cap", cfg.RecoveryCap, "maximum number of distinct synthetic recovery points per parse")
	fs.BoolVar(&cfg.Memoize, "memoize", cfg.Memoize, "enable the packrat parser cache")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "logging level: debug, info, warn, error")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "output format: text, json")
	fs.StringSliceVar(&cfg.GrammarIncludePaths, "include-path", cfg.GrammarIncludePaths, "search path for the grammar `include` hook (repeatable)")
}
