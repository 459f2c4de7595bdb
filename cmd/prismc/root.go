// Package prismc is the `prismc` CLI: a Cobra command tree wiring the
// bootstrap grammar loader (C16), the PEG engine (C7) wrapped by the
// recovery driver (C9), and the type checker (C13) into three subcommands.
//
// Grounded on cmd/commands.go's Command(rootCommand, brand) assembly
// pattern, generalized from opa's bundle/evaluation command set to this
// tree's run/check/repl set.
package prismc

import (
	"github.com/spf13/cobra"

	"github.com/prism-lang/prismc/internal/config"
	"github.com/prism-lang/prismc/internal/plog"
)

// RootCommand is the top-level `prismc` command.
var RootCommand = &cobra.Command{
	Use:   "prismc",
	Short: "prismc: a scannerless adaptive PEG parser and dependently-typed core checker",
}

var cfg = config.Default()

func init() {
	config.Bind(RootCommand.PersistentFlags(), &cfg)
	RootCommand.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := config.ApplyEnv(cmd.Root()); err != nil {
			return err
		}
		return plog.SetLevel(cfg.LogLevel)
	}

	initRun(RootCommand)
	initCheck(RootCommand)
	initRepl(RootCommand)
}
