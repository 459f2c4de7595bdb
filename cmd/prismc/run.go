package prismc

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/prism-lang/prismc/pkg/bootstrap"
	"github.com/prism-lang/prismc/pkg/diag"
	"github.com/prism-lang/prismc/pkg/gramstate"
	"github.com/prism-lang/prismc/pkg/hostns"
	"github.com/prism-lang/prismc/pkg/pcache"
	"github.com/prism-lang/prismc/pkg/peg"
	"github.com/prism-lang/prismc/pkg/recovery"
	"github.com/prism-lang/prismc/pkg/source"
)

// initRun registers `prismc run <grammar-file> <start-rule> <input-file>`,
// per SPEC_FULL.md §4.14.
func initRun(root *cobra.Command) {
	var showTokens bool

	runCmd := &cobra.Command{
		Use:   "run <grammar-file> <start-rule> <input-file>",
		Short: "parse input-file with start-rule from grammar-file",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			return runRun(args[0], args[1], args[2], showTokens)
		},
	}
	runCmd.Flags().BoolVar(&showTokens, "tokens", false, "print the token stream alongside the parsed value")
	root.AddCommand(runCmd)
}

func runRun(grammarPath, startRule, inputPath string, showTokens bool) error {
	files := source.NewTable()

	gData, err := os.ReadFile(grammarPath)
	if err != nil {
		return err
	}
	gFile := files.Add(grammarPath, gData)

	inData, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	inFile := files.Add(inputPath, inData)

	gf, err := bootstrap.Load(files, gFile)
	if err != nil {
		return err
	}

	gs, vars := gramstate.NewWith(gf)
	ruleVal, ok := vars.Get(startRule)
	if !ok || !ruleVal.IsRule {
		return fmt.Errorf("prismc: no rule named %q in %s", startRule, grammarPath)
	}

	var capacity int
	if cfg.Memoize {
		capacity = 1 << 16
	} else {
		capacity = 1
	}
	cache := pcache.New(capacity)
	registry := hostns.Standard()
	engine := peg.NewEngine(files, cache, registry)

	driver := &recovery.Driver{Engine: engine, Cap: cfg.RecoveryCap}
	startPos := source.Position{File: inFile, Offset: 0}
	result, tokens, errs := driver.Run(gs, ruleVal.RuleID, nil, startPos, peg.Ctx{})

	var diagErrs diag.Errors
	for _, e := range errs {
		if pe, ok := e.(*recovery.PositionedError); ok {
			diagErrs = append(diagErrs, diag.FromPositioned(files, pe))
		}
	}

	if result.IsOk() {
		fmt.Printf("%+v\n", result.Value().Value)
	} else {
		fmt.Println("parse failed")
	}
	if showTokens {
		printTokens(os.Stdout, files, tokens)
	}
	if len(diagErrs) > 0 {
		if cfg.Format == "json" {
			b, err := diag.RenderJSON(diagErrs)
			if err != nil {
				return err
			}
			fmt.Println(string(b))
		} else {
			fmt.Print(diag.RenderText(diagErrs))
		}
	}
	if !result.IsOk() {
		os.Exit(1)
	}
	return nil
}

// printTokens renders the token stream spec.md §6's run() returns alongside
// the parsed value, one row per token, grounded on presentation.go's
// tablewriter.NewWriter/SetHeader/Append/Render pattern.
func printTokens(w io.Writer, files *source.Table, tokens []peg.Token) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Kind", "Start", "End", "Text"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, t := range tokens {
		startLine, startCol := files.LineCol(t.Span.Start)
		endLine, endCol := files.LineCol(t.Span.End)
		table.Append([]string{
			t.Kind.String(),
			fmt.Sprintf("%d:%d", startLine, startCol),
			fmt.Sprintf("%d:%d", endLine, endCol),
			string(files.Slice(t.Span)),
		})
	}
	table.Render()
}
