package prismc

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prism-lang/prismc/pkg/arena"
	"github.com/prism-lang/prismc/pkg/bootstrap"
	"github.com/prism-lang/prismc/pkg/check"
	"github.com/prism-lang/prismc/pkg/diag"
	"github.com/prism-lang/prismc/pkg/source"
	"github.com/prism-lang/prismc/pkg/unify"
)

// initCheck registers `prismc check <core-file>`, per SPEC_FULL.md §4.14.
func initCheck(root *cobra.Command) {
	checkCmd := &cobra.Command{
		Use:   "check <core-file>",
		Short: "type-check a core-calculus term",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCheck(args[0])
		},
	}
	root.AddCommand(checkCmd)
}

func runCheck(path string) error {
	files := source.NewTable()
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	file := files.Add(path, data)

	a := arena.New()
	root, err := bootstrap.LoadCore(files, file, a)
	if err != nil {
		return err
	}

	u := unify.New(a)
	c := check.New(a, u)
	var errs []error
	typ := c.Synth(root, arena.Nil, &errs)

	var diagErrs diag.Errors
	pos := source.Position{File: file, Offset: 0}
	for _, e := range errs {
		switch concrete := e.(type) {
		case *check.Error:
			diagErrs = append(diagErrs, diag.FromCheck(files, pos, concrete))
		case *unify.Error:
			diagErrs = append(diagErrs, diag.FromUnify(files, pos, concrete))
		}
	}

	if len(diagErrs) == 0 {
		fmt.Printf("synthesized type: %v\n", a.Get(typ))
		return nil
	}

	if cfg.Format == "json" {
		b, err := diag.RenderJSON(diagErrs)
		if err != nil {
			return err
		}
		fmt.Println(string(b))
	} else {
		fmt.Print(diag.RenderText(diagErrs))
	}
	os.Exit(1)
	return nil
}
