package prismc

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/prism-lang/prismc/pkg/arena"
	"github.com/prism-lang/prismc/pkg/bootstrap"
	"github.com/prism-lang/prismc/pkg/check"
	"github.com/prism-lang/prismc/pkg/gramstate"
	"github.com/prism-lang/prismc/pkg/hostns"
	"github.com/prism-lang/prismc/pkg/pcache"
	"github.com/prism-lang/prismc/pkg/peg"
	"github.com/prism-lang/prismc/pkg/recovery"
	"github.com/prism-lang/prismc/pkg/source"
	"github.com/prism-lang/prismc/pkg/unify"
)

const defaultHistoryFile = ".prismc_history"

// replState holds the loaded grammar and core environment across commands
// in one interactive session, the way runtime.Repl's Runtime field holds
// one long-lived evaluator across OneShot calls.
type replState struct {
	files  *source.Table
	engine *peg.Engine
	driver *recovery.Driver
	gs     *gramstate.State
	vars   *gramstate.VarMap

	arena   *arena.Arena
	unifier *unify.Unifier
	checker *check.Checker
}

// initRepl registers `prismc repl`, per SPEC_FULL.md §4.14.
func initRepl(root *cobra.Command) {
	var grammarPath string

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "interactive :parse/:check loop",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runRepl(grammarPath)
		},
	}
	replCmd.Flags().StringVar(&grammarPath, "grammar", "", "grammar file to load for :parse commands")
	root.AddCommand(replCmd)
}

func newReplState(grammarPath string) (*replState, error) {
	files := source.NewTable()
	a := arena.New()
	u := unify.New(a)

	rs := &replState{
		files:   files,
		arena:   a,
		unifier: u,
		checker: check.New(a, u),
	}

	if grammarPath != "" {
		data, err := os.ReadFile(grammarPath)
		if err != nil {
			return nil, err
		}
		file := files.Add(grammarPath, data)
		gf, err := bootstrap.Load(files, file)
		if err != nil {
			return nil, err
		}
		rs.gs, rs.vars = gramstate.NewWith(gf)
		registry := hostns.Standard()
		rs.engine = peg.NewEngine(files, pcache.New(1<<16), registry)
		rs.driver = &recovery.Driver{Engine: rs.engine, Cap: cfg.RecoveryCap}
	}
	return rs, nil
}

// runRepl runs until EOF, Ctrl+D, Ctrl-C, or ":exit", grounded on
// runtime.Repl.Loop's liner setup (history file; Ctrl-C makes the prompt
// return ErrPromptAborted, which ends the loop like EOF does).
func runRepl(grammarPath string) error {
	rs, err := newReplState(grammarPath)
	if err != nil {
		return err
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(defaultHistoryFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	for {
		input, err := line.Prompt("prismc> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			fmt.Println("Exiting")
			break
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(input) == ":exit" {
			break
		}
		if strings.TrimSpace(input) != "" {
			rs.oneShot(input)
			line.AppendHistory(input)
		}
	}

	if f, err := os.Create(defaultHistoryFile); err == nil {
		line.WriteHistory(f)
		f.Close()
	}
	return nil
}

// oneShot dispatches one ":parse <rule> <text>" or ":check <expr>" command.
func (rs *replState) oneShot(input string) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case ":parse":
		rs.doParse(fields)
	case ":check":
		rs.doCheck(strings.TrimSpace(strings.TrimPrefix(input, ":check")))
	default:
		fmt.Println("unknown command; expected :parse <rule> <text> or :check <expr>")
	}
}

func (rs *replState) doParse(fields []string) {
	if rs.engine == nil {
		fmt.Println("no grammar loaded; restart with --grammar <file>")
		return
	}
	if len(fields) < 3 {
		fmt.Println("usage: :parse <rule> <text>")
		return
	}
	ruleName := fields[1]
	text := strings.Join(fields[2:], " ")

	ruleVal, ok := rs.vars.Get(ruleName)
	if !ok || !ruleVal.IsRule {
		fmt.Printf("no rule named %q\n", ruleName)
		return
	}
	file := rs.files.Add("<repl>", []byte(text))
	result, _, _ := rs.driver.Run(rs.gs, ruleVal.RuleID, nil, source.Position{File: file, Offset: 0}, peg.Ctx{})
	if result.IsOk() {
		fmt.Printf("%+v\n", result.Value().Value)
	} else {
		fmt.Println("parse failed")
	}
}

func (rs *replState) doCheck(exprSrc string) {
	file := rs.files.Add("<repl>", []byte(exprSrc))
	i, err := bootstrap.LoadCore(rs.files, file, rs.arena)
	if err != nil {
		fmt.Println(err)
		return
	}
	var errs []error
	typ := rs.checker.Synth(i, arena.Nil, &errs)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Println(e)
		}
		return
	}
	fmt.Printf("%v\n", rs.arena.Get(typ))
}
