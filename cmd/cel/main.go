// Command cel evaluates a single CEL expression against name=value
// bindings taken from the command line, or drops into a REPL when no
// expression is given (spec.md 6).
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/midbel/cel"
)

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) == 0 {
		runREPL()
		return
	}

	bindings, err := parseBindings(args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Argument error:", err)
		os.Exit(1)
	}

	v, err := cel.Eval(args[0], bindings)
	if err != nil {
		reportError(err)
		os.Exit(1)
	}
	fmt.Println(v.String())
}

func reportError(err error) {
	var perr *cel.ParseError
	if errors.As(err, &perr) {
		fmt.Fprintln(os.Stderr, "Parse error:", perr.Error())
		return
	}
	fmt.Fprintln(os.Stderr, "Evaluation error:", err)
}

// parseBindings classifies each name=value argument by attempting int,
// double, bool, then string parses in that order (spec.md 6).
func parseBindings(args []string) (map[string]cel.Value, error) {
	bindings := make(map[string]cel.Value, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%q: expected name=value", arg)
		}
		bindings[name] = classify(raw)
	}
	return bindings, nil
}

func classify(raw string) cel.Value {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return cel.Int(n)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return cel.Double(f)
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return cel.Bool(b)
	}
	return cel.String(raw)
}

func runREPL() {
	if !isInteractive() {
		runBufferedREPL(os.Stdin)
		return
	}
	runInteractiveREPL()
}

func runBufferedREPL(r io.Reader) {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if src := strings.TrimSpace(line); src != "" {
			evalAndPrint(src)
		}
		if err != nil {
			return
		}
	}
}

func runInteractiveREPL() {
	state := liner.NewLiner()
	defer state.Close()
	state.SetCtrlCAborts(true)

	historyPath := replHistoryPath()
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			state.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(historyPath); err == nil {
				state.WriteHistory(f)
				f.Close()
			}
		}()
	}

	for {
		input, err := state.Prompt("cel> ")
		if err != nil {
			switch {
			case errors.Is(err, liner.ErrPromptAborted):
				fmt.Println()
				continue
			case errors.Is(err, io.EOF):
				fmt.Println()
				return
			default:
				fmt.Fprintln(os.Stderr, "read error:", err)
				return
			}
		}
		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		state.AppendHistory(trimmed)
		evalAndPrint(trimmed)
	}
}

func evalAndPrint(src string) {
	v, err := cel.Eval(src, nil)
	if err != nil {
		reportError(err)
		return
	}
	fmt.Println(v.String())
}

func replHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".cel_history")
}

func isInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
