package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"rustcript/internal/parser"
	"rustcript/internal/runtime"
)

// ---- ANSI colors ----

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// runRepl reads statements interactively, accumulating multi-line blocks
// until the brackets balance. Globals persist across chunks; functions and
// labels live per chunk.
func runRepl(limit uint64, sandbox string, perms runtime.Permissions) {
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".rustcript_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            colorGreen + "rc> " + colorReset,
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init failed: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stdout(), "%s%srustcript REPL%s %s(type 'exit' or Ctrl+D to quit)%s\n\n",
		colorBold, colorCyan, colorReset, colorGray, colorReset)

	interp := runtime.New(&parser.Program{})
	interp.SetInstructionLimit(limit)
	interp.SetPermissions(perms)
	if sandbox != "" {
		interp.SetSandboxRoot(sandbox)
	}

	handler := &consoleHandler{}
	var accumulated strings.Builder
	bracketDepth := 0

	for {
		if bracketDepth > 0 {
			rl.SetPrompt(colorGray + "...  " + colorReset)
		} else {
			rl.SetPrompt(colorGreen + "rc> " + colorReset)
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if bracketDepth > 0 {
					accumulated.Reset()
					bracketDepth = 0
					continue
				}
				fmt.Fprintf(rl.Stdout(), "\n%s(use 'exit' or Ctrl+D to quit)%s\n", colorGray, colorReset)
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(rl.Stdout())
			}
			break
		}

		if bracketDepth == 0 && strings.TrimSpace(line) == "exit" {
			break
		}

		bracketDepth += strings.Count(line, "[") - strings.Count(line, "]")
		accumulated.WriteString(line)
		accumulated.WriteString("\n")

		if bracketDepth > 0 {
			continue
		}
		bracketDepth = 0

		source := accumulated.String()
		accumulated.Reset()
		if strings.TrimSpace(source) == "" {
			continue
		}

		prog, err := parser.ParseSource(source, "<repl>")
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "%s%v%s\n", colorRed, err, colorReset)
			continue
		}

		interp.LoadProgram(prog)
		if err := interp.Run(handler); err != nil {
			fmt.Fprintf(rl.Stderr(), "%s%v%s\n", colorRed, err, colorReset)
			continue
		}
	}
}
