// Command rustcript runs rustcript scripts.
//
// Usage:
//
//	rustcript [flags] <script.rc>   Run a script
//	rustcript                      Start the interactive REPL
//
// The instruction limit defaults to RUSTCRIPT_MAX_OPS (1,000,000 when
// unset); file I/O requires a sandbox root (or --unsafe-no-sandbox) and
// explicit permission flags.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"rustcript/internal/importer"
	"rustcript/internal/parser"
	"rustcript/internal/runtime"
)

var cli struct {
	Script string `arg:"" optional:"" help:"Script file to run (.rc). Starts the REPL when omitted."`

	Limit     uint64 `help:"Maximum instruction count (overrides $RUSTCRIPT_MAX_OPS)." env:"RUSTCRIPT_MAX_OPS" default:"1000000"`
	Unlimited bool   `help:"Disable the execution safety limit."`

	Sandbox         string `help:"Root directory for file I/O." type:"path" placeholder:"PATH"`
	AllowRead       bool   `help:"Allow scripts to read files."`
	AllowWrite      bool   `help:"Allow scripts to write files."`
	AllowDelete     bool   `help:"Allow scripts to delete files."`
	UnsafeNoSandbox bool   `name:"unsafe-no-sandbox" help:"DISABLE path containment (permissions still apply)."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("rustcript"),
		kong.Description("An embeddable scripting engine with a sandboxed standard library."),
		kong.UsageOnError(),
	)

	limit := cli.Limit
	if cli.Unlimited {
		limit = 0
	}
	perms := runtime.Permissions{
		Read:           cli.AllowRead,
		Write:          cli.AllowWrite,
		Delete:         cli.AllowDelete,
		AllowNoSandbox: cli.UnsafeNoSandbox,
	}

	if cli.Script == "" {
		runRepl(limit, cli.Sandbox, perms)
		return
	}

	if err := runScript(cli.Script, limit, cli.Sandbox, perms); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runScript(path string, limit uint64, sandbox string, perms runtime.Permissions) error {
	source, table, err := importer.Resolve(path)
	if err != nil {
		return err
	}

	prog, err := parser.ParseUnified(source, table)
	if err != nil {
		return err
	}

	interp := runtime.New(prog)
	interp.SetInstructionLimit(limit)
	interp.SetPermissions(perms)
	if sandbox != "" {
		interp.SetSandboxRoot(sandbox)
	}

	return interp.Run(&consoleHandler{})
}
