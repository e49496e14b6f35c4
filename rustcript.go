// Package rustcript embeds the rustcript scripting engine in a Go host.
//
// The host constructs an interpreter from source text (imports resolved
// through a source loader), configures the instruction limit and the file
// sandbox, injects globals — including native objects through the
// UserObject capability contract — and runs the script with a Handler that
// receives print, input, and command effects:
//
//	source, table, err := rustcript.ResolveImports("main.rc")
//	interp, err := rustcript.NewFromUnified(source, table)
//	interp.SetInstructionLimit(1_000_000)
//	interp.SetGlobal("USER", rustcript.String("Tester"))
//	err = interp.Run(handler)
package rustcript

import (
	"rustcript/internal/importer"
	"rustcript/internal/parser"
	"rustcript/internal/runtime"
	"rustcript/internal/span"
	"rustcript/internal/value"
)

// Value is a dynamic script value.
type Value = value.Value

// The value variants, re-exported for hosts that construct or inspect
// script data.
type (
	Int      = value.IntVal
	Float    = value.FloatVal
	Bool     = value.BoolVal
	String   = value.StringVal
	Time     = value.TimeVal
	Tuple    = value.TupleVal
	Vector   = value.VectorVal
	Map      = value.MapVal
	Null     = value.NullVal
	Function = value.FuncVal
)

// NewMap creates an empty insertion-ordered hashmap value.
func NewMap() *Map { return value.NewMap() }

// UserObject is the capability contract for host-native objects exposed to
// scripts: get/set/call plus a type name.
type UserObject = value.UserObject

// NewUserData wraps a host object as an injectable script value. All script
// access is serialized through a per-object mutex.
func NewUserData(obj UserObject) Value { return value.NewUserData(obj) }

// Handler receives the script's host effects during Run.
type Handler = runtime.Handler

// Permissions are the file I/O permission bits.
type Permissions = runtime.Permissions

// Interpreter executes a parsed program.
type Interpreter = runtime.Interpreter

// Program is the immutable result of parsing.
type Program = parser.Program

// Loc is a source location (file and line).
type Loc = span.Loc

// Loader reads source text for an import path.
type Loader = importer.Loader

// NewFromSource parses standalone source text (no import resolution) and
// returns a ready interpreter.
func NewFromSource(source string) (*Interpreter, error) {
	prog, err := parser.ParseSource(source, "<source>")
	if err != nil {
		return nil, err
	}
	return runtime.New(prog), nil
}

// NewFromUnified builds an interpreter from an import-resolved source
// string and its line table.
func NewFromUnified(source string, table []Loc) (*Interpreter, error) {
	prog, err := parser.ParseUnified(source, table)
	if err != nil {
		return nil, err
	}
	return runtime.New(prog), nil
}

// NewFromFile resolves imports starting at the given path and returns a
// ready interpreter.
func NewFromFile(path string) (*Interpreter, error) {
	source, table, err := importer.Resolve(path)
	if err != nil {
		return nil, err
	}
	return NewFromUnified(source, table)
}

// ResolveImports inlines the entry file's imports and returns the unified
// source with its per-line location table.
func ResolveImports(entryPath string) (string, []Loc, error) {
	return importer.Resolve(entryPath)
}
