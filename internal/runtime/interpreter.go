// Package runtime implements the rustcript interpreter: scope frames, the
// statement dispatcher, the expression evaluator, and the sandboxed
// standard library.
package runtime

import (
	"strings"

	"rustcript/internal/diag"
	"rustcript/internal/parser"
	"rustcript/internal/value"
)

// Handler receives the script's host effects. The embedder supplies one to
// Run; the CLI installs a console handler.
type Handler interface {
	OnPrint(text string)
	OnInput(prompt string) string
	OnCommand(name string, args []string) (bool, error)
}

// Permissions are the file I/O permission bits consulted by the io module.
// AllowNoSandbox bypasses path containment but not the permission bits.
type Permissions struct {
	Read           bool
	Write          bool
	Delete         bool
	AllowNoSandbox bool
}

// frame is one local scope plus the iteration state of loops running at
// this call depth (keyed by loop opener index, so recursion is safe).
type frame struct {
	vars  map[string]value.Value
	loops map[int]*loopState
}

func newFrame() *frame {
	return &frame{vars: make(map[string]value.Value)}
}

// loopState tracks a running for/foreach loop.
type loopState struct {
	index int           // foreach position
	items []value.Value // foreach snapshot
}

// callFrame is one entry of the call stack.
type callFrame struct {
	returnPC  int
	target    string // caller's pending-result variable
	hasTarget bool
	exprCall  bool // call originated inside an expression; unwound by the nested run loop
	isFunc    bool // false for `call` subroutines
	name      string
}

// tryHandler is an installed catch handler. The recorded depths restore the
// frame, call, and namespace state before control jumps to the catch body.
type tryHandler struct {
	catchPC    int
	tryStart   int
	frameDepth int
	callDepth  int
	nsDepth    int
}

// Interpreter executes a parsed Program. It is not safe to share across
// goroutines without external serialization.
type Interpreter struct {
	prog      *parser.Program
	globals   map[string]value.Value
	frames    []*frame
	rootLoops map[int]*loopState
	callStack []callFrame
	tryStack  []tryHandler

	nsStack   []string
	nsBackups [][]string

	count   uint64
	limit   uint64
	sandbox Sandbox

	handler    Handler
	lastReturn value.Value
	pc         int
}

// New creates an interpreter for the given program with no instruction
// limit and all I/O permissions denied.
func New(prog *parser.Program) *Interpreter {
	return &Interpreter{
		prog:      prog,
		globals:   make(map[string]value.Value),
		rootLoops: make(map[int]*loopState),
	}
}

// SetInstructionLimit bounds execution; 0 means unlimited.
func (in *Interpreter) SetInstructionLimit(limit uint64) { in.limit = limit }

// SetSandboxRoot confines file I/O to the given directory.
func (in *Interpreter) SetSandboxRoot(root string) { in.sandbox.Root = root }

// SetPermissions sets the file I/O permission bits.
func (in *Interpreter) SetPermissions(perms Permissions) { in.sandbox.Perms = perms }

// SetGlobal injects a named global before (or between) runs.
func (in *Interpreter) SetGlobal(name string, v value.Value) { in.globals[name] = v }

// GetValue reads a variable back out, checking the current frame first.
func (in *Interpreter) GetValue(name string) (value.Value, bool) {
	return in.lookup(name)
}

// InstructionCount returns the cumulative number of dispatched statements.
func (in *Interpreter) InstructionCount() uint64 { return in.count }

// LoadProgram swaps in a new program while keeping globals, so a REPL can
// execute chunks against persistent state.
func (in *Interpreter) LoadProgram(prog *parser.Program) {
	in.prog = prog
	in.pc = 0
	in.frames = nil
	in.callStack = nil
	in.tryStack = nil
	in.nsStack = nil
	in.nsBackups = nil
	in.rootLoops = make(map[int]*loopState)
}

// Run executes the program to completion, reporting host effects to h.
func (in *Interpreter) Run(h Handler) error {
	in.handler = h
	in.pc = 0
	if err := in.runLoop(-1); err != nil {
		return err
	}
	if len(in.frames) != 0 || len(in.callStack) != 0 {
		return diag.Errorf(diag.InternalError, "unbalanced call state after run (missing return?)")
	}
	return nil
}

// runLoop advances the program counter until the program ends or, for
// nested expression calls, until the call stack shrinks back to stopDepth.
// The outermost loop runs with stopDepth -1 and owns every try handler not
// claimed by a nested loop.
func (in *Interpreter) runLoop(stopDepth int) error {
	for in.pc < len(in.prog.Statements) {
		in.count++
		if in.limit > 0 && in.count > in.limit {
			return diag.Errorf(diag.LimitError,
				"execution limit exceeded: stopped after %d instructions", in.limit)
		}

		st := &in.prog.Statements[in.pc]
		stopped, err := in.step(st)
		if err != nil {
			serr := diag.Wrap(diag.IOError, err).At(st.Loc)
			if serr.Context == "" {
				serr.Context = in.currentContext()
			}
			if !in.recoverErr(serr, stopDepth) {
				return serr
			}
			continue
		}
		if stopped && len(in.callStack) <= stopDepth {
			return nil
		}
	}
	return nil
}

// currentContext names the innermost active function for error reports.
func (in *Interpreter) currentContext() string {
	for i := len(in.callStack) - 1; i >= 0; i-- {
		if in.callStack[i].isFunc {
			return in.callStack[i].name
		}
	}
	return ""
}

// recoverErr unwinds to the innermost try handler owned by this run loop.
// It reports false when the error must propagate: uncatchable kinds, no
// handler, or a handler belonging to an outer loop.
func (in *Interpreter) recoverErr(serr *diag.Error, stopDepth int) bool {
	if !serr.Kind.Catchable() || len(in.tryStack) == 0 {
		return false
	}
	h := in.tryStack[len(in.tryStack)-1]
	if h.callDepth <= stopDepth {
		return false
	}
	in.tryStack = in.tryStack[:len(in.tryStack)-1]

	// Unwind call frames entered after the handler was installed and
	// restore the namespace state they saved.
	if len(in.callStack) > h.callDepth {
		in.nsStack = in.nsBackups[h.callDepth]
	}
	in.callStack = in.callStack[:h.callDepth]
	in.nsBackups = in.nsBackups[:h.callDepth]
	if h.nsDepth <= len(in.nsStack) {
		in.nsStack = in.nsStack[:h.nsDepth]
	}
	in.frames = in.frames[:h.frameDepth]

	in.globals["LAST_ERROR"] = value.StringVal(serr.Error())
	in.pc = h.catchPC
	return true
}

// ---- scope and name resolution ----

func (in *Interpreter) topFrame() *frame {
	if len(in.frames) == 0 {
		return nil
	}
	return in.frames[len(in.frames)-1]
}

// curLoops returns the loop-state table for the current call depth.
func (in *Interpreter) curLoops() map[int]*loopState {
	if f := in.topFrame(); f != nil {
		if f.loops == nil {
			f.loops = make(map[int]*loopState)
		}
		return f.loops
	}
	return in.rootLoops
}

func (in *Interpreter) nsKey(name string) (string, bool) {
	if len(in.nsStack) == 0 {
		return "", false
	}
	return strings.Join(in.nsStack, ".") + "." + name, true
}

// lookup resolves a bare identifier: current frame, then globals, then the
// active namespace's globals.
func (in *Interpreter) lookup(name string) (value.Value, bool) {
	if f := in.topFrame(); f != nil {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}
	if v, ok := in.globals[name]; ok {
		return v, true
	}
	if key, ok := in.nsKey(name); ok {
		if v, ok := in.globals[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// setLocal always writes the top frame, or globals at top level.
func (in *Interpreter) setLocal(name string, v value.Value) {
	if f := in.topFrame(); f != nil {
		f.vars[name] = v
		return
	}
	in.globals[name] = v
}

// setGlobalVar always writes globals, prefixed with the active namespace.
func (in *Interpreter) setGlobalVar(name string, v value.Value) {
	if key, ok := in.nsKey(name); ok {
		in.globals[key] = v
		return
	}
	in.globals[name] = v
}

// setAuto implements the auto-assignment rule: update the name where it
// already lives (frame, then globals, then namespaced global), mutate
// through an access chain when the target is one, and otherwise create the
// name in the current scope.
func (in *Interpreter) setAuto(name string, v value.Value) error {
	if f := in.topFrame(); f != nil {
		if _, ok := f.vars[name]; ok {
			f.vars[name] = v
			return nil
		}
	}
	if _, ok := in.globals[name]; ok {
		in.globals[name] = v
		return nil
	}

	if strings.ContainsAny(name, ".[") {
		return in.writeChain(name, v)
	}

	if key, ok := in.nsKey(name); ok {
		if _, ok := in.globals[key]; ok {
			in.globals[key] = v
			return nil
		}
	}

	in.setLocal(name, v)
	return nil
}

// ---- namespace scope tracking ----

// enterFunctionScope saves the namespace stack and replaces it with the
// namespace encoded in the callee's qualified name, so a namespaced
// function resolves its module's globals.
func (in *Interpreter) enterFunctionScope(funcName string) {
	backup := make([]string, len(in.nsStack))
	copy(backup, in.nsStack)
	in.nsBackups = append(in.nsBackups, backup)

	if dot := strings.LastIndex(funcName, "."); dot >= 0 {
		in.nsStack = strings.Split(funcName[:dot], ".")
	} else {
		in.nsStack = nil
	}
}

func (in *Interpreter) exitFunctionScope() error {
	if len(in.nsBackups) == 0 {
		return diag.Errorf(diag.InternalError, "namespace stack underflow on function exit")
	}
	in.nsStack = in.nsBackups[len(in.nsBackups)-1]
	in.nsBackups = in.nsBackups[:len(in.nsBackups)-1]
	return nil
}
