package runtime

import (
	"strings"
	"time"

	"rustcript/internal/diag"
	"rustcript/internal/parser"
	"rustcript/internal/token"
	"rustcript/internal/value"
)

// step executes one statement and advances pc. It reports stopped=true when
// a return popped an expression-call frame, which tells the nested run loop
// to hand the result back to the evaluator.
func (in *Interpreter) step(st *parser.Statement) (bool, error) {
	jumped := false
	stopped := false
	jump := func(target int) {
		in.pc = target
		jumped = true
	}

	switch st.Op {
	case parser.OpPrint:
		var b strings.Builder
		for _, seg := range st.Segments {
			if seg.Literal {
				b.WriteString(seg.Text)
				continue
			}
			v, err := in.evalExpr(seg.Text)
			if err != nil {
				return false, err
			}
			b.WriteString(v.String())
		}
		in.handler.OnPrint(b.String())

	case parser.OpInput:
		raw := in.handler.OnInput(st.Target)
		if err := in.setAuto(st.Target, value.ParseInput(raw)); err != nil {
			return false, err
		}

	case parser.OpTime:
		if err := in.setAuto(st.Target, value.TimeVal{At: time.Now()}); err != nil {
			return false, err
		}

	case parser.OpExec:
		args := make([]string, len(st.Args))
		for i, arg := range st.Args {
			v, err := in.evalExpr(arg)
			if err != nil {
				return false, err
			}
			args[i] = v.String()
		}
		handled, err := in.handler.OnCommand(st.Name, args)
		if err != nil {
			return false, diag.Wrap(diag.IOError, err)
		}
		if !handled {
			return false, diag.Errorf(diag.NameError, "unknown command '%s'", st.Name)
		}

	case parser.OpAssign:
		operand, err := in.evalExpr(st.Expr)
		if err != nil {
			return false, err
		}
		current := value.Value(value.IntVal(0))
		if st.AssignOp != "=" {
			if cur, err := in.evalExpr(st.Target); err == nil {
				current = cur
			}
		}
		res, err := applyAssignOp(current, st.AssignOp, operand)
		if err != nil {
			return false, err
		}
		if err := in.setAuto(st.Target, res); err != nil {
			return false, err
		}

	case parser.OpAssignLocal:
		v, err := in.evalExpr(st.Expr)
		if err != nil {
			return false, err
		}
		in.setLocal(st.Target, v)

	case parser.OpAssignGlobal:
		v, err := in.evalExpr(st.Expr)
		if err != nil {
			return false, err
		}
		in.setGlobalVar(st.Target, v)

	case parser.OpMethod:
		jumpedCall, err := in.stepMethod(st)
		if err != nil {
			return false, err
		}
		jumped = jumpedCall

	case parser.OpFuncCall:
		jumpedCall, err := in.stepFuncCall(st)
		if err != nil {
			return false, err
		}
		jumped = jumpedCall

	case parser.OpFuncDef:
		// Fallen into, not called: skip over the body.
		end, ok := in.prog.JumpMap[in.pc]
		if !ok {
			return false, diag.Errorf(diag.InternalError, "function body has no end marker")
		}
		jump(end + 1)

	case parser.OpReturn, parser.OpEndFunc:
		s, err := in.stepReturn(st)
		if err != nil {
			return false, err
		}
		stopped = s
		jumped = true

	case parser.OpCall:
		addr, fullName, ok := in.resolveLabel(st.Name)
		if !ok {
			return false, diag.Errorf(diag.NameError, "call to unknown label '%s'", st.Name)
		}
		if in.prog.Statements[addr].Op == parser.OpFuncDef {
			return false, diag.Errorf(diag.TypeError,
				"'%s' is a function; call it with %s(…)", st.Name, st.Name)
		}
		in.enterFunctionScope(fullName)
		in.frames = append(in.frames, newFrame())
		in.callStack = append(in.callStack, callFrame{
			returnPC: in.pc + 1,
			name:     fullName,
		})
		jump(addr)

	case parser.OpGoto:
		for _, cf := range in.callStack {
			if cf.isFunc {
				return false, diag.Errorf(diag.SyntaxError, "'goto' is not allowed inside a function body")
			}
		}
		addr, _, ok := in.resolveLabel(st.Name)
		if !ok {
			return false, diag.Errorf(diag.NameError, "goto to unknown label '%s'", st.Name)
		}
		jump(addr)

	case parser.OpLabel, parser.OpImport:
		// no-op

	case parser.OpIf, parser.OpElseIf:
		cond, err := in.evalExpr(st.Expr)
		if err != nil {
			return false, err
		}
		if !value.Truthy(cond) {
			dest, ok := in.prog.JumpMap[in.pc]
			if !ok {
				return false, diag.Errorf(diag.InternalError, "if block has no jump target")
			}
			jump(dest)
		}

	case parser.OpElse:
		// Reached only by irregular control flow; skip the body.
		if dest, ok := in.prog.JumpMap[in.pc]; ok {
			jump(dest)
		}

	case parser.OpEndIf:
		// A completed branch jumps past the rest of the chain.
		if dest, ok := in.prog.JumpMap[in.pc]; ok {
			jump(dest)
		}

	case parser.OpMatch:
		if err := in.stepMatch(st); err != nil {
			return false, err
		}
		jumped = true

	case parser.OpCase, parser.OpDefault:
		// Fallen into after the previous case body completed: leave the
		// match.
		dest, ok := in.prog.JumpMap[in.pc]
		if !ok {
			return false, diag.Errorf(diag.InternalError, "case has no jump target")
		}
		jump(dest)

	case parser.OpEndMatch:
		// no-op

	case parser.OpWhile:
		cond, err := in.evalExpr(st.Expr)
		if err != nil {
			return false, err
		}
		if !value.Truthy(cond) {
			end, ok := in.prog.JumpMap[in.pc]
			if !ok {
				return false, diag.Errorf(diag.InternalError, "while block has no jump target")
			}
			jump(end + 1)
		}

	case parser.OpLoop:
		// Unconditional; exited by break.

	case parser.OpEndWhile:
		opener, ok := in.prog.JumpMap[in.pc]
		if !ok {
			return false, diag.Errorf(diag.InternalError, "loop closer has no jump target")
		}
		jump(opener)

	case parser.OpFor:
		j, err := in.stepFor(st)
		if err != nil {
			return false, err
		}
		jumped = j

	case parser.OpEndFor:
		opener := in.prog.JumpMap[in.pc]
		cur, ok := in.lookup(st.Name)
		if !ok {
			return false, diag.Errorf(diag.NameError, "loop variable '%s' not found", st.Name)
		}
		next, err := applyAssignOp(cur, "+=", value.IntVal(1))
		if err != nil {
			return false, err
		}
		if err := in.setAuto(st.Name, next); err != nil {
			return false, err
		}
		jump(opener)

	case parser.OpForeach:
		j, err := in.stepForeach(st)
		if err != nil {
			return false, err
		}
		jumped = j

	case parser.OpEndForeach:
		opener := in.prog.JumpMap[in.pc]
		if state := in.curLoops()[opener]; state != nil {
			state.index++
		}
		jump(opener)

	case parser.OpBreak:
		target, ok := in.prog.JumpMap[in.pc]
		if !ok {
			return false, diag.Errorf(diag.InternalError, "break has no jump target")
		}
		delete(in.curLoops(), st.Opener)
		// Handlers installed inside the loop body are gone once we leave it.
		for len(in.tryStack) > 0 {
			h := in.tryStack[len(in.tryStack)-1]
			if h.callDepth == len(in.callStack) && h.tryStart > st.Opener && h.tryStart < target {
				in.tryStack = in.tryStack[:len(in.tryStack)-1]
				continue
			}
			break
		}
		jump(target)

	case parser.OpTry:
		catchPC, ok := in.prog.JumpMap[in.pc]
		if !ok || in.prog.Statements[catchPC].Op != parser.OpCatch {
			return false, diag.Errorf(diag.InternalError, "try block is missing its catch handler")
		}
		in.tryStack = append(in.tryStack, tryHandler{
			catchPC:    catchPC,
			tryStart:   in.pc,
			frameDepth: len(in.frames),
			callDepth:  len(in.callStack),
			nsDepth:    len(in.nsStack),
		})

	case parser.OpEndTry:
		if len(in.tryStack) > 0 {
			in.tryStack = in.tryStack[:len(in.tryStack)-1]
		}
		dest, ok := in.prog.JumpMap[in.pc]
		if !ok {
			return false, diag.Errorf(diag.InternalError, "try block is missing its catch handler")
		}
		jump(dest)

	case parser.OpCatch, parser.OpEndCatch:
		// Catch bodies are entered by the error path; both markers are
		// no-ops when executed.

	case parser.OpModuleStart:
		in.nsStack = append(in.nsStack, st.Name)

	case parser.OpModuleEnd:
		if len(in.nsStack) == 0 {
			return false, diag.Errorf(diag.InternalError, "namespace stack underflow")
		}
		popped := in.nsStack[len(in.nsStack)-1]
		if popped != st.Name {
			return false, diag.Errorf(diag.InternalError,
				"namespace integrity error: expected to close '%s', found '%s'", st.Name, popped)
		}
		in.nsStack = in.nsStack[:len(in.nsStack)-1]

	default:
		return false, diag.Errorf(diag.InternalError, "unhandled statement %s", st.Op)
	}

	if !jumped {
		in.pc++
	}
	return stopped, nil
}

// resolveLabel finds a label, trying the active namespace as a fallback.
func (in *Interpreter) resolveLabel(name string) (int, string, bool) {
	if addr, ok := in.prog.Labels[name]; ok {
		return addr, name, true
	}
	if key, ok := in.nsKey(name); ok {
		if addr, ok := in.prog.Labels[key]; ok {
			return addr, key, true
		}
	}
	return 0, "", false
}

// stepReturn handles both `return expr` and falling off a function end.
func (in *Interpreter) stepReturn(st *parser.Statement) (bool, error) {
	if len(in.callStack) == 0 {
		return false, diag.Errorf(diag.InternalError, "'return' outside of a function or call")
	}

	var ret value.Value = value.NullVal{}
	if st.Op == parser.OpReturn && st.Expr != "" {
		v, err := in.evalExpr(st.Expr)
		if err != nil {
			return false, err
		}
		ret = v
	}

	cf := in.callStack[len(in.callStack)-1]
	in.callStack = in.callStack[:len(in.callStack)-1]
	in.frames = in.frames[:len(in.frames)-1]
	if err := in.exitFunctionScope(); err != nil {
		return false, err
	}

	if cf.hasTarget {
		if err := in.setAuto(cf.target, ret); err != nil {
			return false, err
		}
	}
	in.lastReturn = ret

	if cf.exprCall {
		// The nested run loop hands lastReturn back to the evaluator.
		return true, nil
	}
	in.pc = cf.returnPC
	return false, nil
}

// stepFuncCall executes a statement-position call: a script function uses
// the jump discipline; anything else resolves like a call expression.
func (in *Interpreter) stepFuncCall(st *parser.Statement) (bool, error) {
	fullName, info, ok := in.resolveFunction(st.Name)
	if !ok {
		// A variable may hold a function reference.
		if v, found := in.lookup(st.Name); found {
			if fv, isFunc := v.(value.FuncVal); isFunc {
				fullName, info, ok = in.resolveFunction(string(fv))
				if !ok {
					return false, diag.Errorf(diag.NameError,
						"variable '%s' points to unknown function '%s'", st.Name, string(fv))
				}
			}
		}
	}

	if ok {
		args, err := in.evalArgs(st.Args)
		if err != nil {
			return false, err
		}
		if err := in.callScriptStatement(fullName, info, args, st.Target, st.HasTarget); err != nil {
			return false, err
		}
		return true, nil
	}

	if !strings.Contains(st.Name, ".") {
		return false, diag.Errorf(diag.NameError, "unknown function '%s'", st.Name)
	}

	args, err := in.evalArgs(st.Args)
	if err != nil {
		return false, err
	}
	res, err := in.callDotted(st.Name, args)
	if err != nil {
		return false, err
	}
	if st.HasTarget {
		if err := in.setAuto(st.Target, res); err != nil {
			return false, err
		}
	}
	return false, nil
}

// stepMethod executes `method [target =] obj.m(args)`. It reports whether
// control jumped into a script function body.
func (in *Interpreter) stepMethod(st *parser.Statement) (bool, error) {
	args, err := in.evalArgs(st.Args)
	if err != nil {
		return false, err
	}

	if obj, ok := in.lookup(st.Name); ok {
		res, err := in.callMethod(obj, st.Method, args)
		if err != nil {
			return false, err
		}
		if st.HasTarget {
			return false, in.setAuto(st.Target, res)
		}
		return false, nil
	}

	// No such variable: a namespaced function or a module call.
	full := st.Name + "." + st.Method
	if fullName, info, ok := in.resolveFunction(full); ok {
		if err := in.callScriptStatement(fullName, info, args, st.Target, st.HasTarget); err != nil {
			return false, err
		}
		return true, nil
	}

	res, err := in.callDotted(full, args)
	if err != nil {
		return false, err
	}
	if st.HasTarget {
		return false, in.setAuto(st.Target, res)
	}
	return false, nil
}

// evalArgs evaluates call arguments left to right.
func (in *Interpreter) evalArgs(exprs []string) ([]value.Value, error) {
	args := make([]value.Value, len(exprs))
	for i, expr := range exprs {
		v, err := in.evalExpr(expr)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// stepMatch scans the match body for the first case equal to the subject,
// falling back to default. Nested match blocks are skipped over.
func (in *Interpreter) stepMatch(st *parser.Statement) error {
	subject, err := in.evalExpr(st.Expr)
	if err != nil {
		return err
	}

	defaultPC := -1
	scan := in.pc + 1
	for scan < len(in.prog.Statements) {
		switch in.prog.Statements[scan].Op {
		case parser.OpMatch:
			scan = in.prog.JumpMap[scan]
		case parser.OpCase:
			caseVal, err := in.evalExpr(in.prog.Statements[scan].Expr)
			if err != nil {
				return err
			}
			if value.Equal(subject, caseVal) {
				in.pc = scan + 1
				return nil
			}
		case parser.OpDefault:
			defaultPC = scan + 1
		case parser.OpEndMatch:
			if defaultPC >= 0 {
				in.pc = defaultPC
			} else {
				in.pc = scan
			}
			return nil
		}
		scan++
	}
	return diag.Errorf(diag.InternalError, "match block has no end marker")
}

// stepFor initializes the loop variable on first entry and tests the
// half-open bound `i < end` before each iteration.
func (in *Interpreter) stepFor(st *parser.Statement) (bool, error) {
	loops := in.curLoops()
	if _, running := loops[in.pc]; !running {
		start, err := in.evalExpr(st.Start)
		if err != nil {
			return false, err
		}
		loops[in.pc] = &loopState{}
		if f := in.topFrame(); f != nil {
			f.vars[st.Name] = start
		} else {
			in.globals[st.Name] = start
		}
	}

	cur, ok := in.lookup(st.Name)
	if !ok {
		return false, diag.Errorf(diag.NameError, "loop variable '%s' not found", st.Name)
	}
	end, err := in.evalExpr(st.End)
	if err != nil {
		return false, err
	}
	cont, err := compareValues(token.LT, cur, end)
	if err != nil {
		return false, err
	}
	if !value.Truthy(cont) {
		delete(loops, in.pc)
		in.pc = in.prog.JumpMap[in.pc] + 1
		return true, nil
	}
	return false, nil
}

// stepForeach snapshots the collection on first entry and binds the loop
// variable to each element; hash maps yield their keys in insertion order.
func (in *Interpreter) stepForeach(st *parser.Statement) (bool, error) {
	loops := in.curLoops()
	state := loops[in.pc]
	if state == nil {
		coll, err := in.evalExpr(st.Expr)
		if err != nil {
			return false, err
		}
		var items []value.Value
		switch c := coll.(type) {
		case *value.VectorVal:
			items = append(items, c.Elements...)
		case *value.TupleVal:
			items = append(items, c.Elements...)
		case *value.MapVal:
			for _, k := range c.Keys {
				items = append(items, value.StringVal(k))
			}
		default:
			return false, diag.Errorf(diag.TypeError, "cannot iterate over %s", coll.TypeName())
		}
		state = &loopState{items: items}
		loops[in.pc] = state
	}

	if state.index >= len(state.items) {
		delete(loops, in.pc)
		in.pc = in.prog.JumpMap[in.pc] + 1
		return true, nil
	}

	elem := state.items[state.index]
	if f := in.topFrame(); f != nil {
		f.vars[st.Name] = elem
	} else {
		in.globals[st.Name] = elem
	}
	return false, nil
}
