package runtime

import (
	"strings"

	"rustcript/internal/diag"
	"rustcript/internal/parser"
	"rustcript/internal/value"
)

// resolveFunction finds a script function by name, trying the active
// namespace as a fallback.
func (in *Interpreter) resolveFunction(name string) (string, parser.FuncInfo, bool) {
	if info, ok := in.prog.Functions[name]; ok {
		return name, info, true
	}
	if key, ok := in.nsKey(name); ok {
		if info, ok := in.prog.Functions[key]; ok {
			return key, info, true
		}
	}
	return "", parser.FuncInfo{}, false
}

// bindParams builds the callee frame. The arity must match exactly.
func bindParams(info parser.FuncInfo, name string, args []value.Value) (*frame, error) {
	if len(args) != len(info.Params) {
		return nil, diag.Errorf(diag.ArityError,
			"%s expects %d arguments, got %d", name, len(info.Params), len(args))
	}
	f := newFrame()
	for i, param := range info.Params {
		f.vars[param] = args[i]
	}
	return f, nil
}

// callScriptStatement performs a statement-position call using the jump
// discipline: the return statement later writes the pending result into
// target and restores pc.
func (in *Interpreter) callScriptStatement(fullName string, info parser.FuncInfo, args []value.Value, target string, hasTarget bool) error {
	f, err := bindParams(info, fullName, args)
	if err != nil {
		return err
	}
	in.enterFunctionScope(fullName)
	in.frames = append(in.frames, f)
	in.callStack = append(in.callStack, callFrame{
		returnPC:  in.pc + 1,
		target:    target,
		hasTarget: hasTarget,
		isFunc:    true,
		name:      fullName,
	})
	in.pc = info.BodyStart
	return nil
}

// callScriptValue calls a script function from expression position by
// running a nested dispatch loop until the callee's frame unwinds. The
// instruction counter, globals, and frames are shared with the outer loop.
func (in *Interpreter) callScriptValue(fullName string, info parser.FuncInfo, args []value.Value) (value.Value, error) {
	f, err := bindParams(info, fullName, args)
	if err != nil {
		return nil, err
	}

	stopDepth := len(in.callStack)
	in.enterFunctionScope(fullName)
	in.frames = append(in.frames, f)
	in.callStack = append(in.callStack, callFrame{
		returnPC: -1,
		exprCall: true,
		isFunc:   true,
		name:     fullName,
	})

	savedPC := in.pc
	in.pc = info.BodyStart
	in.lastReturn = value.NullVal{}
	err = in.runLoop(stopDepth)
	in.pc = savedPC
	if err != nil {
		return nil, err
	}
	return in.lastReturn, nil
}

// callDotted resolves a call expression `name(args)` where name may be
// dotted: a script function, a function-valued variable, a method on a
// reachable object, or a standard-library module function.
func (in *Interpreter) callDotted(name string, args []value.Value) (value.Value, error) {
	if fullName, info, ok := in.resolveFunction(name); ok {
		return in.callScriptValue(fullName, info, args)
	}

	if v, ok := in.lookup(name); ok {
		if fv, isFunc := v.(value.FuncVal); isFunc {
			if fullName, info, ok := in.resolveFunction(string(fv)); ok {
				return in.callScriptValue(fullName, info, args)
			}
			return nil, diag.Errorf(diag.NameError,
				"variable '%s' points to unknown function '%s'", name, string(fv))
		}
		if !strings.Contains(name, ".") {
			return nil, diag.Errorf(diag.TypeError, "%s '%s' is not callable", v.TypeName(), name)
		}
	}

	parts := strings.Split(name, ".")
	for k := len(parts) - 1; k >= 1; k-- {
		obj, ok := in.lookup(strings.Join(parts[:k], "."))
		if !ok {
			continue
		}
		v := obj
		var err error
		for _, mid := range parts[k : len(parts)-1] {
			if v, err = accessField(v, mid); err != nil {
				return nil, err
			}
		}
		return in.callMethod(v, parts[len(parts)-1], args)
	}

	if len(parts) == 2 {
		return in.callModule(parts[0], parts[1], args)
	}
	return nil, diag.Errorf(diag.NameError, "unknown function or method '%s'", name)
}

// callMethod dispatches a method call on a value. A dotted method path
// traverses properties first, so `method m.inner.push(1)` reaches the
// nested vector.
func (in *Interpreter) callMethod(v value.Value, method string, args []value.Value) (value.Value, error) {
	if dot := strings.Index(method, "."); dot >= 0 {
		child, err := accessField(v, method[:dot])
		if err != nil {
			return nil, err
		}
		return in.callMethod(child, method[dot+1:], args)
	}

	switch obj := v.(type) {
	case *value.UserDataVal:
		res, err := obj.Call(method, args)
		if err != nil {
			return nil, diag.Wrap(diag.IOError, err)
		}
		if res == nil {
			return value.NullVal{}, nil
		}
		return res, nil
	case *value.VectorVal:
		return methodVector(obj, method, args)
	case *value.MapVal:
		return methodMap(obj, method, args)
	case *value.TupleVal:
		if method == "len" {
			return value.IntVal(int32(len(obj.Elements))), nil
		}
		return nil, diag.Errorf(diag.NameError, "unknown method '%s' for tuple", method)
	case value.StringVal:
		return methodString(string(obj), method, args)
	case value.TimeVal:
		return methodTime(obj, method, args)
	default:
		return nil, diag.Errorf(diag.TypeError, "type %s does not support methods", v.TypeName())
	}
}
