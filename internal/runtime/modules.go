package runtime

import (
	"math"
	"math/rand"

	"rustcript/internal/diag"
	"rustcript/internal/value"
)

// callModule dispatches module.function(args) for the built-in static
// modules. The os and io modules are feature-gated at build time and
// consult the sandbox configuration at run time.
func (in *Interpreter) callModule(module, method string, args []value.Value) (value.Value, error) {
	switch module {
	case "math":
		return moduleMath(method, args)
	case "rand":
		return moduleRand(method, args)
	case "json":
		return moduleJSON(method, args)
	case "os":
		return moduleOS(method, args)
	case "io":
		return in.sandbox.callIO(method, args)
	default:
		return nil, diag.Errorf(diag.NameError, "unknown module '%s'", module)
	}
}

func argFloat(args []value.Value, i int, method string) (float64, error) {
	f, ok := value.ToFloat(args[i])
	if !ok {
		return 0, diag.Errorf(diag.TypeError, "%s: argument must be a number, got %s", method, args[i].TypeName())
	}
	return f, nil
}

func moduleMath(method string, args []value.Value) (value.Value, error) {
	unary := func(name string, fn func(float64) float64) (value.Value, error) {
		if err := checkArgs(args, 1, "math."+name); err != nil {
			return nil, err
		}
		f, err := argFloat(args, 0, "math."+name)
		if err != nil {
			return nil, err
		}
		return value.FloatVal(fn(f)), nil
	}

	switch method {
	case "pi":
		return value.FloatVal(math.Pi), nil
	case "e":
		return value.FloatVal(math.E), nil
	case "sqrt":
		return unary("sqrt", math.Sqrt)
	case "abs":
		return unary("abs", math.Abs)
	case "sin":
		return unary("sin", math.Sin)
	case "cos":
		return unary("cos", math.Cos)
	case "pow":
		if err := checkArgs(args, 2, "math.pow"); err != nil {
			return nil, err
		}
		base, err := argFloat(args, 0, "math.pow")
		if err != nil {
			return nil, err
		}
		exp, err := argFloat(args, 1, "math.pow")
		if err != nil {
			return nil, err
		}
		return value.FloatVal(math.Pow(base, exp)), nil
	case "round", "floor", "ceil":
		if err := checkArgs(args, 1, "math."+method); err != nil {
			return nil, err
		}
		f, err := argFloat(args, 0, "math."+method)
		if err != nil {
			return nil, err
		}
		switch method {
		case "round":
			f = math.Round(f)
		case "floor":
			f = math.Floor(f)
		default:
			f = math.Ceil(f)
		}
		return value.IntVal(int32(f)), nil
	default:
		return nil, diag.Errorf(diag.NameError, "unknown method '%s' for math module", method)
	}
}

func moduleRand(method string, args []value.Value) (value.Value, error) {
	switch method {
	case "int":
		if err := checkArgs(args, 2, "rand.int"); err != nil {
			return nil, err
		}
		lo, err := argFloat(args, 0, "rand.int")
		if err != nil {
			return nil, err
		}
		hi, err := argFloat(args, 1, "rand.int")
		if err != nil {
			return nil, err
		}
		min, max := int32(lo), int32(hi)
		if min >= max {
			return nil, diag.Errorf(diag.TypeError, "rand.int: min must be less than max")
		}
		return value.IntVal(min + rand.Int31n(max-min)), nil
	case "float":
		return value.FloatVal(rand.Float64()), nil
	case "bool":
		return value.BoolVal(rand.Intn(2) == 1), nil
	default:
		return nil, diag.Errorf(diag.NameError, "unknown method '%s' for rand module", method)
	}
}

func moduleJSON(method string, args []value.Value) (value.Value, error) {
	switch method {
	case "parse":
		if err := checkArgs(args, 1, "json.parse"); err != nil {
			return nil, err
		}
		return jsonParse(args[0].String())
	case "stringify":
		if len(args) == 0 {
			return nil, diag.Errorf(diag.ArityError, "json.stringify expects at least 1 argument")
		}
		pretty := false
		if len(args) > 1 {
			pretty = value.Truthy(args[1])
		}
		s, err := jsonStringify(args[0], pretty)
		if err != nil {
			return nil, err
		}
		return value.StringVal(s), nil
	default:
		return nil, diag.Errorf(diag.NameError, "unknown method '%s' for json module", method)
	}
}
