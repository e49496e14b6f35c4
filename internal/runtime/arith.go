package runtime

import (
	"math"
	"time"

	"rustcript/internal/diag"
	"rustcript/internal/token"
	"rustcript/internal/value"
)

// applyBinary evaluates a binary operator over two values with the
// language's coercion rules: int op int stays int (with overflow checks),
// mixed numerics promote to float, `+` with a string operand concatenates,
// and Time supports offset and difference arithmetic.
func applyBinary(op token.Kind, left, right value.Value) (value.Value, error) {
	if op.IsComparison() {
		return compareValues(op, left, right)
	}
	if op == token.AND || op == token.OR {
		l := value.Truthy(left)
		r := value.Truthy(right)
		if op == token.AND {
			return value.BoolVal(l && r), nil
		}
		return value.BoolVal(l || r), nil
	}

	// Time offsets: time + seconds, time - seconds, time - time.
	if lt, ok := left.(value.TimeVal); ok {
		switch op {
		case token.PLUS:
			secs, ok := value.ToFloat(right)
			if !ok {
				return nil, diag.Errorf(diag.TypeError, "can only add numbers (seconds) to time")
			}
			return value.TimeVal{At: lt.At.Add(time.Duration(secs * float64(time.Second)))}, nil
		case token.MINUS:
			if rt, ok := right.(value.TimeVal); ok {
				return value.FloatVal(lt.At.Sub(rt.At).Seconds()), nil
			}
			secs, ok := value.ToFloat(right)
			if !ok {
				return nil, diag.Errorf(diag.TypeError, "can only subtract numbers (seconds) from time")
			}
			return value.TimeVal{At: lt.At.Add(-time.Duration(secs * float64(time.Second)))}, nil
		}
	}

	// String concatenation: either operand being a string stringifies the
	// other side.
	if op == token.PLUS {
		_, ls := left.(value.StringVal)
		_, rs := right.(value.StringVal)
		if ls || rs {
			return value.StringVal(left.String() + right.String()), nil
		}
	}
	if _, ok := left.(value.StringVal); ok {
		return nil, diag.Errorf(diag.TypeError, "strings do not support operator '%s'", op)
	}

	li, lInt := left.(value.IntVal)
	ri, rInt := right.(value.IntVal)
	if lInt && rInt {
		return intArith(op, int64(li), int64(ri))
	}

	lf, lok := value.ToFloat(left)
	rf, rok := value.ToFloat(right)
	if !lok || !rok {
		return nil, diag.Errorf(diag.TypeError, "cannot apply '%s' to %s and %s",
			op, left.TypeName(), right.TypeName())
	}

	switch op {
	case token.PLUS:
		return value.FloatVal(lf + rf), nil
	case token.MINUS:
		return value.FloatVal(lf - rf), nil
	case token.STAR:
		return value.FloatVal(lf * rf), nil
	case token.SLASH:
		// IEEE semantics: float division by zero yields Inf/NaN.
		return value.FloatVal(lf / rf), nil
	case token.PERCENT:
		return value.FloatVal(math.Mod(lf, rf)), nil
	default:
		return nil, diag.Errorf(diag.TypeError, "unknown operator '%s'", op)
	}
}

func intArith(op token.Kind, l, r int64) (value.Value, error) {
	checked := func(v int64) (value.Value, error) {
		if v > math.MaxInt32 || v < math.MinInt32 {
			return nil, diag.Errorf(diag.ArithmeticError, "integer overflow")
		}
		return value.IntVal(int32(v)), nil
	}

	switch op {
	case token.PLUS:
		return checked(l + r)
	case token.MINUS:
		return checked(l - r)
	case token.STAR:
		return checked(l * r)
	case token.SLASH:
		if r == 0 {
			return nil, diag.Errorf(diag.ArithmeticError, "division by zero")
		}
		return checked(l / r)
	case token.PERCENT:
		if r == 0 {
			return nil, diag.Errorf(diag.ArithmeticError, "modulo by zero")
		}
		return value.IntVal(int32(l % r)), nil
	default:
		return nil, diag.Errorf(diag.TypeError, "unknown operator '%s'", op)
	}
}

// compareValues evaluates ==, !=, and the ordered comparisons. Equality
// works across all variants; ordering is defined for numbers (with float
// promotion), strings (bytewise), and times.
func compareValues(op token.Kind, left, right value.Value) (value.Value, error) {
	switch op {
	case token.EQ:
		return value.BoolVal(value.Equal(left, right)), nil
	case token.NEQ:
		return value.BoolVal(!value.Equal(left, right)), nil
	}

	if ls, ok := left.(value.StringVal); ok {
		if rs, ok := right.(value.StringVal); ok {
			return orderedResult(op, string(ls) < string(rs), string(ls) <= string(rs))
		}
	}
	if lt, ok := left.(value.TimeVal); ok {
		if rt, ok := right.(value.TimeVal); ok {
			return orderedResult(op, lt.At.Before(rt.At), !lt.At.After(rt.At))
		}
	}

	lf, lok := value.ToFloat(left)
	rf, rok := value.ToFloat(right)
	if !lok || !rok {
		return nil, diag.Errorf(diag.TypeError, "cannot compare %s and %s",
			left.TypeName(), right.TypeName())
	}
	return orderedResult(op, lf < rf, lf <= rf)
}

func orderedResult(op token.Kind, lt, lte bool) (value.Value, error) {
	switch op {
	case token.LT:
		return value.BoolVal(lt), nil
	case token.LTE:
		return value.BoolVal(lte), nil
	case token.GT:
		return value.BoolVal(!lte), nil
	case token.GTE:
		return value.BoolVal(!lt), nil
	default:
		return nil, diag.Errorf(diag.TypeError, "unknown comparison '%s'", op)
	}
}

// applyAssignOp folds a compound assignment operator into its binary form.
func applyAssignOp(current value.Value, op string, operand value.Value) (value.Value, error) {
	switch op {
	case "=":
		return operand, nil
	case "+=":
		return applyBinary(token.PLUS, current, operand)
	case "-=":
		return applyBinary(token.MINUS, current, operand)
	case "*=":
		return applyBinary(token.STAR, current, operand)
	case "/=":
		return applyBinary(token.SLASH, current, operand)
	case "%=":
		return applyBinary(token.PERCENT, current, operand)
	default:
		return nil, diag.Errorf(diag.TypeError, "unknown assignment operator '%s'", op)
	}
}
