package runtime

import (
	"strconv"
	"strings"

	"rustcript/internal/diag"
	"rustcript/internal/lexer"
	"rustcript/internal/token"
	"rustcript/internal/value"
)

// ---- read access ----

// accessField reads a named segment: a map key or a user-data property.
func accessField(v value.Value, field string) (value.Value, error) {
	switch obj := v.(type) {
	case *value.MapVal:
		if val, ok := obj.Get(field); ok {
			return val, nil
		}
		return nil, diag.Errorf(diag.KeyError, "key '%s' not found", field)
	case *value.UserDataVal:
		if val, ok := obj.Get(field); ok {
			return val, nil
		}
		return nil, diag.Errorf(diag.KeyError, "property '%s' not found on %s", field, obj.TypeName())
	case *value.VectorVal, *value.TupleVal:
		// Numeric segments arrive through accessIndex; a name is an error.
		if n, err := strconv.Atoi(field); err == nil {
			return accessIndex(v, n)
		}
		return nil, diag.Errorf(diag.TypeError, "%s has no field '%s'", v.TypeName(), field)
	default:
		return nil, diag.Errorf(diag.TypeError, "cannot access field '%s' on %s", field, v.TypeName())
	}
}

// accessIndex reads a positional segment (`.0`, `.5`).
func accessIndex(v value.Value, idx int) (value.Value, error) {
	switch obj := v.(type) {
	case *value.VectorVal:
		return elementAt(obj.Elements, idx)
	case *value.TupleVal:
		return elementAt(obj.Elements, idx)
	case *value.MapVal:
		return accessField(obj, strconv.Itoa(idx))
	case *value.UserDataVal:
		return accessField(obj, strconv.Itoa(idx))
	default:
		return nil, diag.Errorf(diag.TypeError, "cannot index %s", v.TypeName())
	}
}

// accessDynamic reads a bracketed segment with an evaluated key.
func accessDynamic(v value.Value, key value.Value) (value.Value, error) {
	switch v.(type) {
	case *value.VectorVal, *value.TupleVal:
		idx, ok := value.ToFloat(key)
		if !ok {
			return nil, diag.Errorf(diag.TypeError, "index must be a number, got %s", key.TypeName())
		}
		return accessIndex(v, int(idx))
	case *value.MapVal, *value.UserDataVal:
		return accessField(v, key.String())
	default:
		return nil, diag.Errorf(diag.TypeError, "cannot index %s", v.TypeName())
	}
}

func elementAt(elements []value.Value, idx int) (value.Value, error) {
	if idx < 0 || idx >= len(elements) {
		return nil, diag.Errorf(diag.IndexError, "index %d out of bounds (length %d)", idx, len(elements))
	}
	return elements[idx], nil
}

// ---- write access ----

// writeChain resolves the parent of an access chain like a.b[i].c and
// mutates its final segment. Intermediate containers must already exist.
func (in *Interpreter) writeChain(target string, v value.Value) error {
	toks, err := lexer.Tokenize(target)
	if err != nil {
		return err
	}
	e := &evalCtx{in: in, toks: toks}

	if e.peekKind() != token.IDENT {
		return diag.Errorf(diag.TypeError, "invalid assignment target '%s'", target)
	}
	path := []string{e.next().Lexeme}
	for e.peekKind() == token.DOT && e.peekAt(1) == token.IDENT {
		e.pos += 2
		path = append(path, e.toks[e.pos-1].Lexeme)
	}

	// Root resolution mirrors reads: the longest dotted prefix that names
	// a variable wins; the remaining names become chain segments.
	var root value.Value
	var keys []value.Value
	found := false
	for k := len(path); k >= 1; k-- {
		if val, ok := in.lookup(strings.Join(path[:k], ".")); ok {
			root = val
			for _, p := range path[k:] {
				keys = append(keys, value.StringVal(p))
			}
			found = true
			break
		}
	}
	if !found {
		return diag.Errorf(diag.NameError, "variable '%s' not found", path[0])
	}

	for {
		switch e.peekKind() {
		case token.DOT:
			switch e.peekAt(1) {
			case token.IDENT:
				e.pos++
				keys = append(keys, value.StringVal(e.next().Lexeme))
			case token.INT:
				e.pos++
				n, _ := strconv.ParseInt(e.next().Lexeme, 10, 32)
				keys = append(keys, value.IntVal(n))
			default:
				return diag.Errorf(diag.SyntaxError, "expected a field or index after '.'")
			}
		case token.LBRACKET:
			e.pos++
			key, err := e.parseOr()
			if err != nil {
				return err
			}
			if err := e.expect(token.RBRACKET); err != nil {
				return err
			}
			keys = append(keys, key)
		case token.EOF:
			if len(keys) == 0 {
				return diag.Errorf(diag.TypeError, "invalid assignment target '%s'", target)
			}
			return mutateChain(root, keys, v)
		default:
			return diag.Errorf(diag.SyntaxError, "unexpected '%s' in assignment target", e.cur().Lexeme)
		}
	}
}

// mutateChain walks to the parent container and replaces the last segment.
func mutateChain(cur value.Value, keys []value.Value, v value.Value) error {
	for i := 0; i < len(keys)-1; i++ {
		child, err := accessDynamic(cur, keys[i])
		if err != nil {
			return err
		}
		cur = child
	}

	last := keys[len(keys)-1]
	switch obj := cur.(type) {
	case *value.VectorVal:
		return setElement(obj.Elements, last, v)
	case *value.TupleVal:
		return setElement(obj.Elements, last, v)
	case *value.MapVal:
		obj.Set(last.String(), v)
		return nil
	case *value.UserDataVal:
		if err := obj.Set(last.String(), v); err != nil {
			return diag.Wrap(diag.TypeError, err)
		}
		return nil
	default:
		return diag.Errorf(diag.TypeError, "cannot assign into %s", cur.TypeName())
	}
}

func setElement(elements []value.Value, key value.Value, v value.Value) error {
	f, ok := value.ToFloat(key)
	if !ok {
		return diag.Errorf(diag.TypeError, "index must be a number, got %s", key.TypeName())
	}
	idx := int(f)
	if idx < 0 || idx >= len(elements) {
		return diag.Errorf(diag.IndexError, "index %d out of bounds (length %d)", idx, len(elements))
	}
	elements[idx] = v
	return nil
}
