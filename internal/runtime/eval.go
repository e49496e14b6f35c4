package runtime

import (
	"strconv"
	"strings"

	"rustcript/internal/diag"
	"rustcript/internal/lexer"
	"rustcript/internal/token"
	"rustcript/internal/value"
)

// evalCtx walks a token slice and evaluates it against the interpreter's
// live scope. Precedence, high to low: unary ! and -, then * / %, + -,
// comparisons, &&, ||; all binary operators are left-associative.
type evalCtx struct {
	in   *Interpreter
	toks []token.Token
	pos  int
}

// evalExpr evaluates one expression string against the current scope view.
func (in *Interpreter) evalExpr(src string) (value.Value, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	e := &evalCtx{in: in, toks: toks}
	v, err := e.parseOr()
	if err != nil {
		return nil, err
	}
	if e.cur().Kind != token.EOF {
		return nil, e.errorf("unexpected '%s' in expression", e.cur().Lexeme)
	}
	return v, nil
}

func (e *evalCtx) cur() token.Token  { return e.toks[e.pos] }
func (e *evalCtx) next() token.Token { t := e.toks[e.pos]; e.pos++; return t }

func (e *evalCtx) peekKind() token.Kind { return e.toks[e.pos].Kind }

func (e *evalCtx) peekAt(offset int) token.Kind {
	if e.pos+offset >= len(e.toks) {
		return token.EOF
	}
	return e.toks[e.pos+offset].Kind
}

func (e *evalCtx) expect(kind token.Kind) error {
	if e.peekKind() != kind {
		return e.errorf("expected '%s', found '%s'", kind, e.cur().Lexeme)
	}
	e.pos++
	return nil
}

func (e *evalCtx) errorf(format string, args ...interface{}) error {
	return diag.Errorf(diag.SyntaxError, format, args...)
}

// ---- precedence levels ----

func (e *evalCtx) parseOr() (value.Value, error) {
	return e.parseBinary(0)
}

// binaryLevels orders the operator tiers from lowest to highest binding.
var binaryLevels = [][]token.Kind{
	{token.OR},
	{token.AND},
	{token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE},
	{token.PLUS, token.MINUS},
	{token.STAR, token.SLASH, token.PERCENT},
}

func (e *evalCtx) parseBinary(level int) (value.Value, error) {
	if level >= len(binaryLevels) {
		return e.parseUnary()
	}

	left, err := e.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}

	for {
		op := e.peekKind()
		if !kindIn(op, binaryLevels[level]) {
			return left, nil
		}
		e.pos++
		right, err := e.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left, err = applyBinary(op, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func kindIn(k token.Kind, set []token.Kind) bool {
	for _, s := range set {
		if k == s {
			return true
		}
	}
	return false
}

func (e *evalCtx) parseUnary() (value.Value, error) {
	switch e.peekKind() {
	case token.BANG:
		e.pos++
		v, err := e.parseUnary()
		if err != nil {
			return nil, err
		}
		return value.BoolVal(!value.Truthy(v)), nil
	case token.MINUS:
		e.pos++
		v, err := e.parseUnary()
		if err != nil {
			return nil, err
		}
		switch n := v.(type) {
		case value.IntVal:
			return value.IntVal(-n), nil
		case value.FloatVal:
			return value.FloatVal(-n), nil
		default:
			return nil, diag.Errorf(diag.TypeError, "cannot negate %s", v.TypeName())
		}
	}
	return e.parsePostfix()
}

// ---- postfix access chains ----

func (e *evalCtx) parsePostfix() (value.Value, error) {
	v, err := e.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch e.peekKind() {
		case token.DOT:
			switch e.peekAt(1) {
			case token.IDENT:
				e.pos++
				field := e.next().Lexeme
				if e.peekKind() == token.LPAREN {
					args, aerr := e.parseCallArgs()
					if aerr != nil {
						return nil, aerr
					}
					v, err = e.in.callMethod(v, field, args)
				} else {
					v, err = accessField(v, field)
				}
			case token.INT:
				e.pos++
				idx := e.next().Lexeme
				n, _ := strconv.Atoi(idx)
				v, err = accessIndex(v, n)
			default:
				return nil, e.errorf("expected a field or index after '.'")
			}
			if err != nil {
				return nil, err
			}
		case token.LBRACKET:
			e.pos++
			key, err := e.parseOr()
			if err != nil {
				return nil, err
			}
			if err := e.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			v, err = accessDynamic(v, key)
			if err != nil {
				return nil, err
			}
		default:
			return v, nil
		}
	}
}

// ---- primaries ----

func (e *evalCtx) parsePrimary() (value.Value, error) {
	tok := e.cur()
	switch tok.Kind {
	case token.INT:
		e.pos++
		if i, err := strconv.ParseInt(tok.Lexeme, 10, 32); err == nil {
			return value.IntVal(i), nil
		}
		// Out of 32-bit range: fall back to float like the number parser.
		f, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, e.errorf("invalid number '%s'", tok.Lexeme)
		}
		return value.FloatVal(f), nil

	case token.FLOAT:
		e.pos++
		f, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, e.errorf("invalid number '%s'", tok.Lexeme)
		}
		return value.FloatVal(f), nil

	case token.STRING:
		e.pos++
		return value.StringVal(tok.Lexeme), nil

	case token.TRUE:
		e.pos++
		return value.BoolVal(true), nil
	case token.FALSE:
		e.pos++
		return value.BoolVal(false), nil

	case token.IDENT:
		return e.parseIdentPath()

	case token.LPAREN:
		return e.parseParen()

	case token.LBRACE:
		return e.parseBraceLiteral()

	case token.LBRACKET:
		return e.parseBracketVector()

	case token.EOF:
		return nil, e.errorf("unexpected end of expression")
	default:
		return nil, e.errorf("unexpected '%s' in expression", tok.Lexeme)
	}
}

// parseIdentPath reads a dotted identifier path and resolves it as a call,
// a variable (namespaced names are flat global keys), or an access chain
// rooted at the longest resolvable prefix.
func (e *evalCtx) parseIdentPath() (value.Value, error) {
	path := []string{e.next().Lexeme}
	for e.peekKind() == token.DOT && e.peekAt(1) == token.IDENT {
		e.pos += 2
		path = append(path, e.toks[e.pos-1].Lexeme)
	}

	if e.peekKind() == token.LPAREN {
		args, err := e.parseCallArgs()
		if err != nil {
			return nil, err
		}
		return e.in.callDotted(strings.Join(path, "."), args)
	}

	// Longest dotted prefix wins: `Service.STATUS` is a flat global key,
	// while `m.inner` is a map access.
	for k := len(path); k >= 1; k-- {
		name := strings.Join(path[:k], ".")
		root, ok := e.in.lookup(name)
		if !ok {
			continue
		}
		v := root
		var err error
		for _, field := range path[k:] {
			v, err = accessField(v, field)
			if err != nil {
				return nil, err
			}
		}
		return v, nil
	}

	// An unresolved bare name may still be a function reference.
	full := strings.Join(path, ".")
	if _, ok := e.in.prog.Labels[full]; ok {
		return value.FuncVal(full), nil
	}
	if key, ok := e.in.nsKey(full); ok {
		if _, ok := e.in.prog.Labels[key]; ok {
			return value.FuncVal(key), nil
		}
	}
	return nil, diag.Errorf(diag.NameError, "variable or function '%s' not found", full)
}

func (e *evalCtx) parseCallArgs() ([]value.Value, error) {
	if err := e.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var args []value.Value
	if e.peekKind() == token.RPAREN {
		e.pos++
		return args, nil
	}
	for {
		v, err := e.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, v)
		if e.peekKind() == token.COMMA {
			e.pos++
			continue
		}
		return args, e.expect(token.RPAREN)
	}
}

// parseParen reads (a, b, c) as a tuple; a single parenthesized expression
// without a comma is plain grouping.
func (e *evalCtx) parseParen() (value.Value, error) {
	if err := e.expect(token.LPAREN); err != nil {
		return nil, err
	}
	if e.peekKind() == token.RPAREN {
		e.pos++
		return &value.TupleVal{}, nil
	}

	first, err := e.parseOr()
	if err != nil {
		return nil, err
	}
	if e.peekKind() == token.RPAREN {
		e.pos++
		return first, nil
	}

	elements := []value.Value{first}
	for e.peekKind() == token.COMMA {
		e.pos++
		v, err := e.parseOr()
		if err != nil {
			return nil, err
		}
		elements = append(elements, v)
	}
	if err := e.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &value.TupleVal{Elements: elements}, nil
}

// parseBraceLiteral reads {…}: a hash map when the first element is a
// `key: value` pair, otherwise a vector.
func (e *evalCtx) parseBraceLiteral() (value.Value, error) {
	if err := e.expect(token.LBRACE); err != nil {
		return nil, err
	}
	if e.peekKind() == token.RBRACE {
		e.pos++
		return &value.VectorVal{}, nil
	}

	if e.isMapEntryNext() {
		m := value.NewMap()
		for {
			key, err := e.parseMapKey()
			if err != nil {
				return nil, err
			}
			if err := e.expect(token.COLON); err != nil {
				return nil, err
			}
			v, err := e.parseOr()
			if err != nil {
				return nil, err
			}
			m.Set(key, v)
			if e.peekKind() == token.COMMA {
				e.pos++
				continue
			}
			return m, e.expect(token.RBRACE)
		}
	}

	elements, err := e.parseElements(token.RBRACE)
	if err != nil {
		return nil, err
	}
	return &value.VectorVal{Elements: elements}, nil
}

// isMapEntryNext peeks for `key :` at the first position of a brace
// literal, which distinguishes maps from vectors.
func (e *evalCtx) isMapEntryNext() bool {
	k := e.peekKind()
	if k != token.STRING && k != token.IDENT && k != token.INT {
		return false
	}
	return e.peekAt(1) == token.COLON
}

func (e *evalCtx) parseMapKey() (string, error) {
	tok := e.cur()
	switch tok.Kind {
	case token.STRING, token.IDENT, token.INT:
		e.pos++
		return tok.Lexeme, nil
	default:
		return "", e.errorf("invalid map key '%s'", tok.Lexeme)
	}
}

func (e *evalCtx) parseBracketVector() (value.Value, error) {
	if err := e.expect(token.LBRACKET); err != nil {
		return nil, err
	}
	elements, err := e.parseElements(token.RBRACKET)
	if err != nil {
		return nil, err
	}
	return &value.VectorVal{Elements: elements}, nil
}

func (e *evalCtx) parseElements(closer token.Kind) ([]value.Value, error) {
	var elements []value.Value
	if e.peekKind() == closer {
		e.pos++
		return elements, nil
	}
	for {
		v, err := e.parseOr()
		if err != nil {
			return nil, err
		}
		elements = append(elements, v)
		if e.peekKind() == token.COMMA {
			e.pos++
			continue
		}
		return elements, e.expect(closer)
	}
}
