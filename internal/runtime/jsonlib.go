package runtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"rustcript/internal/diag"
	"rustcript/internal/value"
)

// jsonParse decodes JSON text into script values. Objects are decoded
// through the token stream so key order is preserved in the resulting
// hashmap.
func jsonParse(s string) (value.Value, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, diag.Errorf(diag.TypeError, "json parse error: %v", err)
	}
	if dec.More() {
		return nil, diag.Errorf(diag.TypeError, "json parse error: trailing data")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (value.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeJSONToken(dec, tok)
}

func decodeJSONToken(dec *json.Decoder, tok json.Token) (value.Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := value.NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string")
				}
				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, v)
			}
			if _, err := dec.Token(); err != nil { // closing '}'
				return nil, err
			}
			return m, nil
		case '[':
			vec := &value.VectorVal{}
			for dec.More() {
				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				vec.Elements = append(vec.Elements, v)
			}
			if _, err := dec.Token(); err != nil { // closing ']'
				return nil, err
			}
			return vec, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	case string:
		return value.StringVal(t), nil
	case bool:
		return value.BoolVal(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil && i >= math.MinInt32 && i <= math.MaxInt32 {
			return value.IntVal(int32(i)), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return value.FloatVal(f), nil
	case nil:
		return value.NullVal{}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

// jsonStringify renders a script value as JSON, preserving hashmap key
// order. Infinite and NaN floats are not representable.
func jsonStringify(v value.Value, pretty bool) (string, error) {
	var b strings.Builder
	if err := writeJSON(&b, v, pretty, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeJSON(b *strings.Builder, v value.Value, pretty bool, depth int) error {
	switch val := v.(type) {
	case value.NullVal:
		b.WriteString("null")
	case value.BoolVal:
		b.WriteString(strconv.FormatBool(bool(val)))
	case value.IntVal:
		b.WriteString(strconv.FormatInt(int64(val), 10))
	case value.FloatVal:
		f := float64(val)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return diag.Errorf(diag.TypeError, "infinite or NaN floats cannot be serialized to JSON")
		}
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case value.StringVal:
		return writeJSONString(b, string(val))
	case value.TimeVal:
		return writeJSONString(b, val.At.Format("2006-01-02T15:04:05Z07:00"))
	case value.FuncVal, *value.UserDataVal:
		return writeJSONString(b, v.String())
	case *value.TupleVal:
		return writeJSONArray(b, val.Elements, pretty, depth)
	case *value.VectorVal:
		return writeJSONArray(b, val.Elements, pretty, depth)
	case *value.MapVal:
		if val.Len() == 0 {
			b.WriteString("{}")
			return nil
		}
		b.WriteByte('{')
		for i, k := range val.Keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeIndent(b, pretty, depth+1)
			if err := writeJSONString(b, k); err != nil {
				return err
			}
			b.WriteByte(':')
			if pretty {
				b.WriteByte(' ')
			}
			if err := writeJSON(b, val.Values[k], pretty, depth+1); err != nil {
				return err
			}
		}
		writeIndent(b, pretty, depth)
		b.WriteByte('}')
	default:
		return diag.Errorf(diag.TypeError, "cannot serialize %s to JSON", v.TypeName())
	}
	return nil
}

func writeJSONArray(b *strings.Builder, elements []value.Value, pretty bool, depth int) error {
	if len(elements) == 0 {
		b.WriteString("[]")
		return nil
	}
	b.WriteByte('[')
	for i, elem := range elements {
		if i > 0 {
			b.WriteByte(',')
		}
		writeIndent(b, pretty, depth+1)
		if err := writeJSON(b, elem, pretty, depth+1); err != nil {
			return err
		}
	}
	writeIndent(b, pretty, depth)
	b.WriteByte(']')
	return nil
}

func writeIndent(b *strings.Builder, pretty bool, depth int) {
	if !pretty {
		return
	}
	b.WriteByte('\n')
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func writeJSONString(b *strings.Builder, s string) error {
	encoded, err := json.Marshal(s)
	if err != nil {
		return diag.Errorf(diag.TypeError, "json stringify error: %v", err)
	}
	b.Write(encoded)
	return nil
}
