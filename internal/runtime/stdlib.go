package runtime

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rustcript/internal/diag"
	"rustcript/internal/value"
)

// checkArgs enforces an exact argument count.
func checkArgs(args []value.Value, count int, method string) error {
	if len(args) != count {
		return diag.Errorf(diag.ArityError, "%s expects %d arguments, got %d", method, count, len(args))
	}
	return nil
}

func argIndex(args []value.Value, i int, method string) (int, error) {
	f, ok := value.ToFloat(args[i])
	if !ok {
		return 0, diag.Errorf(diag.TypeError, "%s: index must be a number, got %s", method, args[i].TypeName())
	}
	return int(f), nil
}

// ---- vector methods ----

func methodVector(vec *value.VectorVal, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "push":
		if err := checkArgs(args, 1, "push"); err != nil {
			return nil, err
		}
		vec.Elements = append(vec.Elements, args[0])
		return value.NullVal{}, nil
	case "pop":
		if len(vec.Elements) == 0 {
			return nil, diag.Errorf(diag.IndexError, "cannot pop from an empty vector")
		}
		last := vec.Elements[len(vec.Elements)-1]
		vec.Elements = vec.Elements[:len(vec.Elements)-1]
		return last, nil
	case "len":
		return value.IntVal(int32(len(vec.Elements))), nil
	case "get":
		if err := checkArgs(args, 1, "get"); err != nil {
			return nil, err
		}
		idx, err := argIndex(args, 0, "get")
		if err != nil {
			return nil, err
		}
		return elementAt(vec.Elements, idx)
	case "remove":
		if err := checkArgs(args, 1, "remove"); err != nil {
			return nil, err
		}
		idx, err := argIndex(args, 0, "remove")
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(vec.Elements) {
			return nil, diag.Errorf(diag.IndexError, "index %d out of bounds (length %d)", idx, len(vec.Elements))
		}
		removed := vec.Elements[idx]
		vec.Elements = append(vec.Elements[:idx], vec.Elements[idx+1:]...)
		return removed, nil
	case "insert":
		if err := checkArgs(args, 2, "insert"); err != nil {
			return nil, err
		}
		idx, err := argIndex(args, 0, "insert")
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx > len(vec.Elements) {
			return nil, diag.Errorf(diag.IndexError, "index %d out of bounds (length %d)", idx, len(vec.Elements))
		}
		vec.Elements = append(vec.Elements[:idx], append([]value.Value{args[1]}, vec.Elements[idx:]...)...)
		return value.NullVal{}, nil
	case "clear":
		vec.Elements = nil
		return value.NullVal{}, nil
	case "join":
		if err := checkArgs(args, 1, "join"); err != nil {
			return nil, err
		}
		parts := make([]string, len(vec.Elements))
		for i, v := range vec.Elements {
			parts[i] = v.String()
		}
		return value.StringVal(strings.Join(parts, args[0].String())), nil
	case "shuffle":
		rand.Shuffle(len(vec.Elements), func(i, j int) {
			vec.Elements[i], vec.Elements[j] = vec.Elements[j], vec.Elements[i]
		})
		return value.NullVal{}, nil
	default:
		return nil, diag.Errorf(diag.NameError, "unknown method '%s' for vector", method)
	}
}

// ---- hashmap methods ----

func methodMap(m *value.MapVal, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "insert":
		if err := checkArgs(args, 2, "insert"); err != nil {
			return nil, err
		}
		m.Set(args[0].String(), args[1])
		return value.NullVal{}, nil
	case "remove":
		if err := checkArgs(args, 1, "remove"); err != nil {
			return nil, err
		}
		removed, ok := m.Delete(args[0].String())
		if !ok {
			return nil, diag.Errorf(diag.KeyError, "key '%s' not found", args[0].String())
		}
		return removed, nil
	case "get":
		if err := checkArgs(args, 1, "get"); err != nil {
			return nil, err
		}
		v, ok := m.Get(args[0].String())
		if !ok {
			return nil, diag.Errorf(diag.KeyError, "key '%s' not found", args[0].String())
		}
		return v, nil
	case "len":
		return value.IntVal(int32(m.Len())), nil
	case "contains":
		if err := checkArgs(args, 1, "contains"); err != nil {
			return nil, err
		}
		_, ok := m.Get(args[0].String())
		return value.BoolVal(ok), nil
	case "keys":
		keys := make([]value.Value, len(m.Keys))
		for i, k := range m.Keys {
			keys[i] = value.StringVal(k)
		}
		return &value.VectorVal{Elements: keys}, nil
	default:
		return nil, diag.Errorf(diag.NameError, "unknown method '%s' for hashmap", method)
	}
}

// ---- string methods ----

func methodString(s, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "len":
		return value.IntVal(int32(len([]rune(s)))), nil
	case "to_upper":
		return value.StringVal(strings.ToUpper(s)), nil
	case "to_lower":
		return value.StringVal(strings.ToLower(s)), nil
	case "trim":
		return value.StringVal(strings.TrimSpace(s)), nil
	case "trim_start":
		return value.StringVal(strings.TrimLeft(s, " \t\r\n")), nil
	case "trim_end":
		return value.StringVal(strings.TrimRight(s, " \t\r\n")), nil
	case "contains":
		if err := checkArgs(args, 1, "contains"); err != nil {
			return nil, err
		}
		return value.BoolVal(strings.Contains(s, args[0].String())), nil
	case "starts_with":
		if err := checkArgs(args, 1, "starts_with"); err != nil {
			return nil, err
		}
		return value.BoolVal(strings.HasPrefix(s, args[0].String())), nil
	case "ends_with":
		if err := checkArgs(args, 1, "ends_with"); err != nil {
			return nil, err
		}
		return value.BoolVal(strings.HasSuffix(s, args[0].String())), nil
	case "replace":
		if err := checkArgs(args, 2, "replace"); err != nil {
			return nil, err
		}
		return value.StringVal(strings.ReplaceAll(s, args[0].String(), args[1].String())), nil
	case "split":
		if err := checkArgs(args, 1, "split"); err != nil {
			return nil, err
		}
		parts := strings.Split(s, args[0].String())
		elements := make([]value.Value, len(parts))
		for i, part := range parts {
			elements[i] = value.StringVal(part)
		}
		return &value.VectorVal{Elements: elements}, nil
	case "index_of":
		if err := checkArgs(args, 1, "index_of"); err != nil {
			return nil, err
		}
		return value.IntVal(int32(strings.Index(s, args[0].String()))), nil
	case "substring":
		if err := checkArgs(args, 2, "substring"); err != nil {
			return nil, err
		}
		start, err := argIndex(args, 0, "substring")
		if err != nil {
			return nil, err
		}
		end, err := argIndex(args, 1, "substring")
		if err != nil {
			return nil, err
		}
		if start > end {
			return nil, diag.Errorf(diag.IndexError, "start index cannot be greater than end index")
		}
		runes := []rune(s)
		if start < 0 {
			start = 0
		}
		if end > len(runes) {
			end = len(runes)
		}
		if start > len(runes) {
			start = len(runes)
		}
		return value.StringVal(string(runes[start:end])), nil
	case "to_int":
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return nil, diag.Errorf(diag.TypeError, "cannot parse '%s' as an integer", s)
		}
		return value.IntVal(int32(i)), nil
	case "to_float":
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, diag.Errorf(diag.TypeError, "cannot parse '%s' as a float", s)
		}
		return value.FloatVal(f), nil
	case "is_match", "find_all", "regex_replace":
		return methodRegex(s, method, args)
	default:
		return nil, diag.Errorf(diag.NameError, "unknown method '%s' for string", method)
	}
}

func methodRegex(s, method string, args []value.Value) (value.Value, error) {
	wantArgs := 1
	if method == "regex_replace" {
		wantArgs = 2
	}
	if err := checkArgs(args, wantArgs, method); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(args[0].String())
	if err != nil {
		return nil, diag.Errorf(diag.TypeError, "invalid regex: %v", err)
	}

	switch method {
	case "is_match":
		return value.BoolVal(re.MatchString(s)), nil
	case "find_all":
		matches := re.FindAllString(s, -1)
		elements := make([]value.Value, len(matches))
		for i, m := range matches {
			elements[i] = value.StringVal(m)
		}
		return &value.VectorVal{Elements: elements}, nil
	default: // regex_replace
		return value.StringVal(re.ReplaceAllString(s, args[1].String())), nil
	}
}

// ---- time methods ----

func methodTime(t value.TimeVal, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "elapsed":
		return value.FloatVal(time.Since(t.At).Seconds()), nil
	case "timestamp":
		return value.IntVal(int32(t.At.Unix())), nil
	case "date":
		return value.StringVal(t.At.Format("2006-01-02")), nil
	case "time":
		return value.StringVal(t.At.Format("15:04:05")), nil
	default:
		return nil, diag.Errorf(diag.NameError, "unknown method '%s' for time", method)
	}
}
