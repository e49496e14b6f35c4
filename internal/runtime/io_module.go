//go:build !no_file_io

package runtime

import (
	"os"

	"rustcript/internal/diag"
	"rustcript/internal/value"
)

// callIO dispatches the io module. Every operation consults its permission
// bit and the sandbox before touching the filesystem.
func (s *Sandbox) callIO(method string, args []value.Value) (value.Value, error) {
	switch method {
	case "write":
		if err := s.requirePerm(s.Perms.Write, "write"); err != nil {
			return nil, err
		}
		path, content, err := writeArgs(args, "write")
		if err != nil {
			return nil, err
		}
		target, err := s.resolvePath(path)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			return nil, diag.Errorf(diag.IOError, "failed to write file: %v", err)
		}
		return value.BoolVal(true), nil

	case "append":
		if err := s.requirePerm(s.Perms.Write, "write"); err != nil {
			return nil, err
		}
		path, content, err := writeArgs(args, "append")
		if err != nil {
			return nil, err
		}
		target, err := s.resolvePath(path)
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, diag.Errorf(diag.IOError, "failed to open file for appending: %v", err)
		}
		defer f.Close()
		if _, err := f.WriteString(content); err != nil {
			return nil, diag.Errorf(diag.IOError, "failed to append to file: %v", err)
		}
		return value.BoolVal(true), nil

	case "read":
		if err := s.requirePerm(s.Perms.Read, "read"); err != nil {
			return nil, err
		}
		path, err := filenameArg(args, "read")
		if err != nil {
			return nil, err
		}
		target, err := s.resolvePath(path)
		if err != nil {
			return nil, err
		}
		canon, err := s.checkContained(target)
		if err != nil {
			return nil, err
		}
		content, err := os.ReadFile(canon)
		if err != nil {
			return nil, diag.Errorf(diag.IOError, "failed to read file: %v", err)
		}
		return value.StringVal(content), nil

	case "exists":
		if err := s.requirePerm(s.Perms.Read, "read"); err != nil {
			return nil, err
		}
		path, err := filenameArg(args, "exists")
		if err != nil {
			return nil, err
		}
		target, err := s.resolvePath(path)
		if err != nil {
			// Containment failures report "does not exist" rather than
			// leaking what lies outside the sandbox.
			return value.BoolVal(false), nil
		}
		if _, statErr := os.Stat(target); statErr != nil {
			return value.BoolVal(false), nil
		}
		if _, err := s.checkContained(target); err != nil {
			return value.BoolVal(false), nil
		}
		return value.BoolVal(true), nil

	case "delete":
		if err := s.requirePerm(s.Perms.Delete, "delete"); err != nil {
			return nil, err
		}
		path, err := filenameArg(args, "delete")
		if err != nil {
			return nil, err
		}
		target, err := s.resolvePath(path)
		if err != nil {
			return nil, err
		}
		canon, err := s.checkContained(target)
		if err != nil {
			return nil, err
		}
		if err := os.Remove(canon); err != nil {
			return nil, diag.Errorf(diag.IOError, "failed to delete file: %v", err)
		}
		return value.BoolVal(true), nil

	default:
		return nil, diag.Errorf(diag.NameError, "unknown method '%s' for io module", method)
	}
}

func writeArgs(args []value.Value, method string) (string, string, error) {
	if len(args) != 2 {
		return "", "", diag.Errorf(diag.ArityError, "io.%s expects 2 arguments (filename, content)", method)
	}
	return args[0].String(), args[1].String(), nil
}

func filenameArg(args []value.Value, method string) (string, error) {
	if len(args) != 1 {
		return "", diag.Errorf(diag.ArityError, "io.%s expects 1 argument (filename)", method)
	}
	return args[0].String(), nil
}
