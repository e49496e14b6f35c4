// Package importer resolves import directives by recursively inlining the
// imported files into one unified source string.
//
// Each unified line carries a (path, line) location so runtime errors report
// positions in the original files. Re-importing an already-loaded file
// expands to nothing, which makes imports idempotent and breaks cycles.
package importer

import (
	"os"
	"path/filepath"
	"strings"

	"rustcript/internal/diag"
	"rustcript/internal/span"
)

// Loader reads the source text behind an import path. The importer resolves
// relative paths against the importing file's directory before calling it.
type Loader func(path string) (string, error)

// Resolve inlines the imports of the entry file read from disk. Paths are
// canonicalized (symlinks followed) for cycle detection.
func Resolve(entryPath string) (string, []span.Loc, error) {
	load := func(path string) (string, error) {
		data, err := os.ReadFile(path)
		return string(data), err
	}
	return ResolveWith(load, canonicalOS, entryPath)
}

// ResolveWith inlines imports using the given loader and canonicalizer;
// tests and embedders supply in-memory loaders.
func ResolveWith(load Loader, canonical func(path string) (string, error), entryPath string) (string, []span.Loc, error) {
	r := &resolver{
		load:      load,
		canonical: canonical,
		visited:   make(map[string]bool),
	}

	canon, err := canonical(entryPath)
	if err != nil {
		return "", nil, diag.Errorf(diag.IOError, "entry file not found: %s", entryPath)
	}

	lines, err := r.expand(canon)
	if err != nil {
		return "", nil, err
	}

	var source strings.Builder
	table := make([]span.Loc, len(lines))
	for i, line := range lines {
		if i > 0 {
			source.WriteByte('\n')
		}
		source.WriteString(line.text)
		table[i] = line.loc
	}
	return source.String(), table, nil
}

func canonicalOS(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	if _, err := os.Stat(abs); err != nil {
		return "", err
	}
	return abs, nil
}

type resolver struct {
	load      Loader
	canonical func(path string) (string, error)
	visited   map[string]bool
}

type unifiedLine struct {
	text string
	loc  span.Loc
}

func (r *resolver) expand(path string) ([]unifiedLine, error) {
	if r.visited[path] {
		return nil, nil
	}
	r.visited[path] = true

	content, err := r.load(path)
	if err != nil {
		return nil, diag.Errorf(diag.IOError, "failed to read %s: %v", path, err)
	}

	var out []unifiedLine
	for i, line := range strings.Split(content, "\n") {
		loc := span.Loc{Path: path, Line: i + 1}

		rel, alias, ok := parseImportLine(line)
		if !ok {
			out = append(out, unifiedLine{line, loc})
			continue
		}

		target := rel
		if !filepath.IsAbs(rel) {
			target = filepath.Join(filepath.Dir(path), rel)
		}
		canon, err := r.canonical(target)
		if err != nil {
			return nil, diag.Wrap(diag.IOError,
				diag.Errorf(diag.IOError, "import not found: '%s'", rel)).At(loc)
		}

		imported, err := r.expand(canon)
		if err != nil {
			return nil, err
		}

		if alias != "" {
			// The module wrapper lines belong to the importing file so a
			// bracket mismatch points at the import directive.
			out = append(out, unifiedLine{"module " + alias + " [", loc})
			out = append(out, imported...)
			out = append(out, unifiedLine{"]", loc})
		} else {
			out = append(out, imported...)
		}
	}
	return out, nil
}

// parseImportLine recognizes `import 'path'` and `import 'path' as NS`,
// tolerating the legacy `import=` spelling. It reports false for anything
// else, including commented-out imports.
func parseImportLine(line string) (path, alias string, ok bool) {
	trimmed := stripComment(line)

	var rest string
	switch {
	case strings.HasPrefix(trimmed, "import="):
		rest = strings.TrimSpace(trimmed[len("import="):])
	case strings.HasPrefix(trimmed, "import ") || trimmed == "import":
		rest = strings.TrimSpace(trimmed[len("import"):])
	default:
		return "", "", false
	}
	rest = strings.TrimPrefix(rest, "=")
	rest = strings.TrimSpace(rest)

	if idx := strings.LastIndex(rest, " as "); idx >= 0 {
		candidate := strings.TrimSpace(rest[idx+4:])
		if isAliasName(candidate) {
			alias = candidate
			rest = strings.TrimSpace(rest[:idx])
		}
	}

	if len(rest) >= 2 && rest[0] == '\'' && rest[len(rest)-1] == '\'' {
		return rest[1 : len(rest)-1], alias, true
	}
	return "", "", false
}

func isAliasName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		ok := ch == '_' ||
			(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9')
		if !ok {
			return false
		}
	}
	return true
}

// stripComment removes a trailing # comment, honoring single quotes.
func stripComment(line string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\'':
			inQuote = !inQuote
		case '#':
			if !inQuote {
				return strings.TrimSpace(line[:i])
			}
		}
	}
	return strings.TrimSpace(line)
}
