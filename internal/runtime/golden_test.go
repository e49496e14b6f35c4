package runtime

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rustcript/internal/parser"
)

// goldenTest runs a .rc file and compares its printed output to a
// .expected file.
func goldenTest(t *testing.T, name string) {
	t.Helper()

	rcPath := filepath.Join("..", "..", "testdata", name+".rc")
	expectedPath := filepath.Join("..", "..", "testdata", name+".expected")

	source, err := os.ReadFile(rcPath)
	if err != nil {
		t.Fatalf("failed to read %s: %v", rcPath, err)
	}
	expected, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("failed to read %s: %v", expectedPath, err)
	}

	prog, err := parser.ParseSource(string(source), name+".rc")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	interp := New(prog)
	handler := &testHandler{}
	if err := interp.Run(handler); err != nil {
		t.Fatalf("runtime error: %v", err)
	}

	got := strings.Join(handler.output, "\n")
	want := strings.TrimRight(string(expected), "\n")

	if got != want {
		gotLines := strings.Split(got, "\n")
		wantLines := strings.Split(want, "\n")
		t.Errorf("output mismatch for %s", name)
		max := len(wantLines)
		if len(gotLines) > max {
			max = len(gotLines)
		}
		for i := 0; i < max; i++ {
			var w, g string
			if i < len(wantLines) {
				w = wantLines[i]
			} else {
				w = "<missing>"
			}
			if i < len(gotLines) {
				g = gotLines[i]
			} else {
				g = "<missing>"
			}
			prefix := "  "
			if w != g {
				prefix = "! "
			}
			t.Logf("%sline %d: expected=%q got=%q", prefix, i+1, w, g)
		}
	}
}

func TestGoldenFizzbuzz(t *testing.T) {
	goldenTest(t, "golden_fizzbuzz")
}

func TestGoldenCollections(t *testing.T) {
	goldenTest(t, "golden_collections")
}

func TestGoldenFunctions(t *testing.T) {
	goldenTest(t, "golden_functions")
}

func TestGoldenErrors(t *testing.T) {
	goldenTest(t, "golden_errors")
}
