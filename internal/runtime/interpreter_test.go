package runtime

import (
	"errors"
	"strings"
	"testing"

	"rustcript/internal/diag"
	"rustcript/internal/parser"
	"rustcript/internal/value"
)

// testHandler captures output instead of printing to the console.
type testHandler struct {
	output   []string
	inputs   []string
	commands []string
}

func (h *testHandler) OnPrint(text string) {
	h.output = append(h.output, text)
}

func (h *testHandler) OnInput(prompt string) string {
	if len(h.inputs) == 0 {
		return "test_input"
	}
	next := h.inputs[0]
	h.inputs = h.inputs[1:]
	return next
}

func (h *testHandler) OnCommand(name string, args []string) (bool, error) {
	h.commands = append(h.commands, name+" "+strings.Join(args, " "))
	switch name {
	case "wait", "beep":
		return true, nil
	case "boom":
		return false, errors.New("host refused")
	default:
		return false, nil
	}
}

// runSource parses and runs a script, failing the test on any error.
func runSource(t *testing.T, source string) (*Interpreter, *testHandler) {
	t.Helper()
	interp, handler, err := tryRunSource(source)
	if err != nil {
		t.Fatalf("script failed: %v", err)
	}
	return interp, handler
}

func tryRunSource(source string) (*Interpreter, *testHandler, error) {
	prog, err := parser.ParseSource(source, "test.rc")
	if err != nil {
		return nil, nil, err
	}
	interp := New(prog)
	handler := &testHandler{}
	err = interp.Run(handler)
	return interp, handler, err
}

func wantOutput(t *testing.T, handler *testHandler, want ...string) {
	t.Helper()
	if len(handler.output) != len(want) {
		t.Fatalf("output length mismatch: got %q, want %q", handler.output, want)
	}
	for i := range want {
		if handler.output[i] != want[i] {
			t.Errorf("output[%d] = %q, want %q", i, handler.output[i], want[i])
		}
	}
}

// ---- arithmetic and assignment ----

func TestArithmeticAndInterpolation(t *testing.T) {
	_, handler := runSource(t, `
a 10 + 5
print 'a={a}'
`)
	wantOutput(t, handler, "a=15")
}

func TestAssignmentForms(t *testing.T) {
	interp, _ := runSource(t, `
x = 2
x += 3
y = x * 4
z 1 + 2 * 3
neg = -7
s = 'ab' + 1
f = 10 / 4.0
`)
	cases := []struct {
		name string
		want value.Value
	}{
		{"x", value.IntVal(5)},
		{"y", value.IntVal(20)},
		{"z", value.IntVal(7)},
		{"neg", value.IntVal(-7)},
		{"s", value.StringVal("ab1")},
		{"f", value.FloatVal(2.5)},
	}
	for _, tc := range cases {
		got, ok := interp.GetValue(tc.name)
		if !ok {
			t.Fatalf("variable %s not found", tc.name)
		}
		if !value.Equal(got, tc.want) {
			t.Errorf("%s = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestIntegerDivisionByZero(t *testing.T) {
	_, _, err := tryRunSource(`x = 1 / 0`)
	wantKind(t, err, diag.ArithmeticError)
}

func TestFloatDivisionByZeroIsInf(t *testing.T) {
	interp, _ := runSource(t, `x = 1.0 / 0.0`)
	got, _ := interp.GetValue("x")
	f, ok := got.(value.FloatVal)
	if !ok || float64(f) <= 0 {
		t.Fatalf("expected +Inf, got %s", got)
	}
}

func TestIntegerOverflow(t *testing.T) {
	_, _, err := tryRunSource(`
x = 2147483647
x += 1
`)
	wantKind(t, err, diag.ArithmeticError)
}

// ---- control flow ----

func TestIfElseChain(t *testing.T) {
	source := `
x = %VAL%
if x == 1 [
  print 'one'
] else_if x == 2 [
  print 'two'
] else [
  print 'other'
]
print 'done'
`
	cases := map[string]string{"1": "one", "2": "two", "9": "other"}
	for val, want := range cases {
		_, handler, err := tryRunSource(strings.ReplaceAll(source, "%VAL%", val))
		if err != nil {
			t.Fatalf("x=%s: %v", val, err)
		}
		wantOutput(t, handler, want, "done")
	}
}

func TestTakenBranchSkipsSiblings(t *testing.T) {
	// A true branch must not fall into the next else_if condition, even
	// when that condition is also true.
	_, handler := runSource(t, `
x = 1
if x == 1 [
  print 'first'
] else_if x == 1 [
  print 'second'
]
`)
	wantOutput(t, handler, "first")
}

func TestWhileLoop(t *testing.T) {
	interp, _ := runSource(t, `
i = 0
total = 0
while i < 5 [
  total += i
  i += 1
]
`)
	got, _ := interp.GetValue("total")
	if !value.Equal(got, value.IntVal(10)) {
		t.Errorf("total = %s, want 10", got)
	}
}

func TestForRangeIsHalfOpen(t *testing.T) {
	cases := []struct {
		start, end string
		iterations int32
	}{
		{"0", "5", 5},
		{"2", "5", 3},
		{"5", "5", 0},
		{"7", "5", 0},
	}
	for _, tc := range cases {
		interp, _, err := tryRunSource(`
n = 0
for i ` + tc.start + ` ` + tc.end + ` [
  n += 1
]
`)
		if err != nil {
			t.Fatalf("for %s %s: %v", tc.start, tc.end, err)
		}
		got, _ := interp.GetValue("n")
		if !value.Equal(got, value.IntVal(tc.iterations)) {
			t.Errorf("for %s %s ran %s times, want %d", tc.start, tc.end, got, tc.iterations)
		}
	}
}

func TestLoopAndBreak(t *testing.T) {
	_, handler := runSource(t, `
i = 0
loop [
  i += 1
  if i == 3 [
    break
  ]
]
print '{i}'
`)
	wantOutput(t, handler, "3")
}

func TestNestedLoopBreakIsInnermost(t *testing.T) {
	interp, _ := runSource(t, `
count = 0
for i 0 3 [
  loop [
    count += 1
    break
  ]
]
`)
	got, _ := interp.GetValue("count")
	if !value.Equal(got, value.IntVal(3)) {
		t.Errorf("count = %s, want 3", got)
	}
}

func TestMatchStatement(t *testing.T) {
	source := `
x = %VAL%
match x [
  case 1 [
    print 'one'
  ]
  case 'two' [
    print 'string two'
  ]
  default [
    print 'fallback'
  ]
]
`
	cases := map[string]string{"1": "one", "'two'": "string two", "99": "fallback"}
	for val, want := range cases {
		_, handler, err := tryRunSource(strings.ReplaceAll(source, "%VAL%", val))
		if err != nil {
			t.Fatalf("x=%s: %v", val, err)
		}
		wantOutput(t, handler, want)
	}
}

func TestGotoAndSubroutine(t *testing.T) {
	_, handler := runSource(t, `
call greet
print 'after'
goto end
label greet
print 'hello'
return
label end
print 'end'
`)
	wantOutput(t, handler, "hello", "after", "end")
}

func TestGotoInsideFunctionIsRejected(t *testing.T) {
	_, _, err := tryRunSource(`
function f [
  goto somewhere
]
method f()
label somewhere
`)
	wantKind(t, err, diag.SyntaxError)
}

// ---- functions ----

func TestRecursionFactorial(t *testing.T) {
	_, handler := runSource(t, `
function fact n [
  if n <= 1 [ return 1 ]
  p n - 1
  r = fact(p)
  out n * r
  return out
]
print '{fact(5)}'
`)
	wantOutput(t, handler, "120")
}

func TestFunctionScopeShadowing(t *testing.T) {
	interp, _ := runSource(t, `
x = 1
function f [
  var x = 99
  y = 50
]
method f()
`)
	got, _ := interp.GetValue("x")
	if !value.Equal(got, value.IntVal(1)) {
		t.Errorf("x = %s, want 1 (callee local must not leak)", got)
	}
	if _, ok := interp.GetValue("y"); ok {
		t.Error("y leaked out of the callee frame")
	}
}

func TestAutoAssignmentUpdatesGlobal(t *testing.T) {
	interp, _ := runSource(t, `
g = 1
function f [
  g = 2
]
method f()
`)
	got, _ := interp.GetValue("g")
	if !value.Equal(got, value.IntVal(2)) {
		t.Errorf("g = %s, want 2", got)
	}
}

func TestArityMismatch(t *testing.T) {
	_, _, err := tryRunSource(`
function f a b [
  return a
]
x = f(1)
`)
	wantKind(t, err, diag.ArityError)
}

func TestFirstClassFunctionReference(t *testing.T) {
	_, handler := runSource(t, `
function double n [
  out n * 2
  return out
]
f = double
x = f(21)
print '{x}'
`)
	wantOutput(t, handler, "42")
}

func TestBareCallIsParseError(t *testing.T) {
	_, err := parser.ParseSource(`
function f [
  return 1
]
f()
`, "test.rc")
	if err == nil {
		t.Fatal("expected a parse error for a bare call statement")
	}
	if !strings.Contains(err.Error(), "method") {
		t.Errorf("diagnostic should point at 'method': %v", err)
	}
}

func TestFrameBalanceAfterRun(t *testing.T) {
	interp, _ := runSource(t, `
function f n [
  if n <= 0 [ return 0 ]
  m n - 1
  r = f(m)
  return r
]
x = f(5)
`)
	if len(interp.frames) != 0 {
		t.Errorf("frames not empty after run: %d", len(interp.frames))
	}
	if len(interp.callStack) != 0 {
		t.Errorf("call stack not empty after run: %d", len(interp.callStack))
	}
}

// ---- containers ----

func TestHashMapInsertionOrder(t *testing.T) {
	_, handler := runSource(t, `
m = {'b': 1, 'a': 2, 'c': 3}
foreach k in m [
  print '{k}'
]
`)
	wantOutput(t, handler, "b", "a", "c")
}

func TestVectorSharing(t *testing.T) {
	_, handler := runSource(t, `
v = {1, 2}
w = v
method w.push(3)
print '{v.len()}'
`)
	wantOutput(t, handler, "3")
}

func TestAccessChainReadWrite(t *testing.T) {
	_, handler := runSource(t, `
m = {'a': {10, 20}}
m.a[0] = 9
x = m.a.0
y = m.a[1]
print '{x},{y}'
`)
	wantOutput(t, handler, "9,20")
}

func TestForeachSnapshot(t *testing.T) {
	// Elements pushed during iteration are not visited.
	_, handler := runSource(t, `
v = {1, 2}
n = 0
foreach e in v [
  n += 1
  if n < 5 [
    method v.push(99)
  ]
]
print '{n}'
`)
	wantOutput(t, handler, "2")
}

func TestTupleAccess(t *testing.T) {
	_, handler := runSource(t, `
t = (1, 'two', 3.5)
print '{t.1}|{t.len()}'
`)
	wantOutput(t, handler, "two|3")
}

// ---- errors and try/catch ----

func wantKind(t *testing.T, err error, kind diag.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected a %s, got success", kind)
	}
	var derr *diag.Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected a *diag.Error, got %T: %v", err, err)
	}
	if derr.Kind != kind {
		t.Fatalf("error kind = %s, want %s (%v)", derr.Kind, kind, err)
	}
}

func TestTryCatchIndexError(t *testing.T) {
	_, handler := runSource(t, `
v = {10, 20}
try [ x = v.5 ] catch [ print 'caught' ]
print 'after'
`)
	wantOutput(t, handler, "caught", "after")
}

func TestLastErrorFormat(t *testing.T) {
	interp, _ := runSource(t, `
v = {10, 20}
try [
  x = v.5
] catch [
]
`)
	got, ok := interp.GetValue("LAST_ERROR")
	if !ok {
		t.Fatal("LAST_ERROR not set")
	}
	s := got.String()
	if !strings.HasPrefix(s, "IndexError at test.rc:4:") {
		t.Errorf("LAST_ERROR = %q, want IndexError with source location", s)
	}
}

func TestUncaughtErrorSurfaces(t *testing.T) {
	_, _, err := tryRunSource(`x = missing_var`)
	wantKind(t, err, diag.NameError)
}

func TestTryCatchRestoresFrames(t *testing.T) {
	_, handler := runSource(t, `
function boom [
  x = {1}
  y = x.9
  return y
]
try [
  z = boom()
] catch [
  print 'recovered'
]
print 'after'
`)
	wantOutput(t, handler, "recovered", "after")
}

func TestBreakInsideTryUnwindsHandler(t *testing.T) {
	// The handler installed inside the loop must not catch errors raised
	// after break has exited the loop.
	_, handler, err := tryRunSource(`
loop [
  try [
    break
  ] catch [
    print 'wrong'
  ]
]
x = missing
`)
	wantKind(t, err, diag.NameError)
	if len(handler.output) != 0 {
		t.Errorf("stale catch handler ran: %q", handler.output)
	}
}

func TestLimitErrorNotCatchable(t *testing.T) {
	prog, err := parser.ParseSource(`
try [
  loop [ x = 1 ]
] catch [
  print 'should not catch'
]
`, "test.rc")
	if err != nil {
		t.Fatal(err)
	}
	interp := New(prog)
	interp.SetInstructionLimit(1000)
	handler := &testHandler{}
	runErr := interp.Run(handler)
	wantKind(t, runErr, diag.LimitError)
	if len(handler.output) != 0 {
		t.Errorf("catch handler ran for a LimitError: %q", handler.output)
	}
}

func TestInstructionLimitTripsInfiniteLoop(t *testing.T) {
	prog, err := parser.ParseSource(`loop [ x = 1 ]`, "test.rc")
	if err != nil {
		t.Fatal(err)
	}
	interp := New(prog)
	interp.SetInstructionLimit(1000)
	runErr := interp.Run(&testHandler{})
	wantKind(t, runErr, diag.LimitError)
	// The counter may overshoot by at most the final dispatch.
	if interp.InstructionCount() > 1001 {
		t.Errorf("counter overshot: %d", interp.InstructionCount())
	}
}

func TestUnlimitedByDefault(t *testing.T) {
	interp, _ := runSource(t, `
i = 0
while i < 2000 [
  i += 1
]
`)
	got, _ := interp.GetValue("i")
	if !value.Equal(got, value.IntVal(2000)) {
		t.Errorf("i = %s, want 2000", got)
	}
}

// ---- namespaces ----

func TestNamespacedModuleIsolation(t *testing.T) {
	_, handler := runSource(t, `
module Service [
global STATUS = 'Ready'
]
STATUS = 'Idle'
print '{STATUS}|{Service.STATUS}'
`)
	wantOutput(t, handler, "Idle|Ready")
}

func TestNamespacedFunctionSeesModuleGlobals(t *testing.T) {
	_, handler := runSource(t, `
module M [
function get [
  return VAL
]
global VAL = 42
]
x = M.get()
print '{x}'
`)
	wantOutput(t, handler, "42")
}

// ---- host effects ----

func TestInputTypeInference(t *testing.T) {
	prog, err := parser.ParseSource(`
input a
input b
input c
input d
`, "test.rc")
	if err != nil {
		t.Fatal(err)
	}
	interp := New(prog)
	handler := &testHandler{inputs: []string{"25", "2.5", "true", "hello"}}
	if err := interp.Run(handler); err != nil {
		t.Fatal(err)
	}
	wants := map[string]value.Value{
		"a": value.IntVal(25),
		"b": value.FloatVal(2.5),
		"c": value.BoolVal(true),
		"d": value.StringVal("hello"),
	}
	for name, want := range wants {
		got, _ := interp.GetValue(name)
		if !value.Equal(got, want) {
			t.Errorf("%s = %s (%s), want %s", name, got, got.TypeName(), want)
		}
	}
}

func TestExecDispatchesToHandler(t *testing.T) {
	_, handler := runSource(t, `
ms = 100
exec wait ms
exec beep
`)
	if len(handler.commands) != 2 || handler.commands[0] != "wait 100" || handler.commands[1] != "beep " {
		t.Errorf("commands = %q", handler.commands)
	}
}

func TestExecUnknownCommand(t *testing.T) {
	_, _, err := tryRunSource(`exec launch_missiles`)
	wantKind(t, err, diag.NameError)
}

func TestExecHostErrorIsCatchable(t *testing.T) {
	_, handler, err := tryRunSource(`
try [
  exec boom
] catch [
  print 'caught'
]
`)
	if err != nil {
		t.Fatal(err)
	}
	wantOutput(t, handler, "caught")
}

func TestStateInjectionAndExtraction(t *testing.T) {
	prog, err := parser.ParseSource(`
print 'Hello, {USER}!'
result_val USER_ID * 2
`, "test.rc")
	if err != nil {
		t.Fatal(err)
	}
	interp := New(prog)
	interp.SetGlobal("USER", value.StringVal("Tester"))
	interp.SetGlobal("USER_ID", value.IntVal(21))

	handler := &testHandler{}
	if err := interp.Run(handler); err != nil {
		t.Fatal(err)
	}
	wantOutput(t, handler, "Hello, Tester!")

	got, ok := interp.GetValue("result_val")
	if !ok {
		t.Fatal("result_val not found")
	}
	if !value.Equal(got, value.IntVal(42)) {
		t.Errorf("result_val = %s, want 42", got)
	}
}
