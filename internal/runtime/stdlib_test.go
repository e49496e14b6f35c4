package runtime

import (
	"strings"
	"testing"

	"rustcript/internal/diag"
	"rustcript/internal/value"
)

func TestVectorMethods(t *testing.T) {
	_, handler := runSource(t, `
v = {1, 2, 3}
method v.push(4)
p = v.pop()
method v.insert(0, 9)
r = v.remove(1)
s = v.join('-')
n = v.len()
g = v.get(1)
print '{s}|{p}|{r}|{n}|{g}'
method v.clear()
print '{v.len()}'
`)
	wantOutput(t, handler, "9-2-3|4|1|3|2", "0")
}

func TestVectorErrors(t *testing.T) {
	_, _, err := tryRunSource(`
v = {}
x = v.pop()
`)
	wantKind(t, err, diag.IndexError)

	_, _, err = tryRunSource(`
v = {1}
x = v.get(5)
`)
	wantKind(t, err, diag.IndexError)

	_, _, err = tryRunSource(`
v = {1}
x = v.frobnicate()
`)
	wantKind(t, err, diag.NameError)

	_, _, err = tryRunSource(`
v = {1}
x = v.get()
`)
	wantKind(t, err, diag.ArityError)
}

func TestHashMapMethods(t *testing.T) {
	_, handler := runSource(t, `
m = {'a': 1}
method m.insert('b', 2)
method m.insert('a', 10)
k = m.keys()
ks = k.join(',')
b = m.get('b')
has_a = m.contains('a')
has_z = m.contains('z')
print '{ks}'
print '{b}|{m.len()}|{has_a}|{has_z}'
removed = m.remove('a')
print '{removed}|{m.len()}'
`)
	wantOutput(t, handler, "a,b", "2|2|true|false", "10|1")
}

func TestMissingKeyIsKeyError(t *testing.T) {
	_, _, err := tryRunSource(`
m = {'a': 1}
x = m.get('zzz')
`)
	wantKind(t, err, diag.KeyError)
}

func TestStringMethods(t *testing.T) {
	_, handler := runSource(t, `
s = '  Hello World  '
trimmed = s.trim()
up = trimmed.to_upper()
low = trimmed.to_lower()
print '{trimmed}|{up}|{low}'
t = 'a,b,c'
parts = t.split(',')
print '{parts.len()}|{parts.1}'
rep = t.replace(',', ';')
has = t.contains('b')
sw = t.starts_with('a')
ew = t.ends_with('c')
print '{rep}|{has}|{sw}|{ew}'
i1 = t.index_of('b')
i2 = t.index_of('zz')
print '{i1}|{i2}'
sub = t.substring(2, 5)
print '{sub}|{t.len()}'
n = '42'.to_int()
f = '2.5'.to_float()
print '{n}|{f}'
`)
	wantOutput(t, handler,
		"Hello World|HELLO WORLD|hello world",
		"3|b",
		"a;b;c|true|true|true",
		"2|-1",
		"b,c|5",
		"42|2.5",
	)
}

func TestStringRegexMethods(t *testing.T) {
	_, handler := runSource(t, `
s = 'war of 1812 and 1066 nights'
hit = s.is_match('[0-9]+')
all = s.find_all('[0-9]+')
joined = all.join(',')
repl = s.regex_replace('[0-9]+', 'N')
print '{hit}'
print '{joined}'
print '{repl}'
`)
	wantOutput(t, handler, "true", "1812,1066", "war of N and N nights")
}

func TestInvalidRegex(t *testing.T) {
	_, _, err := tryRunSource(`
s = 'abc'
x = s.is_match('[unclosed')
`)
	wantKind(t, err, diag.TypeError)
}

func TestTimeMethods(t *testing.T) {
	interp, _ := runSource(t, `
time t
d = t.date()
c = t.time()
ts = t.timestamp()
e = t.elapsed()
`)
	d, _ := interp.GetValue("d")
	if len(d.String()) != 10 || strings.Count(d.String(), "-") != 2 {
		t.Errorf("date = %q", d)
	}
	c, _ := interp.GetValue("c")
	if len(c.String()) != 8 || strings.Count(c.String(), ":") != 2 {
		t.Errorf("time = %q", c)
	}
	ts, _ := interp.GetValue("ts")
	if _, ok := ts.(value.IntVal); !ok {
		t.Errorf("timestamp is %s", ts.TypeName())
	}
	e, _ := interp.GetValue("e")
	f, ok := e.(value.FloatVal)
	if !ok || float64(f) < 0 {
		t.Errorf("elapsed = %s", e)
	}
}

func TestTimeArithmetic(t *testing.T) {
	_, handler := runSource(t, `
time a
b a + 3600
diff b - a
print '{diff}'
`)
	wantOutput(t, handler, "3600")
}

func TestMathModule(t *testing.T) {
	_, handler := runSource(t, `
print '{math.sqrt(16)}|{math.pow(2, 10)}|{math.abs(-3)}'
print '{math.round(2.6)}|{math.floor(2.6)}|{math.ceil(2.1)}'
`)
	wantOutput(t, handler, "4|1024|3", "3|2|3")
}

func TestMathPi(t *testing.T) {
	interp, _ := runSource(t, `p = math.pi()`)
	got, _ := interp.GetValue("p")
	f, ok := got.(value.FloatVal)
	if !ok || float64(f) < 3.14 || float64(f) > 3.15 {
		t.Errorf("pi = %s", got)
	}
}

func TestRandModule(t *testing.T) {
	interp, _ := runSource(t, `
n = rand.int(5, 10)
f = rand.float()
b = rand.bool()
`)
	n, _ := interp.GetValue("n")
	ni, ok := n.(value.IntVal)
	if !ok || ni < 5 || ni >= 10 {
		t.Errorf("rand.int out of range: %s", n)
	}
	f, _ := interp.GetValue("f")
	ff, ok := f.(value.FloatVal)
	if !ok || ff < 0 || ff >= 1 {
		t.Errorf("rand.float out of range: %s", f)
	}
	b, _ := interp.GetValue("b")
	if _, ok := b.(value.BoolVal); !ok {
		t.Errorf("rand.bool is %s", b.TypeName())
	}
}

func TestRandIntBadRange(t *testing.T) {
	_, _, err := tryRunSource(`x = rand.int(5, 5)`)
	wantKind(t, err, diag.TypeError)
}

func TestShuffleKeepsElements(t *testing.T) {
	interp, _ := runSource(t, `
v = {1, 2, 3, 4, 5}
method v.shuffle()
total = 0
foreach e in v [
  total += e
]
`)
	got, _ := interp.GetValue("total")
	if !value.Equal(got, value.IntVal(15)) {
		t.Errorf("shuffle lost elements: sum = %s", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	_, handler := runSource(t, `
doc = json.parse('{"b": 1, "a": [1, 2.5, true, null], "s": "hi"}')
print '{doc.b}|{doc.a.1}|{doc.s}'
out = json.stringify(doc)
print '{out}'
`)
	wantOutput(t, handler,
		"1|2.5|hi",
		`{"b":1,"a":[1,2.5,true,null],"s":"hi"}`,
	)
}

func TestJSONPretty(t *testing.T) {
	interp, _ := runSource(t, `
m = {'a': 1}
s = json.stringify(m, true)
`)
	got, _ := interp.GetValue("s")
	want := "{\n  \"a\": 1\n}"
	if got.String() != want {
		t.Errorf("pretty output:\n%s\nwant:\n%s", got, want)
	}
}

func TestJSONParseError(t *testing.T) {
	_, _, err := tryRunSource(`x = json.parse('{oops')`)
	wantKind(t, err, diag.TypeError)
}

func TestUnknownModule(t *testing.T) {
	_, _, err := tryRunSource(`x = nosuch.thing(1)`)
	wantKind(t, err, diag.NameError)
}
