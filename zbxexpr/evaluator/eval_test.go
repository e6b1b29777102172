package evaluator

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/zabbix/zabbix-sub156/zbxexpr"
)

func subs(kv ...any) map[string]Literal {
	m := make(map[string]Literal, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		switch v := kv[i+1].(type) {
		case string:
			m[kv[i].(string)] = ParseLiteral(v)
		case int:
			m[kv[i].(string)] = Number(float64(v))
		case float64:
			m[kv[i].(string)] = Number(v)
		}
	}
	return m
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name string
		expr string
		subs map[string]Literal
		want bool
	}{
		{"time units equal", "{x} = 10m", subs("{x}", "600s"), true},
		{"time units differ", "{x} = 10m", subs("{x}", 601), false},
		{"not", "not {x} = 0", subs("{x}", 1), true},
		{"not binds to one clause", "not {x} = 0 and {x} = 0", subs("{x}", 0), false},
		{"and before or", "{a} = 1 or {a} = 2 and {b} = 3", subs("{a}", 1, "{b}", 0), true},
		{"parentheses", "({a} = 1 or {a} = 2) and {b} = 3", subs("{a}", 1, "{b}", 0), false},
		{"negative decimal", "{x} < -0.5", subs("{x}", -1.25), true},
		{"hash is not equal", "{x} # 5", subs("{x}", 4), true},
		{"less or equal", "{x} <= 1h", subs("{x}", "3600"), true},
		{"greater", "{x} > 1w", subs("{x}", "8d"), true},
		{"greater or equal", "{x} >= 2", subs("{x}", 2), true},
		{"size suffix", "{mem} > 1G", subs("{mem}", "1025M"), true},
		{"strings", `{s} = "ok" and {t} <> "ok"`, subs("{s}", "ok", "{t}", "fail"), true},
		{"arithmetic", "{a} + {b} * 2 = 7", subs("{a}", 1, "{b}", 3), true},
		{"division", "{a} / 4 = 0.5", subs("{a}", 2), true},
		{"negated placeholder", "-{a} = -3", subs("{a}", 3), true},
		{"parenthesised operand", "({h:k.regexp(a)})<>0", subs("{h:k.regexp(a)}", 1), true},
		{
			"constructor output",
			"((({h:k.regexp(a)})<>0) or (({h:k.regexp(b)})<>0)) and (({h:k.regexp(c)})=0)",
			subs("{h:k.regexp(a)}", 0, "{h:k.regexp(b)}", 1, "{h:k.regexp(c)}", 0),
			true,
		},
	}
	for _, c := range cases {
		got, err := Evaluate(c.expr, c.subs)
		if err != nil {
			t.Fatalf("%s: %q: %v", c.name, c.expr, err)
		}
		if got != c.want {
			t.Fatalf("%s: %q = %v, want %v", c.name, c.expr, got, c.want)
		}
	}
}

func TestEvaluateErrors(t *testing.T) {
	cases := []struct {
		name string
		expr string
		subs map[string]Literal
		want error
	}{
		{"unknown placeholder", "{x} = 1", nil, zbxexpr.ErrUnknownPlaceholder},
		{"unknown placeholder after decided or", "{a} = 1 or {b} = 1", subs("{a}", 1), zbxexpr.ErrUnknownPlaceholder},
		{"unit against string", "{x} = 10m", subs("{x}", "ten minutes"), zbxexpr.ErrInvalidLiteral},
		{"string ordering", `{x} < "b"`, subs("{x}", "a"), zbxexpr.ErrInvalidLiteral},
		{"string arithmetic", "{x} + 1 = 2", subs("{x}", "one"), zbxexpr.ErrInvalidLiteral},
		{"division by zero", "{x} / 0 = 1", subs("{x}", 1), zbxexpr.ErrDivisionByZero},
		{"empty", "   ", nil, zbxexpr.ErrParseFailure},
		{"bare value", "{x}", subs("{x}", 1), zbxexpr.ErrParseFailure},
		{"and on values", "{x} and {y} = 1", subs("{x}", 1, "{y}", 1), zbxexpr.ErrParseFailure},
		{"dangling operator", "{x} =", subs("{x}", 1), zbxexpr.ErrParseFailure},
		{"chained comparison", "{x} = 1 = 1", subs("{x}", 1), zbxexpr.ErrParseFailure},
		{"unbalanced", "({x} = 1", subs("{x}", 1), zbxexpr.ErrParseFailure},
		{"stray paren", "{x} = 1)", subs("{x}", 1), zbxexpr.ErrParseFailure},
		{"condition as operand", "({x} = 1) = 1", subs("{x}", 1), zbxexpr.ErrParseFailure},
	}
	for _, c := range cases {
		_, err := Evaluate(c.expr, c.subs)
		if err == nil {
			t.Fatalf("%s: expected error", c.name)
		}
		if !errors.Is(err, c.want) {
			t.Fatalf("%s: err = %v, want kind %v", c.name, err, c.want)
		}
	}
}

func TestEvaluateErrorPosition(t *testing.T) {
	_, err := Evaluate("{a} = 1 and {b} = 2", subs("{a}", 1))
	var zerr *zbxexpr.Error
	if !errors.As(err, &zerr) {
		t.Fatalf("err = %v", err)
	}
	if zerr.Pos != 12 || zerr.Token != "{b}" {
		t.Fatalf("pos = %d token = %q", zerr.Pos, zerr.Token)
	}

	_, err = Evaluate("{a} = 1 or", subs("{a}", 1))
	if !errors.As(err, &zerr) || zerr.Pos != 10 {
		t.Fatalf("err = %v", err)
	}
}

func TestDepthLimit(t *testing.T) {
	e := New(WithLimits(zbxexpr.DefaultLimits().WithMaxDepth(3)))

	if _, err := e.Evaluate("((({x} = 1)))", subs("{x}", 1)); err != nil {
		t.Fatalf("depth 3: %v", err)
	}
	_, err := e.Evaluate("(((({x} = 1))))", subs("{x}", 1))
	if !errors.Is(err, zbxexpr.ErrLimitExceeded) {
		t.Fatalf("depth 4: err = %v", err)
	}
	_, err = e.Evaluate("not not not not {x} = 1", subs("{x}", 1))
	if !errors.Is(err, zbxexpr.ErrLimitExceeded) {
		t.Fatalf("not chain: err = %v", err)
	}
}

func TestSourceLimit(t *testing.T) {
	e := New(WithLimits(zbxexpr.StrictLimits().WithMaxSourceLength(5)))
	_, err := e.Evaluate("{x} = 1", subs("{x}", 1))
	if !errors.Is(err, zbxexpr.ErrLimitExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestCompilePlaceholders(t *testing.T) {
	x, err := New().Compile("{a} = 1 or {b} = 2 and {a} > 0")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	got := x.Placeholders()
	if len(got) != 2 || got[0] != "{a}" || got[1] != "{b}" {
		t.Fatalf("placeholders = %v", got)
	}
	if x.String() != "{a} = 1 or {b} = 2 and {a} > 0" {
		t.Fatalf("source = %q", x.String())
	}
}

func TestCompiledConcurrentEval(t *testing.T) {
	x, err := New().Compile("{x} > 5m")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := 200 + i*50 // 200..550 seconds
			got, err := x.Eval(subs("{x}", v))
			if err != nil || got != (v > 300) {
				t.Errorf("x=%d: %v %v", v, got, err)
			}
		}(i)
	}
	wg.Wait()
}

func TestParseLiteral(t *testing.T) {
	cases := []struct {
		in      string
		numeric bool
		value   float64
	}{
		{"600s", true, 600},
		{"10m", true, 600},
		{"1.5h", true, 5400},
		{"2d", true, 172800},
		{"1w", true, 604800},
		{"4K", true, 4096},
		{"-3", true, -3},
		{" 42 ", true, 42},
		{".5", true, 0.5},
		{"10ms", false, 0},
		{"abc", false, 0},
		{"", false, 0},
		{"-", false, 0},
	}
	for _, c := range cases {
		l := ParseLiteral(c.in)
		if l.IsNumeric() != c.numeric {
			t.Fatalf("%q: numeric = %v", c.in, l.IsNumeric())
		}
		if v, _ := l.Float(); c.numeric && v != c.value {
			t.Fatalf("%q: value = %v, want %v", c.in, v, c.value)
		}
	}
}

func TestLiteralJSON(t *testing.T) {
	var m map[string]Literal
	if err := json.Unmarshal([]byte(`{"{a}":"10m","{b}":601,"{c}":"up"}`), &m); err != nil {
		t.Fatalf("err: %v", err)
	}
	if v, ok := m["{a}"].Float(); !ok || v != 600 {
		t.Fatalf("{a} = %v", m["{a}"])
	}
	if v, ok := m["{b}"].Float(); !ok || v != 601 {
		t.Fatalf("{b} = %v", m["{b}"])
	}
	if m["{c}"].IsNumeric() || m["{c}"].String() != "up" {
		t.Fatalf("{c} = %v", m["{c}"])
	}
	if err := json.Unmarshal([]byte(`{"{d}":true}`), &m); err == nil {
		t.Fatalf("expected error for boolean literal")
	}

	out, err := json.Marshal(map[string]Literal{"n": Number(1.5), "s": String("x")})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if string(out) != `{"n":1.5,"s":"x"}` {
		t.Fatalf("json = %s", out)
	}
}
