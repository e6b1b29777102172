// Package evaluator evaluates trigger-style conditions such as
// `{host:key.last()} > 10m and not {x} = 0` against sample values.
package evaluator

import (
	"github.com/zabbix/zabbix-sub156/zbxexpr"
)

// Evaluator compiles and evaluates expressions under fixed limits.
type Evaluator struct {
	limits zbxexpr.Limits
}

type Option func(*Evaluator)

func WithLimits(l zbxexpr.Limits) Option {
	return func(e *Evaluator) { e.limits = l }
}

func New(opts ...Option) *Evaluator {
	e := &Evaluator{limits: zbxexpr.DefaultLimits()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate with default limits.
func Evaluate(expression string, subs map[string]Literal) (bool, error) {
	return New().Evaluate(expression, subs)
}

func (e *Evaluator) Evaluate(expression string, subs map[string]Literal) (bool, error) {
	x, err := e.Compile(expression)
	if err != nil {
		return false, err
	}
	return x.Eval(subs)
}

// Expression is a compiled condition. It is immutable and may be evaluated
// concurrently with different substitutions.
type Expression struct {
	source       string
	root         *node
	placeholders []string
}

func (e *Evaluator) Compile(expression string) (*Expression, error) {
	if err := e.limits.CheckSource(expression); err != nil {
		return nil, err
	}
	toks, err := Tokenize(expression)
	if err != nil {
		return nil, err
	}
	root, err := parse(toks, len(expression), e.limits)
	if err != nil {
		return nil, err
	}

	x := &Expression{source: expression, root: root}
	seen := make(map[string]bool)
	for _, t := range toks {
		if t.Kind == TokPlaceholder && !seen[t.Text] {
			seen[t.Text] = true
			x.placeholders = append(x.placeholders, t.Text)
		}
	}
	return x, nil
}

func (x *Expression) String() string { return x.source }

// Placeholders lists the distinct placeholders in order of first appearance.
func (x *Expression) Placeholders() []string {
	out := make([]string, len(x.placeholders))
	copy(out, x.placeholders)
	return out
}

// Eval evaluates the expression. Every clause is evaluated, so an unknown
// placeholder is reported even when the result is already decided.
func (x *Expression) Eval(subs map[string]Literal) (bool, error) {
	return evalBool(x.root, subs)
}

func evalBool(n *node, subs map[string]Literal) (bool, error) {
	switch n.kind {
	case nodeOr, nodeAnd:
		l, err := evalBool(n.left, subs)
		if err != nil {
			return false, err
		}
		r, err := evalBool(n.right, subs)
		if err != nil {
			return false, err
		}
		if n.kind == nodeOr {
			return l || r, nil
		}
		return l && r, nil

	case nodeNot:
		v, err := evalBool(n.operand, subs)
		if err != nil {
			return false, err
		}
		return !v, nil

	case nodeCompare:
		l, err := evalValue(n.left, subs)
		if err != nil {
			return false, err
		}
		r, err := evalValue(n.right, subs)
		if err != nil {
			return false, err
		}
		return compare(n, l, r)
	}
	return false, zbxexpr.Errorf(zbxexpr.KindParseFailure, n.pos, "expected a comparison")
}

func evalValue(n *node, subs map[string]Literal) (Literal, error) {
	switch n.kind {
	case nodeLiteral:
		return n.lit, nil

	case nodePlaceholder:
		v, ok := subs[n.name]
		if !ok {
			return Literal{}, zbxexpr.Errorf(zbxexpr.KindUnknownPlaceholder, n.pos, "unknown placeholder").WithToken(n.name)
		}
		return v, nil

	case nodeNeg:
		v, err := evalValue(n.operand, subs)
		if err != nil {
			return Literal{}, err
		}
		f, ok := v.Float()
		if !ok {
			return Literal{}, zbxexpr.Errorf(zbxexpr.KindInvalidLiteral, n.pos, "cannot negate a non-numeric value").WithToken(v.String())
		}
		return Number(-f), nil

	case nodeArith:
		l, err := evalValue(n.left, subs)
		if err != nil {
			return Literal{}, err
		}
		r, err := evalValue(n.right, subs)
		if err != nil {
			return Literal{}, err
		}
		return arith(n, l, r)
	}
	return Literal{}, zbxexpr.Errorf(zbxexpr.KindParseFailure, n.pos, "expected a value")
}

func arith(n *node, l, r Literal) (Literal, error) {
	a, ok := l.Float()
	if !ok {
		return Literal{}, zbxexpr.Errorf(zbxexpr.KindInvalidLiteral, n.pos, "arithmetic on a non-numeric value").WithToken(l.String())
	}
	b, ok := r.Float()
	if !ok {
		return Literal{}, zbxexpr.Errorf(zbxexpr.KindInvalidLiteral, n.pos, "arithmetic on a non-numeric value").WithToken(r.String())
	}
	switch n.op {
	case "+":
		return Number(a + b), nil
	case "-":
		return Number(a - b), nil
	case "*":
		return Number(a * b), nil
	case "/":
		if b == 0 {
			return Literal{}, zbxexpr.Errorf(zbxexpr.KindDivisionByZero, n.pos, "division by zero")
		}
		return Number(a / b), nil
	}
	return Literal{}, zbxexpr.Errorf(zbxexpr.KindParseFailure, n.pos, "unknown operator").WithToken(n.op)
}

func compare(n *node, l, r Literal) (bool, error) {
	if l.IsNumeric() != r.IsNumeric() {
		bad := l
		if l.IsNumeric() {
			bad = r
		}
		return false, zbxexpr.Errorf(zbxexpr.KindInvalidLiteral, n.pos, "cannot compare a number with a non-numeric value").WithToken(bad.String())
	}

	if !l.IsNumeric() {
		switch n.op {
		case "=":
			return l.str == r.str, nil
		case "<>":
			return l.str != r.str, nil
		}
		return false, zbxexpr.Errorf(zbxexpr.KindInvalidLiteral, n.pos, "strings only support = and <>").WithToken(n.op)
	}

	a, b := l.num, r.num
	switch n.op {
	case "=":
		return a == b, nil
	case "<>":
		return a != b, nil
	case "<":
		return a < b, nil
	case "<=":
		return a <= b, nil
	case ">":
		return a > b, nil
	case ">=":
		return a >= b, nil
	}
	return false, zbxexpr.Errorf(zbxexpr.KindParseFailure, n.pos, "unknown operator").WithToken(n.op)
}
