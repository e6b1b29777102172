// Package regexptest runs the "test regular expressions" dialog: it builds
// the trigger expression for a set of fragments and evaluates it against a
// sample line of text.
package regexptest

import (
	"fmt"
	"log/slog"

	"github.com/zabbix/zabbix-sub156/zbxexpr"
	"github.com/zabbix/zabbix-sub156/zbxexpr/constructor"
	"github.com/zabbix/zabbix-sub156/zbxexpr/evaluator"
	"github.com/zabbix/zabbix-sub156/zbxexpr/funccall"
	"github.com/zabbix/zabbix-sub156/zbxexpr/itemkey"
	"github.com/zabbix/zabbix-sub156/zbxexpr/macro"
)

// MacroResult is the outcome of one regexp()/iregexp() macro.
type MacroResult struct {
	Macro    string `json:"macro"`
	Function string `json:"function"`
	Pattern  string `json:"pattern"`
	Matched  bool   `json:"matched"`
}

type Result struct {
	Expression string        `json:"expression"`
	Macros     []MacroResult `json:"macros"`
	Result     bool          `json:"result"`
}

type Tester struct {
	limits  zbxexpr.Limits
	logger  *slog.Logger
	calls   *funccall.Parser
	macros  *macro.FunctionMacroMatcher
	builder *constructor.Constructor
	eval    *evaluator.Evaluator
	cache   *regexCache
}

type Option func(*Tester)

func WithLimits(l zbxexpr.Limits) Option {
	return func(t *Tester) { t.limits = l }
}

// WithLogger sets the logger used for per-run debug output.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tester) { t.logger = l }
}

func New(opts ...Option) *Tester {
	t := &Tester{
		limits: zbxexpr.DefaultLimits(),
		logger: slog.Default(),
		calls:  funccall.New(),
		cache:  newRegexCache(),
	}
	for _, o := range opts {
		o(t)
	}
	t.macros = macro.NewFunctionMacroMatcher(itemkey.New(), t.calls, macro.WithLimits(t.limits))
	t.builder = constructor.New(constructor.WithLimits(t.limits))
	t.eval = evaluator.New(evaluator.WithLimits(t.limits))
	return t
}

// Run builds the expression for fragments and evaluates every regexp macro
// in it against testString: 1 when the pattern matches, 0 otherwise.
func (t *Tester) Run(host, key string, fragments []constructor.Fragment, testString string) (Result, error) {
	expr, err := t.builder.Build(host, key, fragments)
	if err != nil {
		return Result{}, err
	}
	found, err := t.macros.FindAll(expr)
	if err != nil {
		return Result{}, fmt.Errorf("scan %q: %w", expr, err)
	}

	res := Result{Expression: expr}
	subs := make(map[string]evaluator.Literal, len(found))
	for _, fm := range found {
		if _, done := subs[fm.Match]; done {
			continue
		}
		mr, err := t.runMacro(fm, testString)
		if err != nil {
			return Result{}, err
		}
		res.Macros = append(res.Macros, mr)
		if mr.Matched {
			subs[fm.Match] = evaluator.Number(1)
		} else {
			subs[fm.Match] = evaluator.Number(0)
		}
	}

	res.Result, err = t.eval.Evaluate(expr, subs)
	if err != nil {
		return Result{}, err
	}
	t.logger.Debug("regexp test",
		slog.String("expression", expr),
		slog.Int("macros", len(res.Macros)),
		slog.Bool("result", res.Result))
	return res, nil
}

func (t *Tester) runMacro(fm macro.FunctionMacro, testString string) (MacroResult, error) {
	call, ok := t.calls.Parse(fm.Function, 0)
	if !ok {
		return MacroResult{}, zbxexpr.Errorf(zbxexpr.KindParseFailure, fm.Pos, "invalid function call").WithToken(fm.Function)
	}
	mr := MacroResult{Macro: fm.Match, Function: call.Name}
	if len(call.Params) > 0 {
		mr.Pattern = call.Params[0]
	}

	pattern := mr.Pattern
	switch call.Name {
	case "regexp":
	case "iregexp":
		pattern = "(?i)" + pattern
	default:
		return MacroResult{}, zbxexpr.Errorf(zbxexpr.KindUnsupportedFunction, fm.Pos, "unsupported function").WithToken(call.Name)
	}

	re, err := t.cache.compile(pattern, t.limits.MaxRegexLength)
	if err != nil {
		return MacroResult{}, fmt.Errorf("%s: %w", fm.Match, err)
	}
	mr.Matched = re.MatchString(testString)
	return mr, nil
}
