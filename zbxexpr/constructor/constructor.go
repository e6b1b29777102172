// Package constructor turns the regular expression tests entered for an item
// into a single trigger expression.
package constructor

import (
	"fmt"
	"strings"

	"github.com/zabbix/zabbix-sub156/zbxexpr"
	"github.com/zabbix/zabbix-sub156/zbxexpr/funccall"
)

// MatchType is the polarity of a fragment.
type MatchType int

const (
	// Match: the trigger fires when the regexps match.
	Match MatchType = iota
	// NoMatch: the trigger fires when the regexps do not match.
	NoMatch
)

func (t MatchType) String() string {
	switch t {
	case Match:
		return "match"
	case NoMatch:
		return "no_match"
	default:
		return fmt.Sprintf("MatchType(%d)", int(t))
	}
}

func (t MatchType) MarshalText() ([]byte, error) {
	switch t {
	case Match, NoMatch:
		return []byte(t.String()), nil
	}
	return nil, fmt.Errorf("invalid match type %d", int(t))
}

// UnmarshalText accepts "match" and "no_match" in any case, which makes
// MatchType usable directly in YAML and JSON documents.
func (t *MatchType) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "match", "0":
		*t = Match
	case "no_match", "nomatch", "1":
		*t = NoMatch
	default:
		return fmt.Errorf("invalid match type %q", string(b))
	}
	return nil
}

// Fragment is one user-entered test: regexp()/iregexp() calls joined by
// and/or, e.g. `regexp(^error) or iregexp(fatal)`.
type Fragment struct {
	Value string    `json:"value" yaml:"value"`
	Type  MatchType `json:"type" yaml:"type"`
}

// Term is one function call recovered from a fragment.
type Term struct {
	// Connective joining the term to the previous one; empty for the first.
	Connective string
	// Lowercase function name, regexp or iregexp.
	Function string
	// Everything between the call's parentheses.
	Arg string
}

// calls closes each term the same way FunctionMacroMatcher will when the
// built expression is scanned again.
var calls = funccall.New()

// Constructor builds trigger expressions. The zero value is not usable; call New.
type Constructor struct {
	limits zbxexpr.Limits
}

type Option func(*Constructor)

func WithLimits(l zbxexpr.Limits) Option {
	return func(c *Constructor) { c.limits = l }
}

func New(opts ...Option) *Constructor {
	c := &Constructor{limits: zbxexpr.DefaultLimits()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Build with default limits.
func Build(host, key string, fragments []Fragment) (string, error) {
	return New().Build(host, key, fragments)
}

// Build combines fragments, in order, into one expression over {host:key.*}.
// Consecutive Match fragments are joined with "or" and a run of two or more
// is grouped in parentheses once it ends; everything else is joined with "and".
func (c *Constructor) Build(host, key string, fragments []Fragment) (string, error) {
	if len(fragments) == 0 {
		return "", zbxexpr.Errorf(zbxexpr.KindEmptyExpression, -1, "no expressions given")
	}
	if c.limits.MaxFragments > 0 && len(fragments) > c.limits.MaxFragments {
		return "", zbxexpr.Errorf(zbxexpr.KindLimitExceeded, -1, "too many expressions: %d (max %d)", len(fragments), c.limits.MaxFragments)
	}

	var (
		b        strings.Builder
		orRun    int
		runStart = -1
		prevType MatchType
	)
	closeRun := func() {
		if orRun > 1 && runStart >= 0 {
			s := b.String()
			b.Reset()
			b.WriteString(s[:runStart])
			b.WriteByte('(')
			b.WriteString(s[runStart:])
			b.WriteByte(')')
		}
		orRun = 0
		runStart = -1
	}

	for i, f := range fragments {
		terms, err := Split(f.Value)
		if err != nil {
			return "", fmt.Errorf("expression %d: %w", i+1, err)
		}
		expr := render(host, key, terms, f.Type)

		switch f.Type {
		case Match:
			if b.Len() > 0 {
				if prevType == Match {
					b.WriteString(" or ")
				} else {
					b.WriteString(" and ")
				}
			}
			if orRun == 0 {
				runStart = b.Len()
			}
			orRun++
		case NoMatch:
			closeRun()
			if b.Len() > 0 {
				b.WriteString(" and ")
			}
		default:
			return "", fmt.Errorf("expression %d: invalid match type %d", i+1, int(f.Type))
		}
		b.WriteString(expr)
		prevType = f.Type
	}
	closeRun()

	out := b.String()
	if err := c.limits.CheckSource(out); err != nil {
		return "", err
	}
	return out, nil
}

// Split decomposes a fragment value into its terms, left to right. Terms are
// name(args) calls joined by "and" / "or"; any name other than regexp or
// iregexp is UnsupportedFunction. Arguments are kept byte for byte.
func Split(value string) ([]Term, error) {
	i := skipSpace(value, 0)
	if i == len(value) {
		return nil, zbxexpr.Errorf(zbxexpr.KindParseFailure, -1, "incorrect trigger expression").WithToken(value)
	}

	var (
		terms      []Term
		connective string
	)
	for {
		start := i
		for i < len(value) && isNameChar(value[i]) {
			i++
		}
		name := value[start:i]
		if name == "" || i == len(value) || value[i] != '(' {
			return nil, zbxexpr.Errorf(zbxexpr.KindParseFailure, -1, "expected regexp() or iregexp()").WithToken(nextWord(value, start))
		}
		fn := strings.ToLower(name)
		if fn != "regexp" && fn != "iregexp" {
			return nil, zbxexpr.Errorf(zbxexpr.KindUnsupportedFunction, -1, "unsupported function").WithToken(name)
		}

		call, ok := calls.Parse(fn+value[i:], 0)
		if !ok {
			return nil, zbxexpr.Errorf(zbxexpr.KindParseFailure, -1, "malformed %s() call", fn).WithToken(value[start:])
		}
		end := i + call.Length - len(fn)
		arg := value[i+1 : end-1]
		if hasControl(arg) {
			return nil, zbxexpr.Errorf(zbxexpr.KindParseFailure, -1, "control character in %s() argument", fn).WithToken(name)
		}
		terms = append(terms, Term{Connective: connective, Function: fn, Arg: arg})

		i = skipSpace(value, end)
		if i == len(value) {
			return terms, nil
		}
		start = i
		for i < len(value) && isLetter(value[i]) {
			i++
		}
		connective = strings.ToLower(value[start:i])
		if connective != "and" && connective != "or" {
			return nil, zbxexpr.Errorf(zbxexpr.KindParseFailure, -1, "unexpected text after %s()", fn).WithToken(strings.TrimSpace(value[start:]))
		}
		i = skipSpace(value, i)
		if i == len(value) {
			return nil, zbxexpr.Errorf(zbxexpr.KindParseFailure, -1, "missing function after %q", connective).WithToken(connective)
		}
	}
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || (s[i] >= '\t' && s[i] <= '\r')) {
		i++
	}
	return i
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isNameChar(c byte) bool { return isLetter(c) || (c >= '0' && c <= '9') || c == '_' }

func hasControl(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] == 0x7f {
			return true
		}
	}
	return false
}

// nextWord returns the run of non-space bytes at i, for error tokens.
func nextWord(s string, i int) string {
	j := i
	for j < len(s) && s[j] != ' ' && s[j] != '\t' {
		j++
	}
	if j == i && j < len(s) {
		j++
	}
	return s[i:j]
}

func render(host, key string, terms []Term, t MatchType) string {
	eq := "<>0"
	if t == NoMatch {
		eq = "=0"
	}
	var b strings.Builder
	b.WriteByte('(')
	for i, term := range terms {
		if i > 0 {
			b.WriteByte(' ')
			b.WriteString(term.Connective)
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "({%s:%s.%s(%s)})%s", host, key, term.Function, term.Arg, eq)
	}
	b.WriteByte(')')
	return b.String()
}
