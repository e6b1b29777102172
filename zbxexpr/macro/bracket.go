package macro

import (
	"github.com/zabbix/zabbix-sub156/zbxexpr"
)

// LLDPrefix is the prefix of low-level discovery macros: {#NAME}.
const LLDPrefix = '#'

// BracketMacro is a successfully matched {<prefix>NAME} macro.
type BracketMacro struct {
	// Offset of the opening brace in the scanned source.
	Pos int
	// Full macro text, braces and prefix included.
	Match string
	// Macro name without braces and prefix.
	Name   string
	Length int
	// True when the source has more bytes after the closing brace.
	Continuation bool
}

// BracketMacroMatcher recognises {<prefix>NAME} where NAME is [A-Z0-9_.]+.
type BracketMacroMatcher struct {
	prefix byte
	opts   options
}

func NewBracketMacroMatcher(prefix byte, opts ...Option) *BracketMacroMatcher {
	return &BracketMacroMatcher{prefix: prefix, opts: applyOptions(opts)}
}

// NewLLDMacroMatcher matches {#NAME} discovery macros.
func NewLLDMacroMatcher(opts ...Option) *BracketMacroMatcher {
	return NewBracketMacroMatcher(LLDPrefix, opts...)
}

func (m *BracketMacroMatcher) Prefix() byte { return m.prefix }

// Parse matches a macro starting exactly at pos.
func (m *BracketMacroMatcher) Parse(source string, pos int) (BracketMacro, error) {
	if err := m.opts.limits.CheckSource(source); err != nil {
		return BracketMacro{}, err
	}
	if pos < 0 || pos >= len(source) {
		return BracketMacro{}, zbxexpr.Errorf(zbxexpr.KindParseFailure, pos, "offset out of range")
	}

	p := pos
	if source[p] != '{' {
		return BracketMacro{}, zbxexpr.Errorf(zbxexpr.KindParseFailure, p, "expected '{'")
	}
	p++

	if p >= len(source) || source[p] != m.prefix {
		return BracketMacro{}, zbxexpr.Errorf(zbxexpr.KindParseFailure, p, "expected '%c'", m.prefix)
	}
	p++

	nameStart := p
	for p < len(source) && isMacroNameChar(source[p]) {
		p++
	}
	if p == nameStart {
		return BracketMacro{}, zbxexpr.Errorf(zbxexpr.KindParseFailure, p, "empty macro name")
	}

	if p >= len(source) || source[p] != '}' {
		return BracketMacro{}, zbxexpr.Errorf(zbxexpr.KindParseFailure, p, "expected '}'")
	}
	p++

	return BracketMacro{
		Pos:          pos,
		Match:        source[pos:p],
		Name:         source[nameStart : p-1],
		Length:       p - pos,
		Continuation: p < len(source),
	}, nil
}

// FindAll returns every macro in text, left to right.
func (m *BracketMacroMatcher) FindAll(text string) ([]BracketMacro, error) {
	if err := m.opts.limits.CheckSource(text); err != nil {
		return nil, err
	}
	var out []BracketMacro
	for p := 0; p < len(text); {
		if text[p] != '{' {
			p++
			continue
		}
		res, err := m.Parse(text, p)
		if err != nil {
			p++
			continue
		}
		out = append(out, res)
		if !res.Continuation {
			break
		}
		p += res.Length
	}
	return out, nil
}

func isMacroNameChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '.'
}
