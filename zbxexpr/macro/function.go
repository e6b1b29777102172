package macro

import (
	"fmt"

	"github.com/zabbix/zabbix-sub156/zbxexpr"
)

// FunctionMacro is a successfully matched {host:key.function(params)} macro.
type FunctionMacro struct {
	// Offset of the opening brace in the scanned source.
	Pos   int
	Match string
	Host  string
	// Item key, parameters included: the text between ':' and the final '.'.
	Item string
	// Function call as reported by the function sub-parser.
	Function     string
	Length       int
	Continuation bool
}

// FunctionMacroMatcher recognises trigger function macros. Item key and
// function call grammars are delegated to the injected sub-parsers.
type FunctionMacroMatcher struct {
	keys  KeyParser
	funcs FunctionParser
	opts  options
}

func NewFunctionMacroMatcher(keys KeyParser, funcs FunctionParser, opts ...Option) *FunctionMacroMatcher {
	return &FunctionMacroMatcher{keys: keys, funcs: funcs, opts: applyOptions(opts)}
}

// Parse matches a macro starting exactly at pos. Grammar mismatches return a
// *zbxexpr.Error; a sub-parser breaking its contract returns an error
// wrapping ErrContract.
func (m *FunctionMacroMatcher) Parse(source string, pos int) (FunctionMacro, error) {
	if err := m.opts.limits.CheckSource(source); err != nil {
		return FunctionMacro{}, err
	}
	if pos < 0 || pos >= len(source) {
		return FunctionMacro{}, zbxexpr.Errorf(zbxexpr.KindParseFailure, pos, "offset out of range")
	}

	p := pos
	if source[p] != '{' {
		return FunctionMacro{}, zbxexpr.Errorf(zbxexpr.KindParseFailure, p, "expected '{'")
	}
	p++

	hostStart := p
	for p < len(source) && isHostChar(source[p]) {
		p++
	}
	if p == hostStart {
		return FunctionMacro{}, zbxexpr.Errorf(zbxexpr.KindParseFailure, p, "empty host name")
	}
	host := source[hostStart:p]

	if p >= len(source) || source[p] != ':' {
		return FunctionMacro{}, zbxexpr.Errorf(zbxexpr.KindParseFailure, p, "expected ':'")
	}
	p++

	keyStart := p
	km, ok := m.keys.ParseKey(source, p)
	if !ok {
		return FunctionMacro{}, zbxexpr.Errorf(zbxexpr.KindParseFailure, p, "invalid item key")
	}
	if km.Length <= 0 || p+km.Length > len(source) {
		return FunctionMacro{}, fmt.Errorf("item key parser reported length %d at %d: %w", km.Length, p, ErrContract)
	}
	p += km.Length

	// Simple checks written before keys and functions had to be separated,
	// e.g. {host:icmpping.last(0)}: the key parser swallows ".last" so step
	// back to the last '.' inside the key.
	if km.ParamCount == 0 && p < len(source) && source[p] == '(' {
		for p > keyStart && source[p] != '.' {
			p--
		}
		if p == keyStart {
			return FunctionMacro{}, zbxexpr.Errorf(zbxexpr.KindMissingSeparator, keyStart, "no '.' between item key and function").
				WithToken(source[keyStart : keyStart+km.Length])
		}
	}

	if p >= len(source) || source[p] != '.' {
		return FunctionMacro{}, zbxexpr.Errorf(zbxexpr.KindParseFailure, p, "expected '.'")
	}
	item := source[keyStart:p]
	p++

	fm, ok := m.funcs.ParseFunction(source, p)
	if !ok {
		return FunctionMacro{}, zbxexpr.Errorf(zbxexpr.KindParseFailure, p, "invalid function")
	}
	if fm.Length <= 0 || p+fm.Length > len(source) {
		return FunctionMacro{}, fmt.Errorf("function parser reported length %d at %d: %w", fm.Length, p, ErrContract)
	}
	function := fm.Match
	if function == "" {
		function = source[p : p+fm.Length]
	}
	p += fm.Length

	if p >= len(source) || source[p] != '}' {
		return FunctionMacro{}, zbxexpr.Errorf(zbxexpr.KindParseFailure, p, "expected '}'")
	}
	p++

	return FunctionMacro{
		Pos:          pos,
		Match:        source[pos:p],
		Host:         host,
		Item:         item,
		Function:     function,
		Length:       p - pos,
		Continuation: p < len(source),
	}, nil
}

// FindAll returns every function macro in text, left to right. Bytes that do
// not start a macro are skipped; a contract violation aborts the scan.
func (m *FunctionMacroMatcher) FindAll(text string) ([]FunctionMacro, error) {
	if err := m.opts.limits.CheckSource(text); err != nil {
		return nil, err
	}
	var out []FunctionMacro
	for p := 0; p < len(text); {
		if text[p] != '{' {
			p++
			continue
		}
		res, err := m.Parse(text, p)
		if err != nil {
			if _, ok := err.(*zbxexpr.Error); !ok {
				return out, err
			}
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

func isHostChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c == '.' || c == ' ' || c == '_' || c == '-'
}
