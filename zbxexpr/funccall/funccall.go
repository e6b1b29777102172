// Package funccall parses trigger function calls such as last(0) or
// regexp("^error",#3).
package funccall

import (
	"strings"

	"github.com/zabbix/zabbix-sub156/zbxexpr/macro"
)

// Result describes a parsed function call.
type Result struct {
	Name string
	// Parameters with quotes removed. name() has no parameters.
	Params []string
	Match  string
	Length int
}

// Parser is stateless; the zero value is ready to use.
type Parser struct{}

func New() *Parser { return &Parser{} }

// ParseFunction implements macro.FunctionParser.
func (p *Parser) ParseFunction(source string, pos int) (macro.FunctionMatch, bool) {
	r, ok := p.Parse(source, pos)
	if !ok {
		return macro.FunctionMatch{}, false
	}
	return macro.FunctionMatch{Length: r.Length, Match: r.Match}, true
}

// Parse recognises name(params) starting at pos.
func (p *Parser) Parse(source string, pos int) (Result, bool) {
	if pos < 0 || pos >= len(source) {
		return Result{}, false
	}
	i := pos
	for i < len(source) && source[i] >= 'a' && source[i] <= 'z' {
		i++
	}
	if i == pos || i >= len(source) || source[i] != '(' {
		return Result{}, false
	}
	name := source[pos:i]
	i++

	params, end, ok := parseParams(source, i)
	if !ok {
		return Result{}, false
	}
	return Result{
		Name:   name,
		Params: params,
		Match:  source[pos:end],
		Length: end - pos,
	}, true
}

// parseParams starts right after '(' and returns the position after ')'.
func parseParams(s string, i int) ([]string, int, bool) {
	i = skipSpaces(s, i)
	if i < len(s) && s[i] == ')' {
		return nil, i + 1, true
	}

	var params []string
	for {
		i = skipSpaces(s, i)
		if i >= len(s) {
			return nil, i, false
		}

		var param string
		if s[i] == '"' {
			var ok bool
			if param, i, ok = parseQuoted(s, i); !ok {
				return nil, i, false
			}
			i = skipSpaces(s, i)
		} else {
			param, i = parseUnquoted(s, i)
		}
		if i >= len(s) {
			return nil, i, false
		}

		params = append(params, param)
		switch s[i] {
		case ',':
			i++
		case ')':
			return params, i + 1, true
		default:
			return nil, i, false
		}
	}
}

func parseQuoted(s string, i int) (string, int, bool) {
	i++
	var b strings.Builder
	for i < len(s) {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == '"':
			b.WriteByte('"')
			i += 2
		case s[i] == '"':
			return b.String(), i + 1, true
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return "", i, false
}

// parseUnquoted stops at ',' or at a ')' that closes the call. Balanced
// parentheses inside the parameter are kept, so regexp((a|b)) works unquoted.
func parseUnquoted(s string, i int) (string, int) {
	start := i
	depth := 0
	for ; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return s[start:i], i
			}
			depth--
		case ',':
			if depth == 0 {
				return s[start:i], i
			}
		}
	}
	return s[start:i], i
}

func skipSpaces(s string, i int) int {
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}
