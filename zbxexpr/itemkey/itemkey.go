// Package itemkey parses item keys of the form key[param,"quoted",[a,b]].
package itemkey

import (
	"strings"

	"github.com/zabbix/zabbix-sub156/zbxexpr/macro"
)

// Result describes a parsed item key.
type Result struct {
	Key string
	// Parameters with quotes removed; array parameters keep their brackets.
	Params []string
	Match  string
	Length int
}

func (r Result) ParamCount() int { return len(r.Params) }

// Parser is stateless; the zero value is ready to use.
type Parser struct{}

func New() *Parser { return &Parser{} }

// ParseKey implements macro.KeyParser.
func (p *Parser) ParseKey(source string, pos int) (macro.KeyMatch, bool) {
	r, ok := p.Parse(source, pos)
	if !ok {
		return macro.KeyMatch{}, false
	}
	return macro.KeyMatch{Length: r.Length, ParamCount: r.ParamCount()}, true
}

// Parse recognises a key starting at pos.
func (p *Parser) Parse(source string, pos int) (Result, bool) {
	if pos < 0 || pos >= len(source) {
		return Result{}, false
	}
	i := pos
	for i < len(source) && isKeyChar(source[i]) {
		i++
	}
	if i == pos {
		return Result{}, false
	}
	res := Result{Key: source[pos:i]}

	if i < len(source) && source[i] == '[' {
		params, end, ok := parseParams(source, i)
		if !ok {
			return Result{}, false
		}
		res.Params = params
		i = end
	}

	res.Match = source[pos:i]
	res.Length = i - pos
	return res, true
}

// parseParams parses "[...]" starting at the '[' and returns the position
// after the closing bracket.
func parseParams(s string, i int) ([]string, int, bool) {
	i++ // '['
	var params []string
	for {
		i = skipSpaces(s, i)
		if i >= len(s) {
			return nil, i, false
		}

		var (
			param string
			ok    bool
		)
		switch s[i] {
		case '"':
			param, i, ok = parseQuoted(s, i)
		case '[':
			param, i, ok = parseArray(s, i)
		default:
			param, i = parseUnquoted(s, i)
			ok = true
		}
		if !ok {
			return nil, i, false
		}
		i = skipSpaces(s, i)
		if i >= len(s) {
			return nil, i, false
		}

		params = append(params, param)
		switch s[i] {
		case ',':
			i++
		case ']':
			return params, i + 1, true
		default:
			return nil, i, false
		}
	}
}

// parseArray handles one level of [a,"b"] inside the parameter list.
func parseArray(s string, i int) (string, int, bool) {
	start := i
	i++ // '['
	for {
		i = skipSpaces(s, i)
		if i >= len(s) {
			return "", i, false
		}
		switch s[i] {
		case '"':
			var ok bool
			if _, i, ok = parseQuoted(s, i); !ok {
				return "", i, false
			}
		case '[':
			return "", i, false
		default:
			_, i = parseUnquoted(s, i)
		}
		i = skipSpaces(s, i)
		if i >= len(s) {
			return "", i, false
		}
		switch s[i] {
		case ',':
			i++
		case ']':
			i++
			return s[start:i], i, true
		default:
			return "", i, false
		}
	}
}

func parseQuoted(s string, i int) (string, int, bool) {
	i++ // opening quote
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

func parseUnquoted(s string, i int) (string, int) {
	start := i
	for i < len(s) && s[i] != ',' && s[i] != ']' {
		i++
	}
	return s[start:i], i
}

func skipSpaces(s string, i int) int {
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}

func isKeyChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c == '_' || c == '.' || c == '-'
}
