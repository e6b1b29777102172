package evaluator

import (
	"strings"

	"github.com/zabbix/zabbix-sub156/zbxexpr"
	"github.com/zabbix/zabbix-sub156/zbxexpr/macro"
)

// ---------------- Tokens ----------------

type TokenKind int

const (
	TokPlaceholder TokenKind = iota
	TokNumber
	TokString
	TokAnd
	TokOr
	TokNot
	TokLeftParen
	TokRightParen
	TokCompare // = <> # < <= > >=
	TokPlus
	TokMinus
	TokMul
	TokDiv
)

func (k TokenKind) String() string {
	switch k {
	case TokPlaceholder:
		return "placeholder"
	case TokNumber:
		return "number"
	case TokString:
		return "string"
	case TokAnd:
		return "and"
	case TokOr:
		return "or"
	case TokNot:
		return "not"
	case TokLeftParen:
		return "("
	case TokRightParen:
		return ")"
	case TokCompare:
		return "comparison"
	case TokPlus:
		return "+"
	case TokMinus:
		return "-"
	case TokMul:
		return "*"
	case TokDiv:
		return "/"
	}
	return "?"
}

type Token struct {
	Kind TokenKind
	// Source text of the token; the placeholder itself for TokPlaceholder.
	Text string
	// Byte offset in the expression.
	Pos int
	// Value of TokNumber and TokString.
	Value Literal
}

var operators = macro.NewSetMatcher([]string{
	"=", "<>", "#", "<", "<=", ">", ">=",
	"+", "-", "*", "/", "(", ")",
})

var operatorKind = map[string]TokenKind{
	"+": TokPlus,
	"-": TokMinus,
	"*": TokMul,
	"/": TokDiv,
	"(": TokLeftParen,
	")": TokRightParen,
}

// ---------------- Tokenizer ----------------

// Tokenize splits an expression into tokens. Keywords are recognised in
// lower case only; "AND" is an error, not a keyword.
func Tokenize(expr string) ([]Token, error) {
	toks := make([]Token, 0, 8)
	i := 0
	n := len(expr)

	for i < n {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '{':
			end, err := scanPlaceholder(expr, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, Token{Kind: TokPlaceholder, Text: expr[i:end], Pos: i})
			i = end

		case c == '"':
			s, end, err := scanString(expr, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, Token{Kind: TokString, Text: expr[i:end], Pos: i, Value: String(s)})
			i = end

		case isDigit(c) || c == '.':
			end, _, ok := scanNumber(expr, i)
			if !ok {
				return nil, zbxexpr.Errorf(zbxexpr.KindParseFailure, i, "invalid number").WithToken(word(expr, i))
			}
			toks = append(toks, Token{Kind: TokNumber, Text: expr[i:end], Pos: i, Value: ParseLiteral(expr[i:end])})
			i = end

		case isLetter(c):
			start := i
			for i < n && (isLetter(expr[i]) || isDigit(expr[i])) {
				i++
			}
			switch ident := expr[start:i]; ident {
			case "and":
				toks = append(toks, Token{Kind: TokAnd, Text: ident, Pos: start})
			case "or":
				toks = append(toks, Token{Kind: TokOr, Text: ident, Pos: start})
			case "not":
				toks = append(toks, Token{Kind: TokNot, Text: ident, Pos: start})
			default:
				return nil, zbxexpr.Errorf(zbxexpr.KindParseFailure, start, "unexpected word").WithToken(ident)
			}

		default:
			m, ok := operators.Match(expr, i)
			if !ok {
				return nil, zbxexpr.Errorf(zbxexpr.KindParseFailure, i, "unexpected character").WithToken(string(c))
			}
			kind, ok := operatorKind[m.Token]
			if !ok {
				kind = TokCompare
			}
			toks = append(toks, Token{Kind: kind, Text: m.Token, Pos: i})
			i += m.Length
		}
	}
	return toks, nil
}

// scanPlaceholder returns the offset after the '}' closing the '{' at i.
// Nested braces and braces inside double quotes are skipped.
func scanPlaceholder(s string, i int) (int, error) {
	start := i
	depth := 0
	inQuote := false
	for ; i < len(s); i++ {
		c := s[i]
		if inQuote {
			if c == '\\' && i+1 < len(s) {
				i++
			} else if c == '"' {
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	return start, zbxexpr.Errorf(zbxexpr.KindParseFailure, start, "unterminated placeholder")
}

func scanString(s string, i int) (string, int, error) {
	start := i
	i++
	var b strings.Builder
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\'):
			b.WriteByte(s[i+1])
			i += 2
		case c == '"':
			return b.String(), i + 1, nil
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", start, zbxexpr.Errorf(zbxexpr.KindParseFailure, start, "unterminated string")
}

// word returns the run of non-space, non-operator bytes at i, for messages.
func word(s string, i int) string {
	end := i
	for end < len(s) && s[end] != ' ' && s[end] != ')' && s[end] != '(' {
		if _, ok := operators.Match(s, end); ok && end > i {
			break
		}
		end++
	}
	return s[i:end]
}
