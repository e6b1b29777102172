package zbxexpr

import "fmt"

// ErrorKind classifies failures of the matchers, the constructor and the evaluator.
type ErrorKind int

const (
	KindParseFailure ErrorKind = iota
	KindEmptyExpression
	KindUnsupportedFunction
	KindUnknownPlaceholder
	KindInvalidLiteral
	KindMissingSeparator
	KindLimitExceeded
	KindDivisionByZero
)

func (k ErrorKind) String() string {
	switch k {
	case KindParseFailure:
		return "ParseFailure"
	case KindEmptyExpression:
		return "EmptyExpression"
	case KindUnsupportedFunction:
		return "UnsupportedFunction"
	case KindUnknownPlaceholder:
		return "UnknownPlaceholder"
	case KindInvalidLiteral:
		return "InvalidLiteral"
	case KindMissingSeparator:
		return "MissingSeparator"
	case KindLimitExceeded:
		return "LimitExceeded"
	case KindDivisionByZero:
		return "DivisionByZero"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the typed failure returned by every parser in this module.
// Pos is the byte offset the parser reached before failing, or -1 when the
// failure is not tied to a position.
type Error struct {
	Kind  ErrorKind
	Pos   int
	Token string
	Msg   string
}

// Sentinels for errors.Is; comparison is by Kind only.
var (
	ErrParseFailure        = &Error{Kind: KindParseFailure, Pos: -1}
	ErrEmptyExpression     = &Error{Kind: KindEmptyExpression, Pos: -1}
	ErrUnsupportedFunction = &Error{Kind: KindUnsupportedFunction, Pos: -1}
	ErrUnknownPlaceholder  = &Error{Kind: KindUnknownPlaceholder, Pos: -1}
	ErrInvalidLiteral      = &Error{Kind: KindInvalidLiteral, Pos: -1}
	ErrMissingSeparator    = &Error{Kind: KindMissingSeparator, Pos: -1}
	ErrLimitExceeded       = &Error{Kind: KindLimitExceeded, Pos: -1}
	ErrDivisionByZero      = &Error{Kind: KindDivisionByZero, Pos: -1}
)

// Errorf builds an *Error at pos.
func Errorf(kind ErrorKind, pos int, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// WithToken returns a copy of e carrying the offending token.
func (e *Error) WithToken(tok string) *Error {
	cp := *e
	cp.Token = tok
	return &cp
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Token != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Token)
	}
	if e.Pos >= 0 {
		return fmt.Sprintf("%s at position %d", msg, e.Pos)
	}
	return msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}
