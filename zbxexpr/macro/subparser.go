package macro

import (
	"errors"

	"github.com/zabbix/zabbix-sub156/zbxexpr"
)

// ErrContract is wrapped by the error returned when a sub-parser reports a
// success it cannot have had (non-positive length, or past the source end).
var ErrContract = errors.New("sub-parser contract violation")

// KeyMatch is what a KeyParser reports for a recognised item key.
type KeyMatch struct {
	Length     int
	ParamCount int
}

// KeyParser recognises an item key, optionally with a bracketed parameter list.
type KeyParser interface {
	ParseKey(source string, pos int) (KeyMatch, bool)
}

// FunctionMatch is what a FunctionParser reports for a recognised call.
type FunctionMatch struct {
	Length int
	Match  string
}

// FunctionParser recognises a trigger function call name(arg,...).
type FunctionParser interface {
	ParseFunction(source string, pos int) (FunctionMatch, bool)
}

// KeyParserFunc adapts a plain function to KeyParser.
type KeyParserFunc func(source string, pos int) (KeyMatch, bool)

func (f KeyParserFunc) ParseKey(source string, pos int) (KeyMatch, bool) { return f(source, pos) }

// FunctionParserFunc adapts a plain function to FunctionParser.
type FunctionParserFunc func(source string, pos int) (FunctionMatch, bool)

func (f FunctionParserFunc) ParseFunction(source string, pos int) (FunctionMatch, bool) {
	return f(source, pos)
}

// Option configures a matcher at construction time.
type Option func(*options)

type options struct {
	limits zbxexpr.Limits
}

func defaultOptions() options {
	return options{limits: zbxexpr.DefaultLimits()}
}

// WithLimits replaces the default limits.
func WithLimits(l zbxexpr.Limits) Option {
	return func(o *options) { o.limits = l }
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
