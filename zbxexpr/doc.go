// Package zbxexpr holds what the trigger-expression parsers share: the error
// taxonomy and the Limits that bound a single parse or evaluation.
//
// The parsers themselves live in subpackages:
//
//	macro       position-based matchers for {#MACRO} and {host:key.func()} macros
//	itemkey     item key sub-parser (key[param,...])
//	funccall    trigger function sub-parser (name(arg,...))
//	constructor regexp trigger-expression constructor
//	evaluator   unit-aware boolean expression evaluator
//	regexptest  regular expression test runner built on all of the above
package zbxexpr
