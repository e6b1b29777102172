// Package regexprule defines the YAML format of stored regular expression
// tests: the item they apply to, their fragments and an optional sample line
// with the expected verdict.
package regexprule

import (
	"github.com/zabbix/zabbix-sub156/zbxexpr/constructor"
)

// Rule is one regular expression test definition.
type Rule struct {
	// Defaults to "host:key" when the document has no name.
	Name string
	Host string
	Key  string

	Expressions []constructor.Fragment

	// Sample line to run the expressions against. Empty means the rule is
	// only built, not tested.
	TestString string
	// Expected verdict for TestString, nil when not asserted.
	Expect *bool
}

// HasTest reports whether the rule carries a sample line to test.
func (r Rule) HasTest() bool { return r.TestString != "" }

// Fragments returns a copy of the rule's expressions.
func (r Rule) Fragments() []constructor.Fragment {
	out := make([]constructor.Fragment, len(r.Expressions))
	copy(out, r.Expressions)
	return out
}
