package regexprule

import (
	"strings"
	"testing"

	"github.com/zabbix/zabbix-sub156/zbxexpr/constructor"
)

func TestLoadRuleYAML(t *testing.T) {
	src := `
name: app errors
host: web-01
key: log[/var/log/app.log]
test_string: "error: disk full"
expect: true
expressions:
  - value: regexp(^error) or regexp(^fatal)
    type: match
  - value: iregexp(debug)
    type: no_match
  - value: regexp(disk)
`
	r, err := LoadRuleYAML([]byte(src))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if r.Name != "app errors" || r.Host != "web-01" || r.Key != "log[/var/log/app.log]" {
		t.Fatalf("bad header: %+v", r)
	}
	if len(r.Expressions) != 3 {
		t.Fatalf("expressions = %d", len(r.Expressions))
	}
	want := []constructor.MatchType{constructor.Match, constructor.NoMatch, constructor.Match}
	for i, f := range r.Expressions {
		if f.Type != want[i] {
			t.Fatalf("expression %d type = %v", i, f.Type)
		}
	}
	if !r.HasTest() || r.Expect == nil || !*r.Expect {
		t.Fatalf("bad test fields: %+v", r)
	}

	frags := r.Fragments()
	frags[0].Value = "changed"
	if r.Expressions[0].Value == "changed" {
		t.Fatalf("Fragments must return a copy")
	}
}

func TestLoadRuleYAMLDefaultName(t *testing.T) {
	r, err := LoadRuleYAML([]byte("host: h\nkey: k\nexpressions:\n  - value: regexp(a)\n"))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if r.Name != "h:k" {
		t.Fatalf("name = %q", r.Name)
	}
	if r.HasTest() || r.Expect != nil {
		t.Fatalf("unexpected test fields: %+v", r)
	}
}

func TestLoadRuleYAMLErrors(t *testing.T) {
	cases := map[string]string{
		"missing host":        "key: k\nexpressions:\n  - value: regexp(a)\n",
		"missing key":         "host: h\nexpressions:\n  - value: regexp(a)\n",
		"missing expressions": "host: h\nkey: k\n",
		"empty value":         "host: h\nkey: k\nexpressions:\n  - value: ''\n",
		"invalid match type":  "host: h\nkey: k\nexpressions:\n  - value: regexp(a)\n    type: sometimes\n",
		"expect without test": "host: h\nkey: k\nexpect: false\nexpressions:\n  - value: regexp(a)\n",
		"not yaml":            "host: [h\n",
	}
	for want, src := range cases {
		_, err := LoadRuleYAML([]byte(src))
		if err == nil {
			t.Fatalf("%s: expected error", want)
		}
		if want != "not yaml" && want != "invalid match type" && !strings.Contains(err.Error(), strings.TrimPrefix(want, "missing ")) {
			t.Fatalf("%s: err = %v", want, err)
		}
	}
}
