package regexprule

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zabbix/zabbix-sub156/zbxexpr/constructor"
)

type rawExpression struct {
	Value string `yaml:"value"`
	Type  string `yaml:"type"`
}

type rawRule struct {
	Name        string          `yaml:"name"`
	Host        string          `yaml:"host"`
	Key         string          `yaml:"key"`
	TestString  string          `yaml:"test_string"`
	Expect      *bool           `yaml:"expect"`
	Expressions []rawExpression `yaml:"expressions"`
}

// LoadRuleYAML parses one rule document.
func LoadRuleYAML(b []byte) (Rule, error) {
	var rr rawRule
	if err := yaml.Unmarshal(b, &rr); err != nil {
		return Rule{}, err
	}
	host := strings.TrimSpace(rr.Host)
	key := strings.TrimSpace(rr.Key)
	if host == "" {
		return Rule{}, errors.New("missing host")
	}
	if key == "" {
		return Rule{}, errors.New("missing key")
	}
	if len(rr.Expressions) == 0 {
		return Rule{}, errors.New("missing expressions block")
	}

	frags := make([]constructor.Fragment, 0, len(rr.Expressions))
	for i, e := range rr.Expressions {
		if strings.TrimSpace(e.Value) == "" {
			return Rule{}, fmt.Errorf("expression %d: empty value", i+1)
		}
		f := constructor.Fragment{Value: e.Value}
		// "type" may be omitted, meaning match
		if e.Type != "" {
			if err := f.Type.UnmarshalText([]byte(e.Type)); err != nil {
				return Rule{}, fmt.Errorf("expression %d: %w", i+1, err)
			}
		}
		frags = append(frags, f)
	}

	if rr.Expect != nil && rr.TestString == "" {
		return Rule{}, errors.New("expect without test_string")
	}

	name := strings.TrimSpace(rr.Name)
	if name == "" {
		name = host + ":" + key
	}
	return Rule{
		Name:        name,
		Host:        host,
		Key:         key,
		Expressions: frags,
		TestString:  rr.TestString,
		Expect:      rr.Expect,
	}, nil
}
