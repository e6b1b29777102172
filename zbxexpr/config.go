package zbxexpr

// Limits bounds the work a single parse, build or evaluation may do.
// A zero field means "no limit".
type Limits struct {
	// Longest source string a matcher or the evaluator accepts (bytes).
	MaxSourceLength int `json:"max_source_length" yaml:"max_source_length"`

	// Deepest parenthesis / "not" nesting accepted by the evaluator.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// Most fragments accepted by the regexp trigger constructor.
	MaxFragments int `json:"max_fragments" yaml:"max_fragments"`

	// Longest regular expression accepted by the regexp tester.
	MaxRegexLength int `json:"max_regex_length" yaml:"max_regex_length"`
}

// DefaultLimits matches the size of the frontend expression field.
func DefaultLimits() Limits {
	return Limits{
		MaxSourceLength: 65535,
		MaxDepth:        64,
		MaxFragments:    256,
		MaxRegexLength:  2048,
	}
}

// StrictLimits is meant for untrusted input such as the HTTP API.
func StrictLimits() Limits {
	return Limits{
		MaxSourceLength: 4096,
		MaxDepth:        16,
		MaxFragments:    32,
		MaxRegexLength:  255,
	}
}

// UnboundedLimits disables every guard.
func UnboundedLimits() Limits {
	return Limits{}
}

func (l Limits) WithMaxSourceLength(n int) Limits {
	l.MaxSourceLength = n
	return l
}

func (l Limits) WithMaxDepth(n int) Limits {
	l.MaxDepth = n
	return l
}

func (l Limits) WithMaxFragments(n int) Limits {
	l.MaxFragments = n
	return l
}

func (l Limits) WithMaxRegexLength(n int) Limits {
	l.MaxRegexLength = n
	return l
}

// CheckSource fails with LimitExceeded when source is longer than allowed.
func (l Limits) CheckSource(source string) error {
	if l.MaxSourceLength > 0 && len(source) > l.MaxSourceLength {
		return Errorf(KindLimitExceeded, l.MaxSourceLength, "source too long: %d bytes (max %d)", len(source), l.MaxSourceLength)
	}
	return nil
}

// CheckDepth fails with LimitExceeded when depth is over MaxDepth.
func (l Limits) CheckDepth(depth, pos int) error {
	if l.MaxDepth > 0 && depth > l.MaxDepth {
		return Errorf(KindLimitExceeded, pos, "expression nested too deep (max %d)", l.MaxDepth)
	}
	return nil
}
