package regexptest

import (
	"regexp"
	"sync"

	"github.com/zabbix/zabbix-sub156/zbxexpr"
)

const (
	maxRegexNestingDepth = 10
	regexCacheSize       = 100
)

// regexCache holds compiled patterns, evicting the oldest entry when full.
type regexCache struct {
	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
	order []string
}

func newRegexCache() *regexCache {
	return &regexCache{
		cache: make(map[string]*regexp.Regexp),
		order: make([]string, 0, regexCacheSize),
	}
}

func (c *regexCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// validateRegexComplexity rejects patterns that are too long, nested deeper
// than maxRegexNestingDepth groups or have unbalanced parentheses.
// maxLength of 0 means no limit.
func validateRegexComplexity(pattern string, maxLength int) error {
	if maxLength > 0 && len(pattern) > maxLength {
		return zbxexpr.Errorf(zbxexpr.KindLimitExceeded, -1, "regular expression too long: %d chars (max %d)", len(pattern), maxLength)
	}

	depth, maxDepth := 0, 0
	escaped := false
	inClass := false
	for _, ch := range pattern {
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\':
			escaped = true
		case inClass:
			if ch == ']' {
				inClass = false
			}
		case ch == '[':
			inClass = true
		case ch == '(':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ch == ')':
			depth--
			if depth < 0 {
				return zbxexpr.Errorf(zbxexpr.KindInvalidLiteral, -1, "unbalanced parentheses in regular expression").WithToken(pattern)
			}
		}
	}
	if depth != 0 {
		return zbxexpr.Errorf(zbxexpr.KindInvalidLiteral, -1, "unbalanced parentheses in regular expression").WithToken(pattern)
	}
	if maxDepth > maxRegexNestingDepth {
		return zbxexpr.Errorf(zbxexpr.KindLimitExceeded, -1, "regular expression nesting too deep: %d levels (max %d)", maxDepth, maxRegexNestingDepth)
	}
	return nil
}

// compile validates and compiles pattern, using the cache when possible.
func (c *regexCache) compile(pattern string, maxLength int) (*regexp.Regexp, error) {
	c.mu.RLock()
	if re, ok := c.cache[pattern]; ok {
		c.mu.RUnlock()
		return re, nil
	}
	c.mu.RUnlock()

	if err := validateRegexComplexity(pattern, maxLength); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, zbxexpr.Errorf(zbxexpr.KindInvalidLiteral, -1, "invalid regular expression: %v", err).WithToken(pattern)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.cache[pattern]; ok {
		return cached, nil
	}
	if len(c.cache) >= regexCacheSize {
		oldest := c.order[0]
		delete(c.cache, oldest)
		c.order = c.order[1:]
	}
	c.cache[pattern] = re
	c.order = append(c.order, pattern)
	return re, nil
}
