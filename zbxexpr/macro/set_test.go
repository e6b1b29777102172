package macro_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zabbix/zabbix-sub156/zbxexpr/macro"
)

var compareTokens = []string{"<", ">", "<>", "and", "or"}

func TestSetMatcher_LongestPrefix(t *testing.T) {
	m := macro.NewSetMatcher(compareTokens)

	got, ok := m.Match("><", 0)
	require.True(t, ok)
	assert.Equal(t, macro.SetMatch{Token: ">", Length: 1}, got)

	got, ok = m.Match("<>=", 0)
	require.True(t, ok)
	assert.Equal(t, macro.SetMatch{Token: "<>", Length: 2}, got)

	got, ok = m.Match("x or y", 2)
	require.True(t, ok)
	assert.Equal(t, "or", got.Token)
}

func TestSetMatcher_NoMatch(t *testing.T) {
	m := macro.NewSetMatcher(compareTokens)

	tests := []struct {
		name   string
		source string
		pos    int
	}{
		{"not at offset", "x<y", 0},
		{"partial token", "an", 0},
		{"empty source", "", 0},
		{"offset past end", "<", 1},
		{"negative offset", "<", -1},
		{"case sensitive", "AND", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := m.Match(tt.source, tt.pos)
			assert.False(t, ok)
		})
	}
}

func TestSetMatcher_MatchLaterInWindowIsIgnored(t *testing.T) {
	m := macro.NewSetMatcher([]string{"abc", "b"})
	_, ok := m.Match("xbc", 0)
	assert.False(t, ok, "a token starting after pos must not be reported")
}

func TestSetMatcher_EmptyAndDuplicateTokens(t *testing.T) {
	m := macro.NewSetMatcher([]string{"", "=", "=", "=="})
	assert.Equal(t, []string{"=", "=="}, m.Tokens())

	got, ok := m.Match("==1", 0)
	require.True(t, ok)
	assert.Equal(t, 2, got.Length)

	empty := macro.NewSetMatcher(nil)
	_, ok = empty.Match("anything", 0)
	assert.False(t, ok)
}

func TestSetMatcher_ConcurrentUse(t *testing.T) {
	m := macro.NewSetMatcher(compareTokens)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got, ok := m.Match("a <> b", 2)
				if !ok || got.Token != "<>" {
					t.Errorf("unexpected %v %v", got, ok)
					return
				}
			}
		}()
	}
	wg.Wait()
}
