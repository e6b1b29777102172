package macro_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zabbix/zabbix-sub156/zbxexpr"
	"github.com/zabbix/zabbix-sub156/zbxexpr/macro"
)

func TestBracketMacro_Parse(t *testing.T) {
	m := macro.NewLLDMacroMatcher()

	res, err := m.Parse("{#MACRO12.A_Z}", 0)
	require.NoError(t, err)
	assert.Equal(t, "MACRO12.A_Z", res.Name)
	assert.Equal(t, "{#MACRO12.A_Z}", res.Match)
	assert.Equal(t, 14, res.Length)
	assert.False(t, res.Continuation)
}

func TestBracketMacro_Continuation(t *testing.T) {
	m := macro.NewLLDMacroMatcher()

	res, err := m.Parse("x{#IFNAME}:", 1)
	require.NoError(t, err)
	assert.Equal(t, "IFNAME", res.Name)
	assert.Equal(t, 1, res.Pos)
	assert.True(t, res.Continuation)
}

func TestBracketMacro_Failures(t *testing.T) {
	m := macro.NewLLDMacroMatcher()

	tests := []struct {
		name   string
		source string
		pos    int
	}{
		{"lowercase", "{#a}", 2},
		{"empty name", "{#}", 2},
		{"wrong prefix", "{$A}", 1},
		{"no brace", "#A}", 0},
		{"unterminated", "{#ABC", 5},
		{"punctuation", "{#A-B}", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Parse(tt.source, 0)
			require.Error(t, err)
			assert.True(t, errors.Is(err, zbxexpr.ErrParseFailure))

			var zerr *zbxexpr.Error
			require.True(t, errors.As(err, &zerr))
			assert.Equal(t, tt.pos, zerr.Pos)
		})
	}
}

func TestBracketMacro_CustomPrefix(t *testing.T) {
	m := macro.NewBracketMacroMatcher('$')
	res, err := m.Parse("{$PORT}", 0)
	require.NoError(t, err)
	assert.Equal(t, "PORT", res.Name)
	assert.Equal(t, byte('$'), m.Prefix())
}

func TestBracketMacro_Idempotent(t *testing.T) {
	m := macro.NewLLDMacroMatcher()
	first, err := m.Parse("net.if.in[{#IFNAME}]", 10)
	require.NoError(t, err)

	again, err := m.Parse(first.Match, 0)
	require.NoError(t, err)
	assert.Equal(t, first.Name, again.Name)
	assert.Equal(t, first.Match, again.Match)
	assert.Equal(t, first.Length, again.Length)
}

func TestBracketMacro_FindAll(t *testing.T) {
	m := macro.NewLLDMacroMatcher()

	got, err := m.FindAll("{#A} and {{#B}x{#c} {#D.1}")
	require.NoError(t, err)

	names := make([]string, 0, len(got))
	for _, g := range got {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"A", "B", "D.1"}, names)
	assert.Equal(t, 10, got[1].Pos)
}

func TestBracketMacro_LimitExceeded(t *testing.T) {
	m := macro.NewLLDMacroMatcher(macro.WithLimits(zbxexpr.DefaultLimits().WithMaxSourceLength(4)))

	_, err := m.Parse("{#ABC}", 0)
	assert.True(t, errors.Is(err, zbxexpr.ErrLimitExceeded))

	_, err = m.FindAll("{#ABC}")
	assert.True(t, errors.Is(err, zbxexpr.ErrLimitExceeded))
}
