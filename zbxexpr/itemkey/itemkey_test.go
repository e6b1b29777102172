package itemkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p := New()

	tests := []struct {
		name   string
		source string
		key    string
		params []string
		length int
	}{
		{"bare", "agent.ping", "agent.ping", nil, 10},
		{"stops at paren", "icmpping.last(0)", "icmpping.last", nil, 13},
		{"empty params", "key[]", "key", []string{""}, 5},
		{"plain params", "net.if.in[eth0,bytes]", "net.if.in", []string{"eth0", "bytes"}, 21},
		{"quoted", `log["/tmp/a,b",x]`, "log", []string{"/tmp/a,b", "x"}, 17},
		{"escaped quote", `k["a\"b"]`, "k", []string{`a"b`}, 9},
		{"array", "k[[a,b],c]", "k", []string{"[a,b]", "c"}, 10},
		{"spaces", "k[ a , b ]", "k", []string{"a ", "b "}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := p.Parse(tt.source, 0)
			require.True(t, ok)
			assert.Equal(t, tt.key, res.Key)
			assert.Equal(t, tt.params, res.Params)
			assert.Equal(t, tt.length, res.Length)
			assert.Equal(t, tt.source[:tt.length], res.Match)
		})
	}
}

func TestParseFailures(t *testing.T) {
	p := New()
	for _, src := range []string{"", "[a]", "k[a", `k["a]`, "k[[a,[b]]]", "k[a]]x", "k[\"a\"b]"} {
		_, ok := p.Parse(src, 0)
		if src == "k[a]]x" {
			// the key itself is fine; trailing text belongs to the caller
			assert.True(t, ok, src)
			continue
		}
		assert.False(t, ok, src)
	}
}

func TestParseKey(t *testing.T) {
	km, ok := New().ParseKey("{h:system.cpu.load[all,avg1].avg(5m)}", 3)
	require.True(t, ok)
	assert.Equal(t, 25, km.Length)
	assert.Equal(t, 2, km.ParamCount)

	_, ok = New().ParseKey("abc", 3)
	assert.False(t, ok)
}
