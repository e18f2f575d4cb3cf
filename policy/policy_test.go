package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constcast/fakednsproxy/answer"
)

func TestTableMatch(t *testing.T) {
	wildcard, err := answer.New([]interface{}{"1.2.3.4", "2.3.4.5"})
	require.NoError(t, err)

	table, err := NewTable([]Entry{
		{Pattern: "*foo.com", Policy: NewCustomAnswer(wildcard)},
		{Pattern: "foo.*", Policy: NewNXDomain()},
		{Pattern: "foo.com", Policy: NewForward()},
		{Pattern: "*", Policy: NewDefaultValue()},
	}, NewDefaultValue(), mustSpec(t, "127.0.0.1"))
	require.NoError(t, err)

	cases := []struct {
		name     string
		wantKind Kind
	}{
		{"barfoo.com", CustomAnswer},   // *foo.com
		{"foo.com", CustomAnswer},      // *foo.com matches before the exact "foo.com" rule
		{"foo.org", NXDomain},          // *foo.com does not match, foo.* does
		{"a.foo.com", CustomAnswer},    // *foo.com
		{"unrelated.test", DefaultValue}, // falls through to the trailing "*" rule
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, ok := table.Match(tc.name)
			require.True(t, ok)
			assert.Equal(t, tc.wantKind, p.Kind)
		})
	}
}

func TestTableMatchExactPatternIsPrefixNotFull(t *testing.T) {
	table, err := NewTable([]Entry{
		{Pattern: "foo.com", Policy: NewForward()},
	}, NewNXDomain(), nil)
	require.NoError(t, err)

	// An exact pattern only anchors at the start: it does not require a
	// full match, so "foo.com" matches "foo.com.evil.test" but "a.foo.com"
	// is not a prefix match for "foo.com" at all.
	_, ok := table.Match("a.foo.com")
	assert.False(t, ok)

	p, ok := table.Match("foo.com.evil.test")
	assert.True(t, ok)
	assert.Equal(t, Forward, p.Kind)
}

func TestTableMatchWildcardAlone(t *testing.T) {
	table, err := NewTable([]Entry{
		{Pattern: "*", Policy: NewNXDomain()},
	}, NewForward(), nil)
	require.NoError(t, err)

	for _, name := range []string{"a.com", "xn--80ak6aa92e.com", ""} {
		p, ok := table.Match(name)
		require.True(t, ok)
		assert.Equal(t, NXDomain, p.Kind)
	}
}

func TestTableMatchEmptyTableAlwaysFallsThrough(t *testing.T) {
	table, err := NewTable(nil, NewNXDomain(), nil)
	require.NoError(t, err)

	_, ok := table.Match("anything.test")
	assert.False(t, ok)
}

func TestTableMatchIsCaseInsensitiveAndTrimsTrailingDot(t *testing.T) {
	table, err := NewTable([]Entry{
		{Pattern: "FOO.COM", Policy: NewForward()},
	}, NewNXDomain(), nil)
	require.NoError(t, err)

	p, ok := table.Match("foo.com.")
	require.True(t, ok)
	assert.Equal(t, Forward, p.Kind)
}

func TestNewTableRejectsDefaultValueWithoutDefaultAnswer(t *testing.T) {
	_, err := NewTable(nil, NewDefaultValue(), nil)
	assert.ErrorIs(t, err, ErrBadConfiguration)
}

func mustSpec(t *testing.T, value interface{}) answer.Spec {
	t.Helper()
	s, err := answer.New(value)
	require.NoError(t, err)
	return s
}
