package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rocks/internal/core/domain"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected domain.Version
		rendered string
	}{
		{"1", domain.Version{Major: 1}, "1.0.0"},
		{"1.0", domain.Version{Major: 1}, "1.0.0"},
		{"1.2.3", domain.Version{Major: 1, Minor: 2, Patch: 3}, "1.2.3"},
		{"1.2.3-2", domain.Version{Major: 1, Minor: 2, Patch: 3, Revision: 2}, "1.2.3-2"},
		{"1.2.3-0", domain.Version{Major: 1, Minor: 2, Patch: 3}, "1.2.3"},
		{"2.0~1.4", domain.Version{Major: 2, Pre: []uint64{1, 4}}, "2.0.0~1.4"},
		{"1.0-3~2", domain.Version{Major: 1, Revision: 3, Pre: []uint64{2}}, "1.0.0-3~2"},
		{"v3.1", domain.Version{Major: 3, Minor: 1}, "3.1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := domain.ParseVersion(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(v), "got %s", v)
			assert.Equal(t, tt.rendered, v.String())
		})
	}
}

func TestParseVersion_Invalid(t *testing.T) {
	for _, input := range []string{"", "1.2.3.4", "a.b", "1..2", "1.2-", "1.2~", "1.2~x", "-1"} {
		t.Run(input, func(t *testing.T) {
			_, err := domain.ParseVersion(input)
			require.ErrorIs(t, err, domain.ErrInvalidVersion)
		})
	}
}

func TestVersion_Compare(t *testing.T) {
	ordered := []string{
		"0.9.9",
		"1.0.0~1",
		"1.0.0~1.0",
		"1.0.0~2",
		"1.0.0",
		"1.0.0-1",
		"1.0.0-2",
		"1.0.1",
		"1.10.0",
		"2.0.0",
	}

	for i := range ordered {
		for j := range ordered {
			a := domain.MustParseVersion(ordered[i])
			b := domain.MustParseVersion(ordered[j])
			want := 0
			switch {
			case i < j:
				want = -1
			case i > j:
				want = 1
			}
			assert.Equal(t, want, a.Compare(b), "%s vs %s", ordered[i], ordered[j])
		}
	}
}

func TestVersion_EqualIgnoresWrittenForm(t *testing.T) {
	assert.True(t, domain.MustParseVersion("1.0").Equal(domain.MustParseVersion("1.0.0")))
	assert.True(t, domain.MustParseVersion("1").Less(domain.MustParseVersion("1.0.1")))
	assert.True(t, domain.MustParseVersion("1.0~1").IsPrerelease())
}

func TestVersion_Text(t *testing.T) {
	v := domain.MustParseVersion("1.4-2")
	text, err := v.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.4.0-2", string(text))

	var back domain.Version
	require.NoError(t, back.UnmarshalText(text))
	assert.True(t, v.Equal(back))

	require.ErrorIs(t, back.UnmarshalText([]byte("nope")), domain.ErrInvalidVersion)
}

func TestSortVersionsDesc(t *testing.T) {
	vs := []domain.Version{
		domain.MustParseVersion("1.0"),
		domain.MustParseVersion("2.0~1"),
		domain.MustParseVersion("1.5"),
		domain.MustParseVersion("2.0"),
	}

	domain.SortVersionsDesc(vs)

	got := make([]string, 0, len(vs))
	for _, v := range vs {
		got = append(got, v.String())
	}
	assert.Equal(t, []string{"2.0.0", "2.0.0~1", "1.5.0", "1.0.0"}, got)
}
