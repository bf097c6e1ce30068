package dateutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"iso", "2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"turkish dotted", "15.01.2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"turkish slashed", "15/01/2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"dashed day first", "15-01-2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"single digit", "5.1.2024", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"with time", "15.01.2024 13:45:00", time.Date(2024, 1, 15, 13, 45, 0, 0, time.UTC)},
		{"iso with time", "2024-01-15 13:45:00", time.Date(2024, 1, 15, 13, 45, 0, 0, time.UTC)},
		{"padded whitespace", "  15.01.2024  ", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDayFirstPriority(t *testing.T) {
	// 05.03.2024 is March 5th, not May 3rd: day-first formats win over
	// US-style month-first.
	got, err := Parse("05.03.2024")
	require.NoError(t, err)
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 5, got.Day())

	got, err = Parse("05/03/2024")
	require.NoError(t, err)
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 5, got.Day())
}

func TestParseFailure(t *testing.T) {
	for _, input := range []string{"", "   ", "not a date", "99.99.2024"} {
		_, err := Parse(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestNormalizeISO(t *testing.T) {
	got, ok := NormalizeISO("15.01.2024")
	assert.True(t, ok)
	assert.Equal(t, "2024-01-15", got)

	// Unparsable strings pass through unchanged.
	got, ok = NormalizeISO("garbage")
	assert.False(t, ok)
	assert.Equal(t, "garbage", got)
}

func TestToISO(t *testing.T) {
	assert.Equal(t, "2024-01-15", ToISO(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)))
	assert.Equal(t, "", ToISO(time.Time{}))
}

func TestClean(t *testing.T) {
	assert.Equal(t, "15 January 2024", Clean("  15   January\t2024 "))
}
