package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatLabel(t *testing.T) {
	cases := map[string]string{
		"2025-01-01T00:00:00":       "01-01 00:00",
		"2025-12-31T23:59:59":       "12-31 23:59",
		"2025-02-01T10:00:00.123":   "02-01 10:00",
		"2025-02-01T10:00:00+03:00": "02-01 10:00",
		"2025-02-01T10:00:00Z":      "02-01 10:00",
		"2025-02-01 10:00:00":       "02-01 10:00",
		"2025-02-01T10:00":          "02-01 10:00",
		"":                          "",
		"   ":                       "",
		"2025-01":                   "",
		"not a timestamp":           "",
		"2025-13-45T99:00:00":       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatLabel(in), "input %q", in)
	}
}

func TestParseTimestampKeepsOffset(t *testing.T) {
	ts, ok := ParseTimestamp("2025-02-01T10:00:00+03:00")
	assert.True(t, ok)
	_, offset := ts.Zone()
	assert.Equal(t, 3*3600, offset)
}
