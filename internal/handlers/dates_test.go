package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in    string
		upper bool
		want  time.Time
	}{
		{"2024-03-10", false, day},
		{"2024-03-10", true, day.Add(24*time.Hour - time.Millisecond)},
		{" 2024-03-10 ", false, day},
		{"2024-03-10T08:30:00Z", false, day.Add(8*time.Hour + 30*time.Minute)},
		{"2024-03-10T08:30:00+02:00", false, day.Add(6*time.Hour + 30*time.Minute)},
		{"2024-03-10T08:30:00.250", false, day.Add(8*time.Hour + 30*time.Minute + 250*time.Millisecond)},
		{"2024-03-10T08:30", true, day.Add(8*time.Hour + 30*time.Minute)},
		{"2024-03-10 08:30:00", false, day.Add(8*time.Hour + 30*time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDate(tt.in, tt.upper)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestParseDateRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "yesterday", "10/03/2024", "2024-13-01"} {
		_, err := parseDate(in, false)
		assert.Error(t, err, in)
	}
}
