package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowEnd(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		days  int
		want  time.Time
	}{
		{name: "thirty days inclusive", start: Date(2024, 6, 11), days: 30, want: Date(2024, 7, 10)},
		{name: "single day", start: Date(2024, 1, 1), days: 1, want: Date(2024, 1, 1)},
		{name: "crosses leap day", start: Date(2024, 2, 20), days: 10, want: Date(2024, 2, 29)},
		{name: "non positive days", start: Date(2024, 1, 1), days: 0, want: Date(2024, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WindowEnd(tt.start, tt.days))
		})
	}
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{name: "iso", raw: "2023-01-01", want: Date(2023, 1, 1)},
		{name: "day first dashes", raw: "15-03-2024", want: Date(2024, 3, 15)},
		{name: "day first slashes", raw: " 15/03/2024 ", want: Date(2024, 3, 15)},
		{name: "rfc3339 drops time", raw: "2024-03-15T22:10:00+02:00", want: Date(2024, 3, 15)},
		{name: "empty", raw: "", wantErr: true},
		{name: "garbage", raw: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDay(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTodayUsesClockLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	c := Fixed{T: time.Date(2024, 6, 1, 1, 30, 0, 0, loc)}

	assert.Equal(t, Date(2024, 6, 1), Today(c))
}

func TestNewReal(t *testing.T) {
	r, err := NewReal("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, r.Loc)

	_, err = NewReal("Not/AZone")
	assert.Error(t, err)
}
