package models

import (
	"testing"
	"time"
)

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		in     string
		want   TimeRange
		wantOK bool
	}{
		{"", TimeRangeWeek, true},
		{"day", TimeRangeDay, true},
		{"week", TimeRangeWeek, true},
		{"month", TimeRangeMonth, true},
		{"year", "", false},
		{"Week", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseTimeRange(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseTimeRange(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestTimeRangeSince(t *testing.T) {
	end := time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		r    TimeRange
		want time.Time
	}{
		{TimeRangeDay, time.Date(2026, 3, 30, 9, 0, 0, 0, time.UTC)},
		{TimeRangeWeek, time.Date(2026, 3, 24, 9, 0, 0, 0, time.UTC)},
		{TimeRangeMonth, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := tt.r.Since(end); !got.Equal(tt.want) {
			t.Errorf("%s.Since = %v, want %v", tt.r, got, tt.want)
		}
	}
}
