package timeparsing

import (
	"testing"
	"time"
)

func TestParseCompactDuration(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{input: "+6h", want: time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)},
		{input: "-1d", want: time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)},
		{input: "-2w", want: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		{input: "3m", want: time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)},
		{input: "-1y", want: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)},
		{input: "1x", wantErr: true},
		{input: "++1d", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCompactDuration(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCompactDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseCompactDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseRelativeTime(t *testing.T) {
	// Wednesday, January 15, 2025, 10:00 local
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)

	tests := []struct {
		name      string
		input     string
		wantMonth time.Month
		wantDay   int
		wantHour  int // -1 means don't check hour
		wantErr   bool
	}{
		{name: "compact", input: "-1d", wantMonth: time.January, wantDay: 14, wantHour: 10},
		{name: "date-only", input: "2025-01-02", wantMonth: time.January, wantDay: 2, wantHour: 0},
		{name: "RFC3339", input: "2025-01-03T14:30:00Z", wantMonth: time.January, wantDay: 3, wantHour: -1},
		{name: "date and time", input: "2025-01-04 08:15", wantMonth: time.January, wantDay: 4, wantHour: 8},
		{name: "yesterday", input: "yesterday", wantMonth: time.January, wantDay: 14, wantHour: -1},
		{name: "garbage", input: "not-a-date", wantErr: true},
		{name: "empty", input: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRelativeTime(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRelativeTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Year() != 2025 || got.Month() != tt.wantMonth || got.Day() != tt.wantDay {
				t.Errorf("ParseRelativeTime(%q) = %v, want 2025-%02d-%02d", tt.input, got, tt.wantMonth, tt.wantDay)
			}
			if tt.wantHour >= 0 && got.Hour() != tt.wantHour {
				t.Errorf("ParseRelativeTime(%q) hour = %d, want %d", tt.input, got.Hour(), tt.wantHour)
			}
		})
	}
}

func TestParsePast(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	got, err := ParsePast("2d", now)
	if err != nil {
		t.Fatalf("ParsePast failed: %v", err)
	}
	if want := now.AddDate(0, 0, -2); !got.Equal(want) {
		t.Errorf("ParsePast(2d) = %v, want %v", got, want)
	}

	if _, err := ParsePast("+1d", now); err == nil {
		t.Error("ParsePast should reject future times")
	}
	if _, err := ParsePast("2030-01-01", now); err == nil {
		t.Error("ParsePast should reject future dates")
	}
}
