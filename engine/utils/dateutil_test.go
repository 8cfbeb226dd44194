package utils

import (
	"testing"
	"time"
)

func TestDateKey(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{
			name:     "afternoon UTC",
			input:    time.Date(2026, 3, 14, 14, 23, 45, 0, time.UTC),
			expected: "2026-03-14",
		},
		{
			name:     "just before midnight",
			input:    time.Date(2026, 3, 14, 23, 59, 59, 999999999, time.UTC),
			expected: "2026-03-14",
		},
		{
			name:     "non-UTC zone converts first",
			input:    time.Date(2026, 3, 14, 22, 0, 0, 0, time.FixedZone("CET", 1*60*60)),
			expected: "2026-03-14",
		},
		{
			name:     "non-UTC zone crossing midnight",
			input:    time.Date(2026, 3, 14, 23, 30, 0, 0, time.FixedZone("CET", -2*60*60)),
			expected: "2026-03-15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DateKey(tt.input); got != tt.expected {
				t.Errorf("DateKey(%v) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestYesterdayKey(t *testing.T) {
	input := time.Date(2026, 3, 1, 0, 30, 0, 0, time.UTC)
	if got := YesterdayKey(input); got != "2026-02-28" {
		t.Errorf("YesterdayKey(%v) = %s, want 2026-02-28", input, got)
	}
}

func TestTruncateToDateUTC(t *testing.T) {
	input := time.Date(2026, 3, 14, 14, 23, 45, 123456789, time.UTC)
	expected := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	result := TruncateToDateUTC(input)
	if !result.Equal(expected) {
		t.Errorf("TruncateToDateUTC(%v) = %v, want %v", input, result, expected)
	}
	if result.Location() != time.UTC {
		t.Errorf("Expected UTC timezone, got %v", result.Location())
	}

	// Idempotent
	if again := TruncateToDateUTC(result); !again.Equal(result) {
		t.Errorf("TruncateToDateUTC is not idempotent: %v vs %v", result, again)
	}
}

func TestPeriodStart(t *testing.T) {
	// 2026-03-14 is a Saturday
	at := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		period   string
		expected time.Time
	}{
		{"daily", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"weekly", time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"monthly", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"alltime", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			if got := PeriodStart(tt.period, at); !got.Equal(tt.expected) {
				t.Errorf("PeriodStart(%q, %v) = %v, want %v", tt.period, at, got, tt.expected)
			}
		})
	}
}

func TestPeriodStartWeeklyOnMonday(t *testing.T) {
	// A Monday maps to itself
	monday := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	expected := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if got := PeriodStart("weekly", monday); !got.Equal(expected) {
		t.Errorf("PeriodStart(weekly, monday) = %v, want %v", got, expected)
	}
}
