package models

import (
	"testing"
	"time"
)

func TestDayOfDate(t *testing.T) {
	cfg := ChallengeConfig{
		TotalDays: 75,
		StartDate: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name string
		when time.Time
		want int
	}{
		{"start day", time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 1},
		{"late evening same day", time.Date(2026, 1, 10, 23, 59, 0, 0, time.UTC), 1},
		{"next day", time.Date(2026, 1, 11, 8, 0, 0, 0, time.UTC), 2},
		{"before the program", time.Date(2026, 1, 9, 12, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.DayOfDate(tt.when); got != tt.want {
				t.Fatalf("DayOfDate(%v) = %d, want %d", tt.when, got, tt.want)
			}
		})
	}
}

func TestDayOfDateAcrossDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// spring forward on 2026-03-08 makes this span 71 hours, still four
	// calendar days
	cfg := ChallengeConfig{
		TotalDays: 75,
		StartDate: time.Date(2026, 3, 7, 0, 0, 0, 0, loc),
	}
	if got := cfg.DayOfDate(time.Date(2026, 3, 10, 12, 0, 0, 0, loc)); got != 4 {
		t.Fatalf("expected day 4 across the DST change, got %d", got)
	}
}

func TestWeekOfDay(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 7: 1, 8: 2, 14: 2, 15: 3, 75: 11}
	for day, want := range cases {
		if got := WeekOfDay(day); got != want {
			t.Fatalf("WeekOfDay(%d) = %d, want %d", day, got, want)
		}
	}
}
