package domain

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TestTimelineSubMonthFlights ensures flights under 28 days express months as
// a fraction of 4-week months.
func TestTimelineSubMonthFlights(t *testing.T) {
	cases := []struct {
		days       int
		wantWeeks  float64
		wantMonths float64
	}{
		{7, 1, 0.25},
		{14, 2, 0.5},
		{21, 3, 0.75},
	}
	for _, tc := range cases {
		start := date(2025, time.March, 1)
		tl := NewTimeline(start, start.AddDate(0, 0, tc.days))
		if tl.DurationWeeks != tc.wantWeeks {
			t.Fatalf("%d days: weeks = %v, want %v", tc.days, tl.DurationWeeks, tc.wantWeeks)
		}
		if tl.DurationMonths != tc.wantMonths {
			t.Fatalf("%d days: months = %v, want %v", tc.days, tl.DurationMonths, tc.wantMonths)
		}
		if tl.DurationMonths != tl.DurationWeeks/4 {
			t.Fatalf("%d days: months %v != weeks/4 %v", tc.days, tl.DurationMonths, tl.DurationWeeks/4)
		}
	}
}

// TestTimelineWholeMonthFlights ensures flights of 28 days or more round to
// whole 30-day months, never below one.
func TestTimelineWholeMonthFlights(t *testing.T) {
	cases := []struct {
		days       int
		wantMonths float64
	}{
		{28, 1},
		{30, 1},
		{45, 2}, // 45/30 rounds to 2
		{90, 3},
		{365, 12},
	}
	for _, tc := range cases {
		start := date(2025, time.January, 1)
		tl := NewTimeline(start, start.Add(time.Duration(tc.days)*24*time.Hour))
		if tl.DurationMonths != tc.wantMonths {
			t.Fatalf("%d days: months = %v, want %v", tc.days, tl.DurationMonths, tc.wantMonths)
		}
	}
}

func TestTimelineInvertedDatesClampToZero(t *testing.T) {
	tl := NewTimeline(date(2025, time.March, 10), date(2025, time.March, 1))
	if tl.DurationWeeks != 0 || tl.DurationMonths != 0 {
		t.Fatalf("inverted dates: weeks=%v months=%v, want zero", tl.DurationWeeks, tl.DurationMonths)
	}
}

func TestStoredReachFallsBackToMax(t *testing.T) {
	if got := (ReachEstimate{Min: 100, Max: 500}).StoredReach(); got != 100 {
		t.Fatalf("StoredReach = %d, want min 100", got)
	}
	if got := (ReachEstimate{Max: 500}).StoredReach(); got != 500 {
		t.Fatalf("StoredReach = %d, want max fallback 500", got)
	}
}
