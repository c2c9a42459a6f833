package booking

import (
	"errors"
	"testing"
	"time"
)

// weekdayAt builds an instant on a fixed week in March 2026 (Monday the 2nd
// through Sunday the 8th) so closure rules land on known weekdays.
func weekdayAt(t *testing.T, weekday time.Weekday, hour, minute int) time.Time {
	t.Helper()
	// 2026-03-02 is a Monday.
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(time.Monday) + 7) % 7
	day := base.AddDate(0, 0, offset)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

func testCalendar(t *testing.T, closures ...Closure) OperatingCalendar {
	t.Helper()
	cal, err := NewOperatingCalendar(8, 22, closures, time.UTC)
	if err != nil {
		t.Fatalf("NewOperatingCalendar: %v", err)
	}
	return cal
}

func TestNewOperatingCalendar_RejectsInvalidConfiguration(t *testing.T) {
	t.Parallel()

	if _, err := NewOperatingCalendar(22, 8, nil, time.UTC); !errors.Is(err, ErrInvalidCalendar) {
		t.Fatalf("expected ErrInvalidCalendar for inverted hours, got %v", err)
	}
	if _, err := NewOperatingCalendar(8, 25, nil, time.UTC); !errors.Is(err, ErrInvalidCalendar) {
		t.Fatalf("expected ErrInvalidCalendar for closing past midnight, got %v", err)
	}
	if _, err := NewOperatingCalendar(8, 22, []Closure{{Weekday: time.Friday, FromMinute: 1020, ToMinute: 900}}, time.UTC); !errors.Is(err, ErrInvalidCalendar) {
		t.Fatalf("expected ErrInvalidCalendar for inverted closure, got %v", err)
	}
}

func TestOperatingCalendar_IsOpen(t *testing.T) {
	t.Parallel()

	cal := testCalendar(t,
		Closure{Weekday: time.Saturday, FromMinute: 0, ToMinute: minutesPerDay},
		Closure{Weekday: time.Friday, FromMinute: 17 * 60, ToMinute: 22 * 60},
	)

	cases := map[string]struct {
		instant time.Time
		open    bool
	}{
		"weekday mid-morning":         {instant: weekdayAt(t, time.Tuesday, 10, 0), open: true},
		"before opening":              {instant: weekdayAt(t, time.Tuesday, 7, 59), open: false},
		"at opening":                  {instant: weekdayAt(t, time.Tuesday, 8, 0), open: true},
		"at closing":                  {instant: weekdayAt(t, time.Tuesday, 22, 0), open: false},
		"saturday is fully closed":    {instant: weekdayAt(t, time.Saturday, 12, 0), open: false},
		"friday before early close":   {instant: weekdayAt(t, time.Friday, 16, 59), open: true},
		"friday at early close":       {instant: weekdayAt(t, time.Friday, 17, 0), open: false},
		"friday evening stays closed": {instant: weekdayAt(t, time.Friday, 20, 0), open: false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := cal.IsOpen(tc.instant); got != tc.open {
				t.Fatalf("IsOpen(%v) = %v, want %v", tc.instant, got, tc.open)
			}
		})
	}
}

func TestOperatingCalendar_WindowFullyOpen(t *testing.T) {
	t.Parallel()

	cal := testCalendar(t,
		Closure{Weekday: time.Saturday, FromMinute: 0, ToMinute: minutesPerDay},
		Closure{Weekday: time.Friday, FromMinute: 17 * 60, ToMinute: 22 * 60},
	)

	cases := map[string]struct {
		start time.Time
		end   time.Time
		open  bool
	}{
		"inside open hours": {
			start: weekdayAt(t, time.Tuesday, 10, 0),
			end:   weekdayAt(t, time.Tuesday, 11, 0),
			open:  true,
		},
		"ends exactly at closing": {
			start: weekdayAt(t, time.Tuesday, 21, 0),
			end:   weekdayAt(t, time.Tuesday, 22, 0),
			open:  true,
		},
		"starts before opening": {
			start: weekdayAt(t, time.Tuesday, 7, 30),
			end:   weekdayAt(t, time.Tuesday, 9, 0),
			open:  false,
		},
		"runs past closing": {
			start: weekdayAt(t, time.Tuesday, 21, 30),
			end:   weekdayAt(t, time.Tuesday, 22, 30),
			open:  false,
		},
		"straddles the friday closure": {
			// Starts and ends at instants that are individually inside the
			// daily hours, but the window crosses the 17:00 Friday close.
			start: weekdayAt(t, time.Friday, 16, 50),
			end:   weekdayAt(t, time.Friday, 17, 10),
			open:  false,
		},
		"ends exactly at the friday closure": {
			start: weekdayAt(t, time.Friday, 16, 0),
			end:   weekdayAt(t, time.Friday, 17, 0),
			open:  true,
		},
		"entirely on a closed saturday": {
			start: weekdayAt(t, time.Saturday, 10, 0),
			end:   weekdayAt(t, time.Saturday, 11, 0),
			open:  false,
		},
		"spans midnight across days": {
			start: weekdayAt(t, time.Tuesday, 21, 0),
			end:   weekdayAt(t, time.Wednesday, 9, 0),
			open:  false,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := mustWindow(t, tc.start, tc.end)
			if got := cal.WindowFullyOpen(w); got != tc.open {
				t.Fatalf("WindowFullyOpen(%v) = %v, want %v", w, got, tc.open)
			}
		})
	}
}
