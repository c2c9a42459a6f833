package booking

import "time"

const minutesPerDay = 24 * 60

// Closure is a recurring weekly closed period, expressed as minutes from
// midnight on a weekday: [FromMinute, ToMinute). A whole closed day is
// {Weekday, 0, 1440}.
type Closure struct {
	Weekday    time.Weekday
	FromMinute int
	ToMinute   int
}

// OperatingCalendar evaluates whether instants and windows fall inside the
// service's open hours. Hours apply daily; closures are recurring weekly
// exceptions on top of them. Configuration is explicit so closure rules stay
// deterministic in tests.
type OperatingCalendar struct {
	openingHour int
	closingHour int
	closures    []Closure
	loc         *time.Location
}

// NewOperatingCalendar validates and builds a calendar. Hours are hours of
// day with opening strictly before closing; loc defaults to UTC.
func NewOperatingCalendar(openingHour, closingHour int, closures []Closure, loc *time.Location) (OperatingCalendar, error) {
	if openingHour < 0 || closingHour > 24 || openingHour >= closingHour {
		return OperatingCalendar{}, ErrInvalidCalendar
	}
	for _, c := range closures {
		if c.Weekday < time.Sunday || c.Weekday > time.Saturday {
			return OperatingCalendar{}, ErrInvalidCalendar
		}
		if c.FromMinute < 0 || c.ToMinute > minutesPerDay || c.FromMinute >= c.ToMinute {
			return OperatingCalendar{}, ErrInvalidCalendar
		}
	}
	if loc == nil {
		loc = time.UTC
	}

	out := make([]Closure, len(closures))
	copy(out, closures)

	return OperatingCalendar{
		openingHour: openingHour,
		closingHour: closingHour,
		closures:    out,
		loc:         loc,
	}, nil
}

// IsOpen reports whether the instant falls inside [opening, closing) on a day
// not covered by a closure at that time.
func (c OperatingCalendar) IsOpen(instant time.Time) bool {
	local := instant.In(c.loc)
	minute := local.Hour()*60 + local.Minute()

	if minute < c.openingHour*60 || minute >= c.closingHour*60 {
		return false
	}

	for _, closure := range c.closures {
		if closure.Weekday != local.Weekday() {
			continue
		}
		if minute >= closure.FromMinute && minute < closure.ToMinute {
			return false
		}
	}

	return true
}

// WindowFullyOpen reports whether the entire window lies within open hours.
// It materialises every closed sub-interval across the window's day span and
// rejects any intersection, so a window that starts and ends in open hours
// but crosses a closure (Friday 16:50 to 17:10 under a 17:00 Friday close)
// is still rejected.
func (c OperatingCalendar) WindowFullyOpen(w Window) bool {
	for _, closed := range c.closedWindows(w.Start, w.End) {
		if w.Overlaps(closed) {
			return false
		}
	}
	return true
}

// closedWindows expands the daily out-of-hours periods and weekly closures
// into concrete windows for every day the span [from, to) touches.
func (c OperatingCalendar) closedWindows(from, to time.Time) []Window {
	var closed []Window

	local := from.In(c.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)

	for day.Before(to) {
		appendWindow := func(fromMinute, toMinute int) {
			if fromMinute >= toMinute {
				return
			}
			closed = append(closed, Window{
				Start: c.minuteOfDay(day, fromMinute),
				End:   c.minuteOfDay(day, toMinute),
			})
		}

		appendWindow(0, c.openingHour*60)
		appendWindow(c.closingHour*60, minutesPerDay)
		for _, closure := range c.closures {
			if closure.Weekday == day.Weekday() {
				appendWindow(closure.FromMinute, closure.ToMinute)
			}
		}

		day = day.AddDate(0, 0, 1)
	}

	return closed
}

// minuteOfDay resolves a minute offset on a calendar day, staying correct
// across DST transitions by normalising through time.Date.
func (c OperatingCalendar) minuteOfDay(day time.Time, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, minute, 0, 0, c.loc)
}

// Location returns the timezone the calendar evaluates in.
func (c OperatingCalendar) Location() *time.Location {
	return c.loc
}
