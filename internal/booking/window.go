package booking

import "time"

// Window is a half-open time interval [Start, End) representing the span of a
// reservation. End is always strictly after Start for a valid window.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow constructs a validated window. It fails with ErrInvalidWindow when
// end is not strictly after start.
func NewWindow(start, end time.Time) (Window, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return Window{}, ErrInvalidWindow
	}
	return Window{Start: start, End: end}, nil
}

// Overlaps reports whether two half-open windows intersect. Touching endpoints
// do not overlap: [10:00,11:00) and [11:00,12:00) are disjoint.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

// Contains reports whether the instant falls inside the window.
func (w Window) Contains(instant time.Time) bool {
	return !instant.Before(w.Start) && instant.Before(w.End)
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// DurationMinutes returns the length of the window in whole minutes.
func (w Window) DurationMinutes() int {
	return int(w.End.Sub(w.Start) / time.Minute)
}

// IsZero reports whether the window carries no bounds.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}
