package booking

import "errors"

var (
	// ErrInvalidWindow is returned when a window's end is not strictly after
	// its start.
	ErrInvalidWindow = errors.New("booking: invalid window")
	// ErrInvalidCalendar is returned when operating hours configuration is
	// inconsistent.
	ErrInvalidCalendar = errors.New("booking: invalid operating calendar")
)
