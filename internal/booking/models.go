package booking

import "time"

// Status tracks the lifecycle of a booking. The only legal write transition is
// StatusConfirmed to StatusCancelled; StatusCompleted is derived at read time
// once the window has elapsed.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// Room represents a reservable room in the catalog. Capacity bounds are
// consulted by validation rules, never enforced by the room itself.
type Room struct {
	ID          string
	Name        string
	MinCapacity int
	MaxCapacity int
	Description string
	Features    []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Attendee is one entry on a booking's attendee list. The creator is always
// present as the first, non-companion entry; attendees are immutable once the
// booking exists.
type Attendee struct {
	Name        string
	StudentID   *string
	IsCompanion bool
}

// Booking represents a confirmed or cancelled room reservation.
type Booking struct {
	ID                 string
	RoomID             string
	UserID             string
	Window             Window
	Purpose            string
	Attendees          []Attendee
	Status             Status
	CancellationReason *string
	CreatedAt          time.Time
}

// EffectiveStatus derives the read-time status: a confirmed booking whose
// window has fully elapsed reads as completed. No write ever records
// StatusCompleted.
func (b Booking) EffectiveStatus(now time.Time) Status {
	if b.Status == StatusConfirmed && !b.Window.End.After(now) {
		return StatusCompleted
	}
	return b.Status
}

// Elapsed reports whether the booking's window ended at or before now.
func (b Booking) Elapsed(now time.Time) bool {
	return !b.Window.End.After(now)
}
