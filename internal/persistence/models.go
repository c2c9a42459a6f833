package persistence

import "time"

// User represents an account that can own bookings.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room represents a reservable room catalog entry.
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

// Attendee is one row on a booking's attendee list, ordered by position.
type Attendee struct {
	Name        string
	StudentID   *string
	IsCompanion bool
}

// Booking represents a reservation row. Status holds only CONFIRMED or
// CANCELLED; the completed view is derived by readers.
type Booking struct {
	ID                 string
	RoomID             string
	UserID             string
	Start              time.Time
	End                time.Time
	Purpose            string
	Attendees          []Attendee
	Status             string
	CancellationReason *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
