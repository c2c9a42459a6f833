package application

import (
	"time"

	"github.com/example/room-reservation/internal/booking"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// AttendeeInput captures one caller supplied attendee entry.
type AttendeeInput struct {
	Name      string
	StudentID *string
	Companion bool
}

// BookingInput captures caller provided booking fields. The creator is not
// listed; the coordinator prepends a synthetic non-companion entry for them.
type BookingInput struct {
	RoomID    string
	Start     time.Time
	End       time.Time
	Purpose   string
	Attendees []AttendeeInput
}

// ReserveParams wraps the data required to create a booking.
type ReserveParams struct {
	Principal Principal
	Input     BookingInput
}

// CancelParams wraps the data required to cancel a booking.
type CancelParams struct {
	Principal Principal
	BookingID string
	Reason    string
}

// ListBookingsParams wraps the data required to list bookings.
type ListBookingsParams struct {
	Principal Principal
	RoomID    string
	UserID    string
	From      *time.Time
	To        *time.Time
}

// BookingRepositoryFilter narrows queries issued to the booking repository.
type BookingRepositoryFilter struct {
	RoomID      string
	UserID      string
	StartsAfter *time.Time
	EndsBefore  *time.Time
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name        string
	MinCapacity int
	MaxCapacity int
	Description string
	Features    []string
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Input     RoomInput
}

// UserInput captures caller provided user attributes.
type UserInput struct {
	Email       string
	DisplayName string
	Password    string
	IsAdmin     bool
}

// User represents an account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user. An empty
// Password leaves the stored hash unchanged.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}

// ConflictCheckResult is the read-only pre-flight answer for a candidate window.
type ConflictCheckResult struct {
	HasConflict bool
	Conflicts   []ConflictDetail
}

// BookingView pairs a stored booking with its read-time derived status.
type BookingView struct {
	Booking         booking.Booking
	EffectiveStatus booking.Status
}
