package persistence

import (
	"context"
	"time"
)

// BookingFilter narrows booking listing queries.
type BookingFilter struct {
	RoomID      string
	UserID      string
	StartsAfter *time.Time
	EndsBefore  *time.Time
}

// BookingRepository stores reservation rows and their attendee lists.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	// FindConfirmedOverlapping returns CONFIRMED bookings for the room whose
	// half-open [start, end) windows intersect the candidate window.
	FindConfirmedOverlapping(ctx context.Context, roomID string, start, end time.Time) ([]Booking, error)
	// UpdateBookingStatus performs an atomic compare-and-set on status,
	// returning ErrStaleStatus when the row is not in fromStatus anymore.
	UpdateBookingStatus(ctx context.Context, id, fromStatus, toStatus string, reason *string, at time.Time) (Booking, error)
}

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
