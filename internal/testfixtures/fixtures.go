// Package testfixtures provides deterministic builders for booking domain
// values and persistence rows, plus a controllable clock and id generator.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-reservation/internal/booking"
	"github.com/example/room-reservation/internal/persistence"
)

var (
	userCounter    uint64
	roomCounter    uint64
	bookingCounter uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It falls on a Monday so calendar driven tests are predictable.
func ReferenceTime() time.Time {
	return referenceTime
}

// UserFixture is a deterministic user record for persistence tests.
type UserFixture struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// AsAdmin marks the fixture as an administrator.
func AsAdmin() UserOption {
	return func(f *UserFixture) { f.IsAdmin = true }
}

// WithUserID overrides the generated user identifier and derived fields.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
		f.Email = id + "@example.com"
		f.PasswordHash = "hash-" + id
	}
}

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        id + "@example.com",
		DisplayName:  fmt.Sprintf("User %03d", idx),
		PasswordHash: "hash-" + id,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// AsPersistence converts the fixture into a persistence row.
func (f UserFixture) AsPersistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		IsAdmin:      f.IsAdmin,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// RoomFixture is a deterministic room record.
type RoomFixture struct {
	ID          string
	Name        string
	MinCapacity int
	MaxCapacity int
	Description string
	Features    []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// WithRoomID overrides the generated room identifier.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) { f.ID = id }
}

// WithCapacity sets the room capacity bounds.
func WithCapacity(min, max int) RoomOption {
	return func(f *RoomFixture) {
		f.MinCapacity = min
		f.MaxCapacity = max
	}
}

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := RoomFixture{
		ID:          fmt.Sprintf("room-%03d", idx),
		Name:        fmt.Sprintf("Study Room %03d", idx),
		MinCapacity: 1,
		MaxCapacity: 8,
		Description: "fixture room",
		Features:    []string{"whiteboard"},
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// AsDomain converts the fixture into a domain room.
func (f RoomFixture) AsDomain() booking.Room {
	return booking.Room{
		ID:          f.ID,
		Name:        f.Name,
		MinCapacity: f.MinCapacity,
		MaxCapacity: f.MaxCapacity,
		Description: f.Description,
		Features:    append([]string(nil), f.Features...),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// AsPersistence converts the fixture into a persistence row.
func (f RoomFixture) AsPersistence() persistence.Room {
	return persistence.Room{
		ID:          f.ID,
		Name:        f.Name,
		MinCapacity: f.MinCapacity,
		MaxCapacity: f.MaxCapacity,
		Description: f.Description,
		Features:    append([]string(nil), f.Features...),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// BookingFixture is a deterministic booking record. Windows step forward one
// day per fixture so generated bookings never conflict with each other.
type BookingFixture struct {
	ID                 string
	RoomID             string
	UserID             string
	Start              time.Time
	End                time.Time
	Purpose            string
	Attendees          []booking.Attendee
	Status             booking.Status
	CancellationReason *string
	CreatedAt          time.Time
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// ForRoom assigns the booking to the given room.
func ForRoom(roomID string) BookingOption {
	return func(f *BookingFixture) { f.RoomID = roomID }
}

// OwnedBy assigns the booking creator.
func OwnedBy(userID string) BookingOption {
	return func(f *BookingFixture) { f.UserID = userID }
}

// WithBookingWindow overrides the reserved window.
func WithBookingWindow(start, end time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.Start = start
		f.End = end
	}
}

// Cancelled marks the fixture cancelled with the supplied reason.
func Cancelled(reason string) BookingOption {
	return func(f *BookingFixture) {
		f.Status = booking.StatusCancelled
		f.CancellationReason = &reason
	}
}

// NewBookingFixture returns a deterministic booking fixture with optional
// overrides.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	day := referenceTime.AddDate(0, 0, int(idx))
	start := time.Date(day.Year(), day.Month(), day.Day(), 10, 0, 0, 0, time.UTC)
	fixture := BookingFixture{
		ID:      fmt.Sprintf("booking-%03d", idx),
		RoomID:  "room-001",
		UserID:  "user-001",
		Start:   start,
		End:     start.Add(time.Hour),
		Purpose: "fixture booking",
		Attendees: []booking.Attendee{
			{Name: fmt.Sprintf("User %03d", idx)},
		},
		Status:    booking.StatusConfirmed,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// AsDomain converts the fixture into a domain booking.
func (f BookingFixture) AsDomain() booking.Booking {
	window, err := booking.NewWindow(f.Start, f.End)
	if err != nil {
		panic(fmt.Sprintf("testfixtures: invalid booking window: %v", err))
	}
	return booking.Booking{
		ID:                 f.ID,
		RoomID:             f.RoomID,
		UserID:             f.UserID,
		Window:             window,
		Purpose:            f.Purpose,
		Attendees:          append([]booking.Attendee(nil), f.Attendees...),
		Status:             f.Status,
		CancellationReason: f.CancellationReason,
		CreatedAt:          f.CreatedAt,
	}
}

// AsPersistence converts the fixture into a persistence row.
func (f BookingFixture) AsPersistence() persistence.Booking {
	attendees := make([]persistence.Attendee, 0, len(f.Attendees))
	for _, attendee := range f.Attendees {
		attendees = append(attendees, persistence.Attendee{
			Name:        attendee.Name,
			StudentID:   attendee.StudentID,
			IsCompanion: attendee.IsCompanion,
		})
	}
	return persistence.Booking{
		ID:                 f.ID,
		RoomID:             f.RoomID,
		UserID:             f.UserID,
		Start:              f.Start,
		End:                f.End,
		Purpose:            f.Purpose,
		Attendees:          attendees,
		Status:             string(f.Status),
		CancellationReason: f.CancellationReason,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.CreatedAt,
	}
}

// SessionFixture is a deterministic session record.
type SessionFixture struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewSessionFixture returns a deterministic session fixture for the user.
func NewSessionFixture(userID string) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	return SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    userID,
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: referenceTime.Add(24 * time.Hour),
		CreatedAt: referenceTime,
	}
}

// AsPersistence converts the fixture into a persistence row.
func (f SessionFixture) AsPersistence() persistence.Session {
	return persistence.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}
