package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/room-reservation/internal/booking"
)

// Booking lifecycle event types emitted after commit.
const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
)

// BookingRepository captures the persistence interactions needed by booking operations.
type BookingRepository interface {
	CreateBooking(ctx context.Context, b booking.Booking) (booking.Booking, error)
	GetBooking(ctx context.Context, id string) (booking.Booking, error)
	ListBookings(ctx context.Context, filter BookingRepositoryFilter) ([]booking.Booking, error)
	FindConfirmedOverlapping(ctx context.Context, roomID string, window booking.Window) ([]booking.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, from, to booking.Status, reason *string, at time.Time) (booking.Booking, error)
}

// RoomCatalog exposes room lookup operations.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id string) (booking.Room, error)
}

// UserDirectory exposes user lookup operations.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// EventPublisher receives booking lifecycle events after a successful commit.
// Publish failures never affect the booking outcome.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, b booking.Booking) error
}

// ReservationCoordinator serializes booking creation per room: it acquires
// the room's exclusive lock, validates, and commits while still holding the
// lock. Reads (CheckConflicts, GetBooking, ListBookings) take no lock.
type ReservationCoordinator struct {
	bookings    BookingRepository
	rooms       RoomCatalog
	users       UserDirectory
	validator   *BookingValidator
	locks       *roomLocks
	events      EventPublisher
	preflight   *conflictCache
	lockTimeout time.Duration
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewReservationCoordinator wires dependencies for booking creation and reads.
func NewReservationCoordinator(bookings BookingRepository, rooms RoomCatalog, users UserDirectory, validator *BookingValidator, events EventPublisher, lockTimeout time.Duration, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationCoordinator {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationCoordinator{
		bookings:    bookings,
		rooms:       rooms,
		users:       users,
		validator:   validator,
		locks:       newRoomLocks(),
		events:      events,
		preflight:   newConflictCache(0, 0, now),
		lockTimeout: lockTimeout,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ReservationCoordinator) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationCoordinator", operation, attrs...)
}

// Reserve validates the request under the room's lock and persists the
// booking. Exactly one of two identical concurrent requests wins; the loser
// observes the winner's row and is rejected with a scheduling conflict.
func (s *ReservationCoordinator) Reserve(ctx context.Context, params ReserveParams) (result booking.Booking, err error) {
	if s == nil {
		return booking.Booking{}, fmt.Errorf("ReservationCoordinator is nil")
	}
	if s.bookings == nil {
		return booking.Booking{}, fmt.Errorf("booking repository not configured")
	}

	input := params.Input
	logger := s.loggerWith(ctx, "Reserve",
		"room_id", input.RoomID,
		"user_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "reservation refused", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", result.ID).InfoContext(ctx, "booking created")
	}()

	if vErr := validateBookingInput(params.Principal, input); vErr.HasErrors() {
		return booking.Booking{}, vErr
	}

	room, err := s.rooms.GetRoom(ctx, input.RoomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			vErr := &ValidationError{}
			vErr.add("room_id", "room does not exist")
			return booking.Booking{}, vErr
		}
		return booking.Booking{}, err
	}

	attendees, err := s.buildAttendeeList(ctx, params.Principal, input.Attendees)
	if err != nil {
		return booking.Booking{}, err
	}

	release, err := s.locks.Acquire(ctx, input.RoomID, s.lockTimeout)
	if err != nil {
		return booking.Booking{}, err
	}
	defer release()

	now := s.now()
	if err := s.validator.Validate(ctx, BookingRequest{
		RoomID:        input.RoomID,
		Start:         input.Start,
		End:           input.End,
		AttendeeCount: len(attendees),
		Room:          room,
		Now:           now,
	}); err != nil {
		var rErr *RejectionError
		if errors.As(err, &rErr) && rErr.Reason == ReasonSchedulingConflict {
			s.resolveOwnerNames(ctx, rErr.Conflicts)
		}
		return booking.Booking{}, err
	}

	window, _ := booking.NewWindow(input.Start, input.End)
	candidate := booking.Booking{
		ID:        s.idGenerator(),
		RoomID:    input.RoomID,
		UserID:    params.Principal.UserID,
		Window:    window,
		Purpose:   strings.TrimSpace(input.Purpose),
		Attendees: attendees,
		Status:    booking.StatusConfirmed,
		CreatedAt: now,
	}

	persisted, err := s.bookings.CreateBooking(ctx, candidate)
	if err != nil {
		return booking.Booking{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.preflight.InvalidateRoom(input.RoomID)
	s.publish(ctx, EventBookingCreated, persisted)

	return persisted, nil
}

// CheckConflicts is the read-only pre-flight: it reports CONFIRMED bookings
// overlapping the candidate window without taking the room lock, so its
// answer can be stale by the time a reservation is attempted.
func (s *ReservationCoordinator) CheckConflicts(ctx context.Context, roomID string, start, end time.Time) (ConflictCheckResult, error) {
	if s == nil {
		return ConflictCheckResult{}, fmt.Errorf("ReservationCoordinator is nil")
	}
	if s.bookings == nil {
		return ConflictCheckResult{}, fmt.Errorf("booking repository not configured")
	}

	window, err := booking.NewWindow(start, end)
	if err != nil {
		return ConflictCheckResult{}, rejection(ReasonInvalidWindow, "end must be after start")
	}

	key := conflictCacheKey(roomID, window)
	if details, ok := s.preflight.Get(key); ok {
		return ConflictCheckResult{HasConflict: len(details) > 0, Conflicts: details}, nil
	}

	overlapping, err := s.bookings.FindConfirmedOverlapping(ctx, roomID, window)
	if err != nil {
		return ConflictCheckResult{}, fmt.Errorf("conflict query failed: %w", err)
	}

	details := toConflictDetails(overlapping)
	s.resolveOwnerNames(ctx, details)
	s.preflight.Store(key, details)

	return ConflictCheckResult{HasConflict: len(details) > 0, Conflicts: details}, nil
}

// GetBooking returns a single booking with its read-time derived status.
func (s *ReservationCoordinator) GetBooking(ctx context.Context, id string) (BookingView, error) {
	if s == nil {
		return BookingView{}, fmt.Errorf("ReservationCoordinator is nil")
	}
	if s.bookings == nil {
		return BookingView{}, fmt.Errorf("booking repository not configured")
	}

	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return BookingView{}, err
	}
	return BookingView{Booking: b, EffectiveStatus: b.EffectiveStatus(s.now())}, nil
}

// ListBookings enumerates bookings matching the filter, ordered by start time.
func (s *ReservationCoordinator) ListBookings(ctx context.Context, params ListBookingsParams) ([]BookingView, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationCoordinator is nil")
	}
	if s.bookings == nil {
		return nil, fmt.Errorf("booking repository not configured")
	}

	bookings, err := s.bookings.ListBookings(ctx, BookingRepositoryFilter{
		RoomID:      params.RoomID,
		UserID:      params.UserID,
		StartsAfter: params.From,
		EndsBefore:  params.To,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	ordered := make([]booking.Booking, len(bookings))
	copy(ordered, bookings)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Window.Start.Equal(ordered[j].Window.Start) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Window.Start.Before(ordered[j].Window.Start)
	})

	now := s.now()
	views := make([]BookingView, 0, len(ordered))
	for _, b := range ordered {
		views = append(views, BookingView{Booking: b, EffectiveStatus: b.EffectiveStatus(now)})
	}
	return views, nil
}

// InvalidatePreflight drops cached pre-flight answers for a room. The
// cancellation manager calls this so a cancel frees the window immediately.
func (s *ReservationCoordinator) InvalidatePreflight(roomID string) {
	if s == nil {
		return
	}
	s.preflight.InvalidateRoom(roomID)
}

func (s *ReservationCoordinator) buildAttendeeList(ctx context.Context, principal Principal, inputs []AttendeeInput) ([]booking.Attendee, error) {
	creator, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	// First entry is always the creator's own non-companion entry; everyone
	// else on the list is a companion.
	attendees := make([]booking.Attendee, 0, len(inputs)+1)
	attendees = append(attendees, booking.Attendee{Name: creator.DisplayName})
	for _, in := range inputs {
		var studentID *string
		if in.StudentID != nil {
			id := strings.TrimSpace(*in.StudentID)
			if id != "" {
				studentID = &id
			}
		}
		attendees = append(attendees, booking.Attendee{
			Name:        strings.TrimSpace(in.Name),
			StudentID:   studentID,
			IsCompanion: true,
		})
	}
	return attendees, nil
}

func (s *ReservationCoordinator) resolveOwnerNames(ctx context.Context, details []ConflictDetail) {
	if s.users == nil {
		return
	}
	names := make(map[string]string)
	for i := range details {
		ownerID := details[i].OwnerID
		if ownerID == "" {
			continue
		}
		name, ok := names[ownerID]
		if !ok {
			user, err := s.users.GetUser(ctx, ownerID)
			if err != nil {
				names[ownerID] = ""
				continue
			}
			name = user.DisplayName
			names[ownerID] = name
		}
		details[i].OwnerDisplayName = name
	}
}

func (s *ReservationCoordinator) publish(ctx context.Context, eventType string, b booking.Booking) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, b); err != nil {
		s.loggerWith(ctx, "publish", "event_type", eventType, "booking_id", b.ID).
			WarnContext(ctx, "event publish failed", "error", err)
	}
}

func validateBookingInput(principal Principal, input BookingInput) *ValidationError {
	vErr := &ValidationError{}

	if principal.UserID == "" {
		vErr.add("user_id", "caller identity is required")
	}
	if strings.TrimSpace(input.RoomID) == "" {
		vErr.add("room_id", "room is required")
	}
	if input.Start.IsZero() {
		vErr.add("start_time", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end_time", "end is required")
	}
	for _, attendee := range input.Attendees {
		if strings.TrimSpace(attendee.Name) == "" {
			vErr.add("attendees", "attendee name is required")
		}
	}

	return vErr
}
