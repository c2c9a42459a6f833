package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-reservation/internal/booking"
)

// PreflightInvalidator drops cached availability answers for a room.
type PreflightInvalidator interface {
	InvalidatePreflight(roomID string)
}

// CancellationManager owns the only legal write transition away from
// CONFIRMED. The transition is a compare-and-set on the stored status, so two
// concurrent cancels of the same booking resolve to exactly one success.
type CancellationManager struct {
	bookings  BookingRepository
	events    EventPublisher
	preflight PreflightInvalidator
	now       func() time.Time
	logger    *slog.Logger
}

// NewCancellationManager wires dependencies for booking cancellation.
func NewCancellationManager(bookings BookingRepository, events EventPublisher, preflight PreflightInvalidator, now func() time.Time, logger *slog.Logger) *CancellationManager {
	if now == nil {
		now = time.Now
	}
	return &CancellationManager{
		bookings:  bookings,
		events:    events,
		preflight: preflight,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *CancellationManager) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CancellationManager", operation, attrs...)
}

// Cancel transitions a CONFIRMED booking to CANCELLED. The requester must be
// the booking's owner or an admin, the window must not have elapsed, and a
// lost compare-and-set race surfaces as an invalid state transition. On any
// failure the booking remains CONFIRMED.
func (s *CancellationManager) Cancel(ctx context.Context, params CancelParams) (result booking.Booking, err error) {
	if s == nil {
		return booking.Booking{}, fmt.Errorf("CancellationManager is nil")
	}
	if s.bookings == nil {
		return booking.Booking{}, fmt.Errorf("booking repository not configured")
	}

	logger := s.loggerWith(ctx, "Cancel",
		"booking_id", params.BookingID,
		"user_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "cancellation refused", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking cancelled")
	}()

	existing, err := s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return booking.Booking{}, ErrNotFound
		}
		return booking.Booking{}, err
	}

	if existing.UserID != params.Principal.UserID && !params.Principal.IsAdmin {
		return booking.Booking{}, ErrUnauthorized
	}

	if existing.Status != booking.StatusConfirmed {
		return booking.Booking{}, ErrInvalidStateTransition
	}

	now := s.now()
	if existing.Elapsed(now) {
		return booking.Booking{}, ErrAlreadyElapsed
	}

	var reason *string
	if trimmed := strings.TrimSpace(params.Reason); trimmed != "" {
		reason = &trimmed
	}

	cancelled, err := s.bookings.UpdateBookingStatus(ctx, params.BookingID, booking.StatusConfirmed, booking.StatusCancelled, reason, now)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidStateTransition):
			return booking.Booking{}, err
		default:
			return booking.Booking{}, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	if s.preflight != nil {
		s.preflight.InvalidatePreflight(cancelled.RoomID)
	}
	if s.events != nil {
		if pubErr := s.events.Publish(ctx, EventBookingCancelled, cancelled); pubErr != nil {
			logger.WarnContext(ctx, "event publish failed", "event_type", EventBookingCancelled, "error", pubErr)
		}
	}

	return cancelled, nil
}
