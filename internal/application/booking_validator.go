package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/room-reservation/internal/booking"
)

// Rules bounds accepted booking requests. Duration and lead time bounds are
// inclusive: a window of exactly MinDuration or MaxDuration passes, and a
// start of exactly now+MinLeadTime passes.
type Rules struct {
	MinLeadTime         time.Duration
	MinDuration         time.Duration
	MaxDuration         time.Duration
	MinAttendees        int
	MaxAttendees        int
	EnforceRoomCapacity bool
}

// ConflictFinder answers which CONFIRMED bookings overlap a candidate window.
type ConflictFinder interface {
	FindConfirmedOverlapping(ctx context.Context, roomID string, window booking.Window) ([]booking.Booking, error)
}

// BookingRequest is the normalized input the validator judges. AttendeeCount
// includes the creator's entry. Room carries the target room's capacity
// bounds for the optional cross-check.
type BookingRequest struct {
	RoomID        string
	Start         time.Time
	End           time.Time
	AttendeeCount int
	Room          booking.Room
	Now           time.Time
}

// BookingValidator composes window, calendar, rule, and conflict checks into
// a single verdict. Validation never mutates state.
type BookingValidator struct {
	calendar  booking.OperatingCalendar
	conflicts ConflictFinder
	rules     Rules
}

// NewBookingValidator wires the validator's collaborators.
func NewBookingValidator(calendar booking.OperatingCalendar, conflicts ConflictFinder, rules Rules) *BookingValidator {
	return &BookingValidator{calendar: calendar, conflicts: conflicts, rules: rules}
}

// Validate applies the rules in order and returns the first failure as a
// *RejectionError. A nil return means the request may be committed. Errors
// that are not rejections indicate the conflict query itself failed.
func (v *BookingValidator) Validate(ctx context.Context, req BookingRequest) error {
	if v == nil {
		return fmt.Errorf("BookingValidator is nil")
	}

	window, err := booking.NewWindow(req.Start, req.End)
	if err != nil {
		if errors.Is(err, booking.ErrInvalidWindow) {
			return rejection(ReasonInvalidWindow, "end must be after start")
		}
		return err
	}

	earliestStart := req.Now.Add(v.rules.MinLeadTime)
	if window.Start.Before(earliestStart) {
		return rejection(ReasonLeadTimeViolation,
			fmt.Sprintf("start must be at least %s from now", v.rules.MinLeadTime))
	}

	duration := window.Duration()
	if duration < v.rules.MinDuration || duration > v.rules.MaxDuration {
		return rejection(ReasonDurationViolation,
			fmt.Sprintf("duration must be between %s and %s", v.rules.MinDuration, v.rules.MaxDuration))
	}

	if req.AttendeeCount < v.rules.MinAttendees || req.AttendeeCount > v.rules.MaxAttendees {
		return rejection(ReasonAttendeeCountViolation,
			fmt.Sprintf("attendee count must be between %d and %d", v.rules.MinAttendees, v.rules.MaxAttendees))
	}

	if v.rules.EnforceRoomCapacity && req.Room.ID != "" {
		if req.AttendeeCount < req.Room.MinCapacity || req.AttendeeCount > req.Room.MaxCapacity {
			return rejection(ReasonAttendeeCountViolation,
				fmt.Sprintf("attendee count must be between %d and %d for this room", req.Room.MinCapacity, req.Room.MaxCapacity))
		}
	}

	if !v.calendar.WindowFullyOpen(window) {
		return rejection(ReasonClosedPeriodViolation, "window falls in a closed period")
	}

	if v.conflicts == nil {
		return nil
	}
	overlapping, err := v.conflicts.FindConfirmedOverlapping(ctx, req.RoomID, window)
	if err != nil {
		return fmt.Errorf("conflict query failed: %w", err)
	}
	if len(overlapping) > 0 {
		return &RejectionError{
			Reason:    ReasonSchedulingConflict,
			Message:   "window overlaps an existing booking",
			Conflicts: toConflictDetails(overlapping),
		}
	}

	return nil
}

func toConflictDetails(bookings []booking.Booking) []ConflictDetail {
	details := make([]ConflictDetail, 0, len(bookings))
	for _, b := range bookings {
		details = append(details, ConflictDetail{
			BookingID: b.ID,
			Window:    b.Window,
			OwnerID:   b.UserID,
		})
	}
	return details
}
