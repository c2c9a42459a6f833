package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-reservation/internal/booking"
)

type stubConflictFinder struct {
	bookings []booking.Booking
	err      error
	calls    int
}

func (s *stubConflictFinder) FindConfirmedOverlapping(_ context.Context, roomID string, w booking.Window) ([]booking.Booking, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return booking.Overlapping(s.bookings, roomID, w), nil
}

func testRules() Rules {
	return Rules{
		MinLeadTime:  30 * time.Minute,
		MinDuration:  30 * time.Minute,
		MaxDuration:  4 * time.Hour,
		MinAttendees: 2,
		MaxAttendees: 10,
	}
}

func validatorCalendar(t *testing.T, closures ...booking.Closure) booking.OperatingCalendar {
	t.Helper()
	calendar, err := booking.NewOperatingCalendar(8, 22, closures, time.UTC)
	if err != nil {
		t.Fatalf("NewOperatingCalendar: %v", err)
	}
	return calendar
}

// monday returns a fixed Monday within opening hours.
func monday(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func existingConfirmed(t *testing.T, id, roomID string, start, end time.Time) booking.Booking {
	t.Helper()
	w, err := booking.NewWindow(start, end)
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	return booking.Booking{ID: id, RoomID: roomID, UserID: "owner-1", Window: w, Status: booking.StatusConfirmed}
}

func assertRejection(t *testing.T, err error, reason RejectionReason) *RejectionError {
	t.Helper()
	var rErr *RejectionError
	if !errors.As(err, &rErr) {
		t.Fatalf("err = %v, want *RejectionError", err)
	}
	if rErr.Reason != reason {
		t.Fatalf("reason = %s, want %s", rErr.Reason, reason)
	}
	return rErr
}

func TestBookingValidator_Validate(t *testing.T) {
	t.Parallel()

	now := monday(9, 0)

	baseRequest := func() BookingRequest {
		return BookingRequest{
			RoomID:        "room-1",
			Start:         monday(13, 0),
			End:           monday(14, 0),
			AttendeeCount: 3,
			Now:           now,
		}
	}

	t.Run("accepts a clean request", func(t *testing.T) {
		t.Parallel()
		v := NewBookingValidator(validatorCalendar(t), &stubConflictFinder{}, testRules())
		if err := v.Validate(context.Background(), baseRequest()); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})

	t.Run("rejects a degenerate window", func(t *testing.T) {
		t.Parallel()
		v := NewBookingValidator(validatorCalendar(t), &stubConflictFinder{}, testRules())
		req := baseRequest()
		req.End = req.Start
		assertRejection(t, v.Validate(context.Background(), req), ReasonInvalidWindow)
	})

	t.Run("lead time boundary", func(t *testing.T) {
		t.Parallel()
		v := NewBookingValidator(validatorCalendar(t), &stubConflictFinder{}, testRules())

		req := baseRequest()
		req.Start = now.Add(30 * time.Minute)
		req.End = req.Start.Add(time.Hour)
		if err := v.Validate(context.Background(), req); err != nil {
			t.Fatalf("start exactly at now+lead should pass: %v", err)
		}

		req.Start = now.Add(29 * time.Minute)
		req.End = req.Start.Add(time.Hour)
		assertRejection(t, v.Validate(context.Background(), req), ReasonLeadTimeViolation)
	})

	t.Run("duration boundaries", func(t *testing.T) {
		t.Parallel()
		v := NewBookingValidator(validatorCalendar(t), &stubConflictFinder{}, testRules())

		tests := []struct {
			name     string
			duration time.Duration
			rejected bool
		}{
			{"exact minimum", 30 * time.Minute, false},
			{"one minute short", 29 * time.Minute, true},
			{"exact maximum", 4 * time.Hour, false},
			{"one minute over", 4*time.Hour + time.Minute, true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := baseRequest()
				req.End = req.Start.Add(tt.duration)
				err := v.Validate(context.Background(), req)
				if tt.rejected {
					assertRejection(t, err, ReasonDurationViolation)
					return
				}
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
			})
		}
	})

	t.Run("creator alone is below the attendee minimum", func(t *testing.T) {
		t.Parallel()
		v := NewBookingValidator(validatorCalendar(t), &stubConflictFinder{}, testRules())
		req := baseRequest()
		req.AttendeeCount = 1
		assertRejection(t, v.Validate(context.Background(), req), ReasonAttendeeCountViolation)
	})

	t.Run("room capacity cross-check only when enabled", func(t *testing.T) {
		t.Parallel()
		room := booking.Room{ID: "room-1", MinCapacity: 4, MaxCapacity: 6}

		req := baseRequest()
		req.Room = room
		req.AttendeeCount = 3

		relaxed := NewBookingValidator(validatorCalendar(t), &stubConflictFinder{}, testRules())
		if err := relaxed.Validate(context.Background(), req); err != nil {
			t.Fatalf("capacity should not apply when disabled: %v", err)
		}

		rules := testRules()
		rules.EnforceRoomCapacity = true
		strict := NewBookingValidator(validatorCalendar(t), &stubConflictFinder{}, rules)
		assertRejection(t, strict.Validate(context.Background(), req), ReasonAttendeeCountViolation)
	})

	t.Run("rejects a window straddling a closure", func(t *testing.T) {
		t.Parallel()
		// Fridays close at 17:00.
		calendar := validatorCalendar(t, booking.Closure{Weekday: time.Friday, FromMinute: 17 * 60, ToMinute: 24 * 60})
		v := NewBookingValidator(calendar, &stubConflictFinder{}, testRules())

		friday := time.Date(2026, 3, 6, 16, 50, 0, 0, time.UTC)
		req := baseRequest()
		req.Start = friday
		req.End = friday.Add(40 * time.Minute)
		assertRejection(t, v.Validate(context.Background(), req), ReasonClosedPeriodViolation)
	})

	t.Run("overlap is a conflict, touching endpoints are not", func(t *testing.T) {
		t.Parallel()
		finder := &stubConflictFinder{bookings: []booking.Booking{
			existingConfirmed(t, "booking-1", "room-1", monday(10, 0), monday(11, 0)),
		}}
		v := NewBookingValidator(validatorCalendar(t), finder, testRules())

		req := baseRequest()
		req.Start = monday(10, 30)
		req.End = monday(11, 30)
		rErr := assertRejection(t, v.Validate(context.Background(), req), ReasonSchedulingConflict)
		if len(rErr.Conflicts) != 1 || rErr.Conflicts[0].BookingID != "booking-1" {
			t.Fatalf("conflicts = %+v", rErr.Conflicts)
		}
		if rErr.Conflicts[0].OwnerID != "owner-1" {
			t.Errorf("conflict owner = %q", rErr.Conflicts[0].OwnerID)
		}

		req.Start = monday(11, 0)
		req.End = monday(12, 0)
		if err := v.Validate(context.Background(), req); err != nil {
			t.Fatalf("touching endpoints should not conflict: %v", err)
		}
	})

	t.Run("first failure wins before the conflict query runs", func(t *testing.T) {
		t.Parallel()
		finder := &stubConflictFinder{err: errors.New("should not be called")}
		v := NewBookingValidator(validatorCalendar(t), finder, testRules())

		req := baseRequest()
		req.AttendeeCount = 0
		assertRejection(t, v.Validate(context.Background(), req), ReasonAttendeeCountViolation)
		if finder.calls != 0 {
			t.Errorf("conflict finder called %d times, want 0", finder.calls)
		}
	})

	t.Run("surfaces conflict query failures", func(t *testing.T) {
		t.Parallel()
		finder := &stubConflictFinder{err: errors.New("boom")}
		v := NewBookingValidator(validatorCalendar(t), finder, testRules())

		err := v.Validate(context.Background(), baseRequest())
		if err == nil {
			t.Fatal("expected error")
		}
		var rErr *RejectionError
		if errors.As(err, &rErr) {
			t.Fatalf("infrastructure failure should not be a rejection: %v", err)
		}
	})
}
