package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-reservation/internal/application"
	"github.com/example/room-reservation/internal/booking"
)

type stubReservationService struct {
	reserveResult booking.Booking
	reserveErr    error
	reserveParams application.ReserveParams

	checkResult application.ConflictCheckResult
	checkErr    error

	getResult application.BookingView
	getErr    error

	listResult []application.BookingView
	listErr    error
	listParams application.ListBookingsParams
}

func (s *stubReservationService) Reserve(_ context.Context, params application.ReserveParams) (booking.Booking, error) {
	s.reserveParams = params
	return s.reserveResult, s.reserveErr
}

func (s *stubReservationService) CheckConflicts(context.Context, string, time.Time, time.Time) (application.ConflictCheckResult, error) {
	return s.checkResult, s.checkErr
}

func (s *stubReservationService) GetBooking(context.Context, string) (application.BookingView, error) {
	return s.getResult, s.getErr
}

func (s *stubReservationService) ListBookings(_ context.Context, params application.ListBookingsParams) ([]application.BookingView, error) {
	s.listParams = params
	return s.listResult, s.listErr
}

type stubCancellationService struct {
	result booking.Booking
	err    error
	params application.CancelParams
}

func (s *stubCancellationService) Cancel(_ context.Context, params application.CancelParams) (booking.Booking, error) {
	s.params = params
	return s.result, s.err
}

func mustWindow(t *testing.T, start, end time.Time) booking.Window {
	t.Helper()
	w, err := booking.NewWindow(start, end)
	require.NoError(t, err)
	return w
}

func sampleBooking(t *testing.T) booking.Booking {
	t.Helper()
	return booking.Booking{
		ID:     "booking-1",
		RoomID: "room-1",
		UserID: "user-1",
		Window: mustWindow(t,
			time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
		),
		Purpose: "study group",
		Attendees: []booking.Attendee{
			{Name: "Alice"},
			{Name: "Carol", IsCompanion: true},
		},
		Status:    booking.StatusConfirmed,
		CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1"})
	return req.WithContext(ctx)
}

func TestBookingHandler_Create(t *testing.T) {
	t.Parallel()

	body := `{
		"room_id": "room-1",
		"start_time": "2026-03-02T10:00:00Z",
		"end_time": "2026-03-02T11:00:00Z",
		"purpose": "study group",
		"attendees": [{"name": "Carol"}]
	}`

	t.Run("returns 201 with the created booking", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{reserveResult: sampleBooking(t)}
		handler := NewBookingHandler(service, &stubCancellationService{}, nil)

		recorder := httptest.NewRecorder()
		handler.Create(recorder, authedRequest(http.MethodPost, "/bookings", body))

		require.Equal(t, http.StatusCreated, recorder.Code)
		assert.Equal(t, "user-1", service.reserveParams.Principal.UserID)
		assert.Equal(t, "room-1", service.reserveParams.Input.RoomID)
		require.Len(t, service.reserveParams.Input.Attendees, 1)
		assert.True(t, service.reserveParams.Input.Attendees[0].Companion)

		var resp bookingResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.Equal(t, "booking-1", resp.Booking.ID)
		assert.Equal(t, "CONFIRMED", resp.Booking.Status)
		require.Len(t, resp.Booking.Attendees, 2)
		assert.False(t, resp.Booking.Attendees[0].IsCompanion)
	})

	t.Run("maps a scheduling conflict to 409 with conflict details", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{
			reserveErr: &application.RejectionError{
				Reason:  application.ReasonSchedulingConflict,
				Message: "the room is already booked for the requested window",
				Conflicts: []application.ConflictDetail{{
					BookingID: "booking-9",
					Window: mustWindow(t,
						time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
						time.Date(2026, 3, 2, 11, 30, 0, 0, time.UTC),
					),
					OwnerID:          "owner-1",
					OwnerDisplayName: "Bob",
				}},
			},
		}
		handler := NewBookingHandler(service, &stubCancellationService{}, nil)

		recorder := httptest.NewRecorder()
		handler.Create(recorder, authedRequest(http.MethodPost, "/bookings", body))

		require.Equal(t, http.StatusConflict, recorder.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.Equal(t, "SCHEDULING_CONFLICT", resp.ErrorCode)
		require.Len(t, resp.Conflicts, 1)
		assert.Equal(t, "booking-9", resp.Conflicts[0].BookingID)
		assert.Equal(t, "Bob", resp.Conflicts[0].OwnerDisplayName)
		assert.Equal(t, "2026-03-02T10:30:00Z", resp.Conflicts[0].StartTime)
	})

	t.Run("maps other rejections to 400 with the reason code", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{
			reserveErr: &application.RejectionError{
				Reason:  application.ReasonLeadTimeViolation,
				Message: "bookings require more notice",
			},
		}
		handler := NewBookingHandler(service, &stubCancellationService{}, nil)

		recorder := httptest.NewRecorder()
		handler.Create(recorder, authedRequest(http.MethodPost, "/bookings", body))

		require.Equal(t, http.StatusBadRequest, recorder.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.Equal(t, "LEAD_TIME_VIOLATION", resp.ErrorCode)
		assert.Empty(t, resp.Conflicts)
	})

	t.Run("maps a busy room to 503 with a retry hint", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{reserveErr: application.ErrBusy}
		handler := NewBookingHandler(service, &stubCancellationService{}, nil)

		recorder := httptest.NewRecorder()
		handler.Create(recorder, authedRequest(http.MethodPost, "/bookings", body))

		require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
		assert.Equal(t, "1", recorder.Header().Get("Retry-After"))
	})

	t.Run("rejects unparsable timestamps before dispatch", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{}
		handler := NewBookingHandler(service, &stubCancellationService{}, nil)

		recorder := httptest.NewRecorder()
		handler.Create(recorder, authedRequest(http.MethodPost, "/bookings", `{"room_id":"room-1","start_time":"tomorrow","end_time":"2026-03-02T11:00:00Z"}`))

		require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.Contains(t, resp.Errors, "start_time")
		assert.Empty(t, service.reserveParams.Input.RoomID)
	})
}

func TestBookingHandler_Cancel(t *testing.T) {
	t.Parallel()

	t.Run("returns the cancelled booking with its reason", func(t *testing.T) {
		t.Parallel()

		reason := "no longer needed"
		cancelled := sampleBooking(t)
		cancelled.Status = booking.StatusCancelled
		cancelled.CancellationReason = &reason

		cancellations := &stubCancellationService{result: cancelled}
		handler := NewBookingHandler(&stubReservationService{}, cancellations, nil)

		req := authedRequest(http.MethodDelete, "/bookings/booking-1", `{"reason":"no longer needed"}`)
		req = req.WithContext(ContextWithBookingID(req.Context(), "booking-1"))

		recorder := httptest.NewRecorder()
		handler.Cancel(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "booking-1", cancellations.params.BookingID)
		assert.Equal(t, "no longer needed", cancellations.params.Reason)

		var resp bookingResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.Equal(t, "CANCELLED", resp.Booking.Status)
		require.NotNil(t, resp.Booking.CancellationReason)
		assert.Equal(t, reason, *resp.Booking.CancellationReason)
	})

	t.Run("accepts an empty body", func(t *testing.T) {
		t.Parallel()

		cancelled := sampleBooking(t)
		cancelled.Status = booking.StatusCancelled
		cancellations := &stubCancellationService{result: cancelled}
		handler := NewBookingHandler(&stubReservationService{}, cancellations, nil)

		req := authedRequest(http.MethodDelete, "/bookings/booking-1", "")
		req = req.WithContext(ContextWithBookingID(req.Context(), "booking-1"))

		recorder := httptest.NewRecorder()
		handler.Cancel(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Empty(t, cancellations.params.Reason)
	})

	t.Run("maps an elapsed booking to 400", func(t *testing.T) {
		t.Parallel()

		cancellations := &stubCancellationService{err: application.ErrAlreadyElapsed}
		handler := NewBookingHandler(&stubReservationService{}, cancellations, nil)

		req := authedRequest(http.MethodDelete, "/bookings/booking-1", "")
		req = req.WithContext(ContextWithBookingID(req.Context(), "booking-1"))

		recorder := httptest.NewRecorder()
		handler.Cancel(recorder, req)

		require.Equal(t, http.StatusBadRequest, recorder.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.Equal(t, "BOOKING_ELAPSED", resp.ErrorCode)
	})

	t.Run("maps a non-owner to 403", func(t *testing.T) {
		t.Parallel()

		cancellations := &stubCancellationService{err: application.ErrUnauthorized}
		handler := NewBookingHandler(&stubReservationService{}, cancellations, nil)

		req := authedRequest(http.MethodDelete, "/bookings/booking-1", "")
		req = req.WithContext(ContextWithBookingID(req.Context(), "booking-1"))

		recorder := httptest.NewRecorder()
		handler.Cancel(recorder, req)

		require.Equal(t, http.StatusForbidden, recorder.Code)
	})
}

func TestBookingHandler_Get(t *testing.T) {
	t.Parallel()

	t.Run("returns the derived status", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{
			getResult: application.BookingView{
				Booking:         sampleBooking(t),
				EffectiveStatus: booking.StatusCompleted,
			},
		}
		handler := NewBookingHandler(service, &stubCancellationService{}, nil)

		req := authedRequest(http.MethodGet, "/bookings/booking-1", "")
		req = req.WithContext(ContextWithBookingID(req.Context(), "booking-1"))

		recorder := httptest.NewRecorder()
		handler.Get(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)

		var resp bookingResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.Equal(t, "COMPLETED", resp.Booking.Status)
	})

	t.Run("maps a missing booking to 404", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{getErr: application.ErrNotFound}
		handler := NewBookingHandler(service, &stubCancellationService{}, nil)

		req := authedRequest(http.MethodGet, "/bookings/missing", "")
		req = req.WithContext(ContextWithBookingID(req.Context(), "missing"))

		recorder := httptest.NewRecorder()
		handler.Get(recorder, req)

		require.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestBookingHandler_List(t *testing.T) {
	t.Parallel()

	t.Run("passes filters through to the service", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{
			listResult: []application.BookingView{{
				Booking:         sampleBooking(t),
				EffectiveStatus: booking.StatusConfirmed,
			}},
		}
		handler := NewBookingHandler(service, &stubCancellationService{}, nil)

		recorder := httptest.NewRecorder()
		handler.List(recorder, authedRequest(http.MethodGet, "/bookings?room_id=room-1&from=2026-03-02T00:00:00Z", ""))

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "room-1", service.listParams.RoomID)
		require.NotNil(t, service.listParams.From)
		assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), service.listParams.From.UTC())

		var resp listBookingsResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		require.Len(t, resp.Bookings, 1)
	})

	t.Run("rejects malformed range parameters", func(t *testing.T) {
		t.Parallel()

		handler := NewBookingHandler(&stubReservationService{}, &stubCancellationService{}, nil)

		recorder := httptest.NewRecorder()
		handler.List(recorder, authedRequest(http.MethodGet, "/bookings?from=yesterday", ""))

		require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	})
}

func TestBookingHandler_CheckConflicts(t *testing.T) {
	t.Parallel()

	t.Run("reports conflicts without creating anything", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{
			checkResult: application.ConflictCheckResult{
				HasConflict: true,
				Conflicts: []application.ConflictDetail{{
					BookingID: "booking-9",
					Window: mustWindow(t,
						time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
						time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
					),
					OwnerID:          "owner-1",
					OwnerDisplayName: "Bob",
				}},
			},
		}
		handler := NewBookingHandler(service, &stubCancellationService{}, nil)

		recorder := httptest.NewRecorder()
		handler.CheckConflicts(recorder, authedRequest(http.MethodPost, "/bookings/check-conflicts",
			`{"room_id":"room-1","start_time":"2026-03-02T10:30:00Z","end_time":"2026-03-02T11:30:00Z"}`))

		require.Equal(t, http.StatusOK, recorder.Code)

		var resp conflictCheckResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.True(t, resp.HasConflict)
		require.Len(t, resp.Conflicts, 1)
		assert.Equal(t, "Bob", resp.Conflicts[0].OwnerDisplayName)
	})

	t.Run("requires a room id", func(t *testing.T) {
		t.Parallel()

		handler := NewBookingHandler(&stubReservationService{}, &stubCancellationService{}, nil)

		recorder := httptest.NewRecorder()
		handler.CheckConflicts(recorder, authedRequest(http.MethodPost, "/bookings/check-conflicts",
			`{"start_time":"2026-03-02T10:30:00Z","end_time":"2026-03-02T11:30:00Z"}`))

		require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.Contains(t, resp.Errors, "room_id")
	})
}
