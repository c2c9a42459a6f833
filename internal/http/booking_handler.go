package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-reservation/internal/application"
	"github.com/example/room-reservation/internal/booking"
)

type reservationService interface {
	Reserve(ctx context.Context, params application.ReserveParams) (booking.Booking, error)
	CheckConflicts(ctx context.Context, roomID string, start, end time.Time) (application.ConflictCheckResult, error)
	GetBooking(ctx context.Context, id string) (application.BookingView, error)
	ListBookings(ctx context.Context, params application.ListBookingsParams) ([]application.BookingView, error)
}

type cancellationService interface {
	Cancel(ctx context.Context, params application.CancelParams) (booking.Booking, error)
}

type BookingHandler struct {
	reservations  reservationService
	cancellations cancellationService
	responder     responder
	logger        *slog.Logger
}

func NewBookingHandler(reservations reservationService, cancellations cancellationService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{
		reservations:  reservations,
		cancellations: cancellations,
		responder:     newResponder(base),
		logger:        base,
	}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.reservations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, fieldErrs := req.toInput()
	if len(fieldErrs) > 0 {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "validation").ErrorContext(r.Context(), "booking request rejected before dispatch", "errors", fieldErrs)
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "Request validation failed.",
			Errors:    fieldErrs,
		})
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "room_id", input.RoomID)

	created, err := h.reservations.Reserve(r.Context(), application.ReserveParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", created.ID).InfoContext(r.Context(), "booking created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{Booking: toBookingDTO(created, created.Status)})
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.reservations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.log(r.Context(), "Get", "error_kind", "bad_request").ErrorContext(r.Context(), "missing booking id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	logger := h.log(r.Context(), "Get", "booking_id", bookingID)

	view, err := h.reservations.GetBooking(r.Context(), bookingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(view.Booking, view.EffectiveStatus)})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.reservations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	params := application.ListBookingsParams{
		Principal: principal,
		RoomID:    strings.TrimSpace(r.URL.Query().Get("room_id")),
		UserID:    strings.TrimSpace(r.URL.Query().Get("user_id")),
	}

	fieldErrs := make(map[string]string)
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fieldErrs["from"] = "must be an RFC 3339 timestamp"
		} else {
			params.From = &from
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fieldErrs["to"] = "must be an RFC 3339 timestamp"
		} else {
			params.To = &to
		}
	}
	if len(fieldErrs) > 0 {
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "Request validation failed.",
			Errors:    fieldErrs,
		})
		return
	}

	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	views, err := h.reservations.ListBookings(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(views)).InfoContext(r.Context(), "bookings listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: toBookingDTOs(views)})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.cancellations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.log(r.Context(), "Cancel", "error_kind", "bad_request").ErrorContext(r.Context(), "missing booking id for cancellation")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	// The body is optional; an absent body is a cancellation without a reason.
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log(r.Context(), "Cancel", "principal_id", principal.UserID, "booking_id", bookingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode cancellation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Cancel", "principal_id", principal.UserID, "booking_id", bookingID)

	cancelled, err := h.cancellations.Cancel(r.Context(), application.CancelParams{
		Principal: principal,
		BookingID: bookingID,
		Reason:    req.Reason,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking cancellation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(cancelled, cancelled.Status)})
}

func (h *BookingHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.reservations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req conflictCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CheckConflicts", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode conflict check request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	fieldErrs := make(map[string]string)
	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		fieldErrs["room_id"] = "room id is required"
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		fieldErrs["start_time"] = "must be an RFC 3339 timestamp"
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndTime))
	if err != nil {
		fieldErrs["end_time"] = "must be an RFC 3339 timestamp"
	}
	if len(fieldErrs) > 0 {
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "Request validation failed.",
			Errors:    fieldErrs,
		})
		return
	}

	logger := h.log(r.Context(), "CheckConflicts", "room_id", roomID)

	result, err := h.reservations.CheckConflicts(r.Context(), roomID, start, end)
	if err != nil {
		logger.ErrorContext(r.Context(), "conflict check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictCheckResponse{
		HasConflict: result.HasConflict,
		Conflicts:   toConflictDTOs(result.Conflicts),
	})
}

type bookingRequest struct {
	RoomID    string            `json:"room_id"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	Purpose   string            `json:"purpose"`
	Attendees []attendeeRequest `json:"attendees"`
}

type attendeeRequest struct {
	Name      string  `json:"name"`
	StudentID *string `json:"student_id"`
}

func (r bookingRequest) toInput() (application.BookingInput, map[string]string) {
	fieldErrs := make(map[string]string)

	start, err := time.Parse(time.RFC3339, strings.TrimSpace(r.StartTime))
	if err != nil {
		fieldErrs["start_time"] = "must be an RFC 3339 timestamp"
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(r.EndTime))
	if err != nil {
		fieldErrs["end_time"] = "must be an RFC 3339 timestamp"
	}
	if len(fieldErrs) > 0 {
		return application.BookingInput{}, fieldErrs
	}

	attendees := make([]application.AttendeeInput, 0, len(r.Attendees))
	for _, attendee := range r.Attendees {
		attendees = append(attendees, application.AttendeeInput{
			Name:      strings.TrimSpace(attendee.Name),
			StudentID: attendee.StudentID,
			Companion: true,
		})
	}

	return application.BookingInput{
		RoomID:    strings.TrimSpace(r.RoomID),
		Start:     start,
		End:       end,
		Purpose:   strings.TrimSpace(r.Purpose),
		Attendees: attendees,
	}, nil
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type conflictCheckRequest struct {
	RoomID    string `json:"room_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type conflictCheckResponse struct {
	HasConflict bool          `json:"has_conflict"`
	Conflicts   []conflictDTO `json:"conflicts"`
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type bookingDTO struct {
	ID                 string        `json:"id"`
	RoomID             string        `json:"room_id"`
	UserID             string        `json:"user_id"`
	StartTime          string        `json:"start_time"`
	EndTime            string        `json:"end_time"`
	Purpose            string        `json:"purpose,omitempty"`
	Attendees          []attendeeDTO `json:"attendees"`
	Status             string        `json:"status"`
	CancellationReason *string       `json:"cancellation_reason,omitempty"`
	CreatedAt          string        `json:"created_at"`
}

type attendeeDTO struct {
	Name        string  `json:"name"`
	StudentID   *string `json:"student_id,omitempty"`
	IsCompanion bool    `json:"is_companion"`
}

type conflictDTO struct {
	BookingID        string `json:"booking_id"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	OwnerID          string `json:"owner_id"`
	OwnerDisplayName string `json:"owner_display_name,omitempty"`
}

func toBookingDTO(b booking.Booking, status booking.Status) bookingDTO {
	attendees := make([]attendeeDTO, 0, len(b.Attendees))
	for _, attendee := range b.Attendees {
		attendees = append(attendees, attendeeDTO{
			Name:        attendee.Name,
			StudentID:   attendee.StudentID,
			IsCompanion: attendee.IsCompanion,
		})
	}

	return bookingDTO{
		ID:                 b.ID,
		RoomID:             b.RoomID,
		UserID:             b.UserID,
		StartTime:          b.Window.Start.UTC().Format(time.RFC3339Nano),
		EndTime:            b.Window.End.UTC().Format(time.RFC3339Nano),
		Purpose:            b.Purpose,
		Attendees:          attendees,
		Status:             string(status),
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toBookingDTOs(views []application.BookingView) []bookingDTO {
	if len(views) == 0 {
		return nil
	}
	out := make([]bookingDTO, 0, len(views))
	for _, view := range views {
		out = append(out, toBookingDTO(view.Booking, view.EffectiveStatus))
	}
	return out
}

func toConflictDTOs(details []application.ConflictDetail) []conflictDTO {
	if len(details) == 0 {
		return nil
	}
	out := make([]conflictDTO, 0, len(details))
	for _, detail := range details {
		out = append(out, conflictDTO{
			BookingID:        detail.BookingID,
			StartTime:        detail.Window.Start.UTC().Format(time.RFC3339Nano),
			EndTime:          detail.Window.End.UTC().Format(time.RFC3339Nano),
			OwnerID:          detail.OwnerID,
			OwnerDisplayName: detail.OwnerDisplayName,
		})
	}
	return out
}
