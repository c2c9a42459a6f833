package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/room-reservation/internal/booking"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique resource attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when authentication input does not match a known account.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a presented session token is past its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a presented session token was revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrBusy is returned when a room's reservation lock could not be acquired in time.
	ErrBusy = errors.New("application: room busy, retry later")
	// ErrPersistence is returned when a booking write fails after validation passed.
	ErrPersistence = errors.New("application: persistence failure")
	// ErrInvalidStateTransition is returned when a booking is not in a state the
	// requested transition starts from.
	ErrInvalidStateTransition = errors.New("application: invalid state transition")
	// ErrAlreadyElapsed is returned when cancelling a booking whose window has ended.
	ErrAlreadyElapsed = errors.New("application: booking already elapsed")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error, keeping the first message per field.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, ok := v.FieldErrors[field]; ok {
		return
	}
	v.FieldErrors[field] = message
}

// RejectionReason identifies why a booking request was refused.
type RejectionReason string

const (
	ReasonInvalidWindow          RejectionReason = "INVALID_WINDOW"
	ReasonLeadTimeViolation      RejectionReason = "LEAD_TIME_VIOLATION"
	ReasonDurationViolation      RejectionReason = "DURATION_VIOLATION"
	ReasonAttendeeCountViolation RejectionReason = "ATTENDEE_COUNT_VIOLATION"
	ReasonClosedPeriodViolation  RejectionReason = "CLOSED_PERIOD_VIOLATION"
	ReasonSchedulingConflict     RejectionReason = "SCHEDULING_CONFLICT"
)

// ConflictDetail describes one existing booking blocking a candidate window.
type ConflictDetail struct {
	BookingID        string
	Window           booking.Window
	OwnerID          string
	OwnerDisplayName string
}

// RejectionError is the verdict for a booking request that failed validation.
// Reason is the first rule that failed; Conflicts is populated only for
// scheduling conflicts.
type RejectionError struct {
	Reason    RejectionReason
	Message   string
	Conflicts []ConflictDetail
}

// Error implements the error interface.
func (r *RejectionError) Error() string {
	if r == nil {
		return ""
	}
	if r.Message == "" {
		return fmt.Sprintf("booking rejected: %s", strings.ToLower(string(r.Reason)))
	}
	return fmt.Sprintf("booking rejected: %s", r.Message)
}

func rejection(reason RejectionReason, message string) *RejectionError {
	return &RejectionError{Reason: reason, Message: message}
}
