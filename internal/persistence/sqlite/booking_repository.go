package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-reservation/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
type BookingRepository struct {
	pool *ConnectionPool
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

const bookingColumns = `id, room_id, user_id, start_time, end_time, purpose, status, cancellation_reason, created_at, updated_at`

// CreateBooking inserts a booking row together with its attendee list.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if !booking.End.After(booking.Start) {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO bookings (` + bookingColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		var reason sql.NullString
		if booking.CancellationReason != nil {
			reason = sql.NullString{String: *booking.CancellationReason, Valid: true}
		}

		_, err := tx.Exec(query,
			booking.ID,
			booking.RoomID,
			booking.UserID,
			formatTime(booking.Start),
			formatTime(booking.End),
			booking.Purpose,
			booking.Status,
			reason,
			formatTime(booking.CreatedAt),
			formatTime(booking.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		for position, attendee := range booking.Attendees {
			var studentID sql.NullString
			if attendee.StudentID != nil {
				studentID = sql.NullString{String: *attendee.StudentID, Valid: true}
			}
			_, err := tx.Exec(
				`INSERT INTO booking_attendees (booking_id, position, name, student_id, is_companion) VALUES (?, ?, ?, ?, ?)`,
				booking.ID, position, attendee.Name, studentID, attendee.IsCompanion,
			)
			if err != nil {
				return mapError(err)
			}
		}

		return nil
	})
}

// GetBooking retrieves a booking by ID with its attendees.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if err != nil {
		return persistence.Booking{}, mapError(err)
	}

	attendees, err := r.loadAttendees(ctx, id)
	if err != nil {
		return persistence.Booking{}, err
	}
	booking.Attendees = attendees

	return booking, nil
}

// ListBookings lists bookings matching the filter, ordered by start time.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings`

	var conditions []string
	var args []any

	if filter.RoomID != "" {
		conditions = append(conditions, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.StartsAfter != nil {
		conditions = append(conditions, "end_time > ?")
		args = append(args, formatTime(*filter.StartsAfter))
	}
	if filter.EndsBefore != nil {
		conditions = append(conditions, "start_time < ?")
		args = append(args, formatTime(*filter.EndsBefore))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"

	return r.queryBookings(ctx, query, args...)
}

// FindConfirmedOverlapping runs the indexed range query implementing the
// half-open overlap predicate: start < candidate end AND end > candidate
// start. Touching endpoints fall outside the strict comparisons.
func (r *BookingRepository) FindConfirmedOverlapping(ctx context.Context, roomID string, start, end time.Time) ([]persistence.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE room_id = ? AND status = 'CONFIRMED' AND start_time < ? AND end_time > ?
		ORDER BY start_time ASC, id ASC
	`
	return r.queryBookings(ctx, query, roomID, formatTime(end), formatTime(start))
}

// UpdateBookingStatus performs the compare-and-set status transition. When
// the row exists but is no longer in fromStatus, ErrStaleStatus is returned
// and the row is left untouched.
func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, id, fromStatus, toStatus string, reason *string, at time.Time) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var nullReason sql.NullString
		if reason != nil {
			nullReason = sql.NullString{String: *reason, Valid: true}
		}

		result, err := tx.Exec(
			`UPDATE bookings SET status = ?, cancellation_reason = ?, updated_at = ? WHERE id = ? AND status = ?`,
			toStatus, nullReason, formatTime(at), id, fromStatus,
		)
		if err != nil {
			return mapError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			var current string
			if err := tx.QueryRow(`SELECT status FROM bookings WHERE id = ?`, id).Scan(&current); err != nil {
				if err == sql.ErrNoRows {
					return persistence.ErrNotFound
				}
				return mapError(err)
			}
			return persistence.ErrStaleStatus
		}

		return nil
	})
	if err != nil {
		return persistence.Booking{}, err
	}

	return r.GetBooking(ctx, id)
}

func (r *BookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]persistence.Booking, error) {
	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, mapError(err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range bookings {
		attendees, err := r.loadAttendees(ctx, bookings[i].ID)
		if err != nil {
			return nil, err
		}
		bookings[i].Attendees = attendees
	}

	return bookings, nil
}

func (r *BookingRepository) loadAttendees(ctx context.Context, bookingID string) ([]persistence.Attendee, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT name, student_id, is_companion FROM booking_attendees WHERE booking_id = ? ORDER BY position ASC`,
		bookingID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var attendees []persistence.Attendee
	for rows.Next() {
		var attendee persistence.Attendee
		var studentID sql.NullString
		if err := rows.Scan(&attendee.Name, &studentID, &attendee.IsCompanion); err != nil {
			return nil, mapError(err)
		}
		if studentID.Valid {
			attendee.StudentID = &studentID.String
		}
		attendees = append(attendees, attendee)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return attendees, nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(scanner rowScanner) (persistence.Booking, error) {
	var booking persistence.Booking
	var startStr, endStr, createdStr, updatedStr string
	var reason sql.NullString

	err := scanner.Scan(
		&booking.ID,
		&booking.RoomID,
		&booking.UserID,
		&startStr,
		&endStr,
		&booking.Purpose,
		&booking.Status,
		&reason,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.Booking{}, err
	}

	if reason.Valid {
		booking.CancellationReason = &reason.String
	}

	if booking.Start, err = parseTime(startStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if booking.End, err = parseTime(endStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if booking.CreatedAt, err = parseTime(createdStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if booking.UpdatedAt, err = parseTime(updatedStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return booking, nil
}

// formatTime normalises to UTC RFC3339 so lexical comparison in SQL matches
// chronological order.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}
