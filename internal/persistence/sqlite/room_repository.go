package sqlite

import (
	"context"
	"database/sql"
	"sort"

	"github.com/example/room-reservation/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite.
type RoomRepository struct {
	pool *ConnectionPool
}

// NewRoomRepository creates a new SQLite room repository.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// CreateRoom inserts a room with its feature tags.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" || room.Name == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO rooms (id, name, min_capacity, max_capacity, description, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			room.ID, room.Name, room.MinCapacity, room.MaxCapacity, room.Description,
			formatTime(room.CreatedAt), formatTime(room.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		return insertFeatures(tx, room.ID, room.Features)
	})
}

// UpdateRoom replaces a room row and its feature tags.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(
			`UPDATE rooms SET name = ?, min_capacity = ?, max_capacity = ?, description = ?, updated_at = ? WHERE id = ?`,
			room.Name, room.MinCapacity, room.MaxCapacity, room.Description, formatTime(room.UpdatedAt), room.ID,
		)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		if _, err := tx.Exec(`DELETE FROM room_features WHERE room_id = ?`, room.ID); err != nil {
			return mapError(err)
		}
		return insertFeatures(tx, room.ID, room.Features)
	})
}

// GetRoom retrieves a room by ID with its features.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	var room persistence.Room
	var createdStr, updatedStr string
	err := r.pool.db.QueryRowContext(ctx,
		`SELECT id, name, min_capacity, max_capacity, description, created_at, updated_at FROM rooms WHERE id = ?`,
		id,
	).Scan(&room.ID, &room.Name, &room.MinCapacity, &room.MaxCapacity, &room.Description, &createdStr, &updatedStr)
	if err != nil {
		return persistence.Room{}, mapError(err)
	}

	if room.CreatedAt, err = parseTime(createdStr); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime(updatedStr); err != nil {
		return persistence.Room{}, err
	}

	features, err := r.loadFeatures(ctx, id)
	if err != nil {
		return persistence.Room{}, err
	}
	room.Features = features

	return room, nil
}

// ListRooms returns all rooms ordered by name.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT id, name, min_capacity, max_capacity, description, created_at, updated_at FROM rooms ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		var room persistence.Room
		var createdStr, updatedStr string
		if err := rows.Scan(&room.ID, &room.Name, &room.MinCapacity, &room.MaxCapacity, &room.Description, &createdStr, &updatedStr); err != nil {
			return nil, mapError(err)
		}
		if room.CreatedAt, err = parseTime(createdStr); err != nil {
			return nil, err
		}
		if room.UpdatedAt, err = parseTime(updatedStr); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range rooms {
		features, err := r.loadFeatures(ctx, rooms[i].ID)
		if err != nil {
			return nil, err
		}
		rooms[i].Features = features
	}

	return rooms, nil
}

// DeleteRoom removes a room by ID. Feature rows cascade.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *RoomRepository) loadFeatures(ctx context.Context, roomID string) ([]string, error) {
	rows, err := r.pool.db.QueryContext(ctx, `SELECT feature FROM room_features WHERE room_id = ? ORDER BY feature ASC`, roomID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var features []string
	for rows.Next() {
		var feature string
		if err := rows.Scan(&feature); err != nil {
			return nil, mapError(err)
		}
		features = append(features, feature)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return features, nil
}

func insertFeatures(tx *sql.Tx, roomID string, features []string) error {
	unique := make(map[string]struct{}, len(features))
	ordered := make([]string, 0, len(features))
	for _, feature := range features {
		if feature == "" {
			continue
		}
		if _, ok := unique[feature]; ok {
			continue
		}
		unique[feature] = struct{}{}
		ordered = append(ordered, feature)
	}
	sort.Strings(ordered)

	for _, feature := range ordered {
		if _, err := tx.Exec(`INSERT INTO room_features (room_id, feature) VALUES (?, ?)`, roomID, feature); err != nil {
			return mapError(err)
		}
	}
	return nil
}
