package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/room-reservation/internal/persistence"
)

// openTestPool opens a migrated database in a per-test temporary directory.
func openTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "reservations.db")
	pool, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	return pool
}

func seedUser(t *testing.T, pool *ConnectionPool, id string) persistence.User {
	t.Helper()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	user := persistence.User{
		ID:           id,
		Email:        id + "@example.com",
		DisplayName:  "User " + id,
		PasswordHash: "hash-" + id,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := NewUserRepository(pool).CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s): %v", id, err)
	}
	return user
}

func seedRoom(t *testing.T, pool *ConnectionPool, id string) persistence.Room {
	t.Helper()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	room := persistence.Room{
		ID:          id,
		Name:        "Room " + id,
		MinCapacity: 1,
		MaxCapacity: 8,
		Description: "seeded",
		Features:    []string{"whiteboard"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := NewRoomRepository(pool).CreateRoom(context.Background(), room); err != nil {
		t.Fatalf("CreateRoom(%s): %v", id, err)
	}
	return room
}
