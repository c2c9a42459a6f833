package application

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/example/room-reservation/internal/booking"
)

type stubRoomRepo struct {
	rooms map[string]booking.Room
}

func newStubRoomRepo() *stubRoomRepo {
	return &stubRoomRepo{rooms: make(map[string]booking.Room)}
}

func (s *stubRoomRepo) CreateRoom(_ context.Context, room booking.Room) (booking.Room, error) {
	s.rooms[room.ID] = room
	return room, nil
}

func (s *stubRoomRepo) GetRoom(_ context.Context, id string) (booking.Room, error) {
	room, ok := s.rooms[id]
	if !ok {
		return booking.Room{}, ErrNotFound
	}
	return room, nil
}

func (s *stubRoomRepo) UpdateRoom(_ context.Context, room booking.Room) (booking.Room, error) {
	if _, ok := s.rooms[room.ID]; !ok {
		return booking.Room{}, ErrNotFound
	}
	s.rooms[room.ID] = room
	return room, nil
}

func (s *stubRoomRepo) DeleteRoom(_ context.Context, id string) error {
	if _, ok := s.rooms[id]; !ok {
		return ErrNotFound
	}
	delete(s.rooms, id)
	return nil
}

func (s *stubRoomRepo) ListRooms(_ context.Context) ([]booking.Room, error) {
	out := make([]booking.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, room)
	}
	return out, nil
}

func newRoomService(repo *stubRoomRepo) *RoomService {
	var seq int
	return NewRoomService(repo, func() string {
		seq++
		return "room-generated"
	}, func() time.Time { return monday(9, 0) })
}

var admin = Principal{UserID: "admin-1", IsAdmin: true}

func TestRoomService_CreateRoom(t *testing.T) {
	t.Parallel()

	t.Run("creates a room with normalized features", func(t *testing.T) {
		t.Parallel()
		repo := newStubRoomRepo()
		svc := newRoomService(repo)

		created, err := svc.CreateRoom(context.Background(), CreateRoomParams{
			Principal: admin,
			Input: RoomInput{
				Name:        "  Seminar Room A ",
				MinCapacity: 2,
				MaxCapacity: 8,
				Features:    []string{"whiteboard", " projector ", "whiteboard", ""},
			},
		})
		if err != nil {
			t.Fatalf("CreateRoom: %v", err)
		}
		if created.Name != "Seminar Room A" {
			t.Errorf("name = %q", created.Name)
		}
		if want := []string{"projector", "whiteboard"}; !reflect.DeepEqual(created.Features, want) {
			t.Errorf("features = %v, want %v", created.Features, want)
		}
	})

	t.Run("non-admin is refused", func(t *testing.T) {
		t.Parallel()
		svc := newRoomService(newStubRoomRepo())
		_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
			Principal: Principal{UserID: "user-1"},
			Input:     RoomInput{Name: "Room", MinCapacity: 1, MaxCapacity: 4},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("err = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("rejects inverted capacity bounds", func(t *testing.T) {
		t.Parallel()
		svc := newRoomService(newStubRoomRepo())
		_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
			Principal: admin,
			Input:     RoomInput{Name: "Room", MinCapacity: 5, MaxCapacity: 2},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("err = %v, want *ValidationError", err)
		}
		if _, ok := vErr.FieldErrors["max_capacity"]; !ok {
			t.Errorf("field errors = %v", vErr.FieldErrors)
		}
	})
}

func TestRoomService_UpdateRoom(t *testing.T) {
	t.Parallel()
	repo := newStubRoomRepo()
	repo.rooms["room-1"] = booking.Room{ID: "room-1", Name: "Old", MinCapacity: 1, MaxCapacity: 4}
	svc := newRoomService(repo)

	updated, err := svc.UpdateRoom(context.Background(), UpdateRoomParams{
		Principal: admin,
		RoomID:    "room-1",
		Input:     RoomInput{Name: "New", MinCapacity: 2, MaxCapacity: 6},
	})
	if err != nil {
		t.Fatalf("UpdateRoom: %v", err)
	}
	if updated.Name != "New" || updated.MaxCapacity != 6 {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := svc.UpdateRoom(context.Background(), UpdateRoomParams{
		Principal: admin,
		RoomID:    "missing",
		Input:     RoomInput{Name: "New", MinCapacity: 1, MaxCapacity: 4},
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRoomService_ListRooms(t *testing.T) {
	t.Parallel()
	repo := newStubRoomRepo()
	repo.rooms["b"] = booking.Room{ID: "b", Name: "Beta", MinCapacity: 1, MaxCapacity: 4}
	repo.rooms["a"] = booking.Room{ID: "a", Name: "Alpha", MinCapacity: 1, MaxCapacity: 4}
	svc := newRoomService(repo)

	rooms, err := svc.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(rooms) != 2 || rooms[0].Name != "Alpha" || rooms[1].Name != "Beta" {
		t.Errorf("rooms = %+v", rooms)
	}
}

func TestRoomService_DeleteRoom(t *testing.T) {
	t.Parallel()
	repo := newStubRoomRepo()
	repo.rooms["room-1"] = booking.Room{ID: "room-1", Name: "Room", MinCapacity: 1, MaxCapacity: 4}
	svc := newRoomService(repo)

	if err := svc.DeleteRoom(context.Background(), Principal{UserID: "user-1"}, "room-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if err := svc.DeleteRoom(context.Background(), admin, "room-1"); err != nil {
		t.Fatalf("DeleteRoom: %v", err)
	}
	if err := svc.DeleteRoom(context.Background(), admin, "room-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
