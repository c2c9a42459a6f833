package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/room-reservation/internal/booking"
)

// RoomRepository captures the persistence operations needed by the room service.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room booking.Room) (booking.Room, error)
	GetRoom(ctx context.Context, id string) (booking.Room, error)
	UpdateRoom(ctx context.Context, room booking.Room) (booking.Room, error)
	DeleteRoom(ctx context.Context, id string) error
	ListRooms(ctx context.Context) ([]booking.Room, error)
}

// RoomService orchestrates validation, authorization, and persistence for the
// room catalog. Mutations are admin only; reads are open to any principal.
type RoomService struct {
	rooms       RoomRepository
	idGenerator func() string
	now         func() time.Time
}

// NewRoomService wires dependencies for the room service.
func NewRoomService(rooms RoomRepository, idGenerator func() string, now func() time.Time) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{rooms: rooms, idGenerator: idGenerator, now: now}
}

// CreateRoom validates input and persists a new room for administrators.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (booking.Room, error) {
	if s == nil {
		return booking.Room{}, fmt.Errorf("RoomService is nil")
	}
	if !params.Principal.IsAdmin {
		return booking.Room{}, ErrUnauthorized
	}

	normalized := normalizeRoomInput(params.Input)
	if vErr := validateRoomInput(normalized); vErr.HasErrors() {
		return booking.Room{}, vErr
	}

	now := s.now()
	room := booking.Room{
		ID:          s.idGenerator(),
		Name:        normalized.Name,
		MinCapacity: normalized.MinCapacity,
		MaxCapacity: normalized.MaxCapacity,
		Description: normalized.Description,
		Features:    normalized.Features,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if s.rooms == nil {
		return room, nil
	}

	persisted, err := s.rooms.CreateRoom(ctx, room)
	if err != nil {
		return booking.Room{}, err
	}
	return persisted, nil
}

// UpdateRoom validates input and updates an existing room for administrators.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (booking.Room, error) {
	if s == nil {
		return booking.Room{}, fmt.Errorf("RoomService is nil")
	}
	if !params.Principal.IsAdmin {
		return booking.Room{}, ErrUnauthorized
	}
	if s.rooms == nil {
		return booking.Room{}, fmt.Errorf("room repository not configured")
	}

	existing, err := s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return booking.Room{}, ErrNotFound
		}
		return booking.Room{}, err
	}

	normalized := normalizeRoomInput(params.Input)
	if vErr := validateRoomInput(normalized); vErr.HasErrors() {
		return booking.Room{}, vErr
	}

	updated := existing
	updated.Name = normalized.Name
	updated.MinCapacity = normalized.MinCapacity
	updated.MaxCapacity = normalized.MaxCapacity
	updated.Description = normalized.Description
	updated.Features = normalized.Features
	updated.UpdatedAt = s.now()

	persisted, err := s.rooms.UpdateRoom(ctx, updated)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return booking.Room{}, ErrNotFound
		}
		return booking.Room{}, err
	}
	return persisted, nil
}

// GetRoom returns a single catalog entry.
func (s *RoomService) GetRoom(ctx context.Context, id string) (booking.Room, error) {
	if s == nil {
		return booking.Room{}, fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return booking.Room{}, fmt.Errorf("room repository not configured")
	}
	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return booking.Room{}, ErrNotFound
		}
		return booking.Room{}, err
	}
	return room, nil
}

// ListRooms returns the catalog ordered by name.
func (s *RoomService) ListRooms(ctx context.Context) ([]booking.Room, error) {
	if s == nil {
		return nil, fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return nil, nil
	}

	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]booking.Room, len(rooms))
	copy(out, rooms)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// DeleteRoom removes a room when requested by an administrator.
func (s *RoomService) DeleteRoom(ctx context.Context, principal Principal, roomID string) error {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}

	if err := s.rooms.DeleteRoom(ctx, roomID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func normalizeRoomInput(input RoomInput) RoomInput {
	seen := make(map[string]struct{}, len(input.Features))
	features := make([]string, 0, len(input.Features))
	for _, feature := range input.Features {
		feature = strings.TrimSpace(feature)
		if feature == "" {
			continue
		}
		if _, ok := seen[feature]; ok {
			continue
		}
		seen[feature] = struct{}{}
		features = append(features, feature)
	}
	sort.Strings(features)
	if len(features) == 0 {
		features = nil
	}

	return RoomInput{
		Name:        strings.TrimSpace(input.Name),
		MinCapacity: input.MinCapacity,
		MaxCapacity: input.MaxCapacity,
		Description: strings.TrimSpace(input.Description),
		Features:    features,
	}
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.MinCapacity < 1 {
		vErr.add("min_capacity", "minimum capacity must be at least 1")
	}
	if input.MaxCapacity < input.MinCapacity {
		vErr.add("max_capacity", "maximum capacity must not be below minimum capacity")
	}

	return vErr
}
