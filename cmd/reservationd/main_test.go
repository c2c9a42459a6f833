package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/room-reservation/internal/application"
	"github.com/example/room-reservation/internal/booking"
	"github.com/example/room-reservation/internal/config"
	"github.com/example/room-reservation/internal/persistence/sqlite"
	"github.com/example/room-reservation/internal/testfixtures"
)

func openTestPool(t *testing.T) *sqlite.ConnectionPool {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "reservations.db")
	pool, err := sqlite.Open(dsn)
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

func TestSeedAdminUser(t *testing.T) {
	pool := openTestPool(t)
	repo := sqlite.NewUserRepository(pool)
	ctx := context.Background()

	gen := testfixtures.NewIDGenerator("admin")
	clock := testfixtures.NewClock(time.Time{})
	cfg := config.Config{AdminEmail: "Admin@Example.com", AdminPassword: "correct horse battery"}

	if err := seedAdminUser(ctx, repo, cfg, gen.NextFunc(), clock.NowFunc(), slog.Default()); err != nil {
		t.Fatalf("seedAdminUser: %v", err)
	}

	stored, err := repo.GetUserByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if !stored.IsAdmin {
		t.Error("seeded account should be an administrator")
	}
	if err := application.VerifyPassword(stored.PasswordHash, "correct horse battery"); err != nil {
		t.Errorf("seeded password hash does not verify: %v", err)
	}

	// Seeding again must not create a second account or fail.
	if err := seedAdminUser(ctx, repo, cfg, gen.NextFunc(), clock.NowFunc(), slog.Default()); err != nil {
		t.Fatalf("second seedAdminUser: %v", err)
	}
	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("expected one account after repeated seeding, got %d", len(users))
	}
}

func TestSeedAdminUser_SkippedWithoutConfig(t *testing.T) {
	pool := openTestPool(t)
	repo := sqlite.NewUserRepository(pool)

	if err := seedAdminUser(context.Background(), repo, config.Config{}, testfixtures.NewIDGenerator("admin").NextFunc(), time.Now, slog.Default()); err != nil {
		t.Fatalf("seedAdminUser without config: %v", err)
	}

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("expected no accounts, got %d", len(users))
	}
}

func TestBookingRepositoryAdapter_RoundTrip(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture()
	room := testfixtures.NewRoomFixture()
	if err := sqlite.NewUserRepository(pool).CreateUser(ctx, user.AsPersistence()); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := sqlite.NewRoomRepository(pool).CreateRoom(ctx, room.AsPersistence()); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	adapter := newBookingRepositoryAdapter(sqlite.NewBookingRepository(pool))

	fixture := testfixtures.NewBookingFixture(testfixtures.ForRoom(room.ID), testfixtures.OwnedBy(user.ID))
	created, err := adapter.CreateBooking(ctx, fixture.AsDomain())
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	fetched, err := adapter.GetBooking(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if fetched.RoomID != room.ID || fetched.Status != booking.StatusConfirmed {
		t.Errorf("round trip mismatch: %+v", fetched)
	}
	if !fetched.Window.Start.Equal(fixture.Start) {
		t.Errorf("window start = %v, want %v", fetched.Window.Start, fixture.Start)
	}

	overlap, err := booking.NewWindow(fixture.Start.Add(30*time.Minute), fixture.End.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	found, err := adapter.FindConfirmedOverlapping(ctx, room.ID, overlap)
	if err != nil {
		t.Fatalf("FindConfirmedOverlapping: %v", err)
	}
	if len(found) != 1 || found[0].ID != created.ID {
		t.Errorf("overlap query returned %+v", found)
	}

	reason := "cancelled in test"
	if _, err := adapter.UpdateBookingStatus(ctx, created.ID, booking.StatusConfirmed, booking.StatusCancelled, &reason, time.Now().UTC()); err != nil {
		t.Fatalf("UpdateBookingStatus: %v", err)
	}

	// The compare-and-set must surface a stale transition as the application sentinel.
	_, err = adapter.UpdateBookingStatus(ctx, created.ID, booking.StatusConfirmed, booking.StatusCancelled, nil, time.Now().UTC())
	if !errors.Is(err, application.ErrInvalidStateTransition) {
		t.Errorf("stale transition error = %v, want ErrInvalidStateTransition", err)
	}

	_, err = adapter.GetBooking(ctx, "missing")
	if !errors.Is(err, application.ErrNotFound) {
		t.Errorf("missing booking error = %v, want ErrNotFound", err)
	}
}

func TestUserRepositoryAdapter_ErrorMapping(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()

	adapter := newUserRepositoryAdapter(sqlite.NewUserRepository(pool))

	_, err := adapter.GetUserCredentialsByEmail(ctx, "nobody@example.com")
	if !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("missing user error = %v, want ErrNotFound", err)
	}

	fixture := testfixtures.NewUserFixture()
	creds := application.UserCredentials{User: toApplicationUser(fixture.AsPersistence()), PasswordHash: fixture.PasswordHash}
	if _, err := adapter.CreateUser(ctx, creds); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	_, err = adapter.CreateUser(ctx, creds)
	if !errors.Is(err, application.ErrAlreadyExists) {
		t.Errorf("duplicate user error = %v, want ErrAlreadyExists", err)
	}
}
