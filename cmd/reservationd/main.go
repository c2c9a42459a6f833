package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/example/room-reservation/internal/application"
	"github.com/example/room-reservation/internal/booking"
	"github.com/example/room-reservation/internal/config"
	"github.com/example/room-reservation/internal/events"
	httptransport "github.com/example/room-reservation/internal/http"
	"github.com/example/room-reservation/internal/persistence"
	"github.com/example/room-reservation/internal/persistence/sqlite"
	"github.com/example/room-reservation/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	calendar, err := config.LoadCalendar(cfg.CalendarPath)
	if err != nil {
		logger.Error("failed to load operating calendar", "error", err)
		os.Exit(1)
	}

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.TracingEnabled,
		ServiceName:  "reservationd",
		OTLPEndpoint: cfg.OTLPEndpoint,
		SampleRatio:  cfg.SampleRatio,
	})
	if err != nil {
		logger.Error("failed to configure tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if terr := shutdownTracing(flushCtx); terr != nil {
			logger.Error("failed to flush traces", "error", terr)
		}
	}()

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := uuid.NewString
	now := time.Now

	var publisher application.EventPublisher = events.NopPublisher{}
	if brokers := events.SplitBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(brokers, cfg.KafkaTopic, idGenerator, now, logger)
		defer func() {
			if cerr := kafkaPublisher.Close(); cerr != nil {
				logger.Error("failed to close event publisher", "error", cerr)
			}
		}()
		publisher = kafkaPublisher
	}

	bookings := newBookingRepositoryAdapter(sqlite.NewBookingRepository(pool))
	rooms := newRoomRepositoryAdapter(sqlite.NewRoomRepository(pool))
	users := newUserRepositoryAdapter(sqlite.NewUserRepository(pool))
	sessions := newSessionRepositoryAdapter(sqlite.NewSessionRepository(pool))

	validator := application.NewBookingValidator(calendar, bookings, application.Rules{
		MinLeadTime:         cfg.MinLeadTime,
		MinDuration:         cfg.MinDuration,
		MaxDuration:         cfg.MaxDuration,
		MinAttendees:        cfg.MinAttendees,
		MaxAttendees:        cfg.MaxAttendees,
		EnforceRoomCapacity: cfg.EnforceRoomCapacity,
	})

	reservations := application.NewReservationCoordinator(bookings, rooms, users, validator, publisher, cfg.LockTimeout, idGenerator, now, logger)
	cancellations := application.NewCancellationManager(bookings, publisher, reservations, now, logger)
	roomService := application.NewRoomService(rooms, idGenerator, now)
	userService := application.NewUserService(users, nil, idGenerator, now)
	authService := application.NewAuthService(users, sessions, nil, tokenGenerator, now, cfg.SessionTTL, logger)

	if err := seedAdminUser(ctx, sqlite.NewUserRepository(pool), cfg, idGenerator, now, logger); err != nil {
		logger.Error("failed to seed administrator account", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:     httptransport.NewAuthHandler(authService, logger),
		Users:    httptransport.NewUserHandler(userService, logger),
		Rooms:    httptransport.NewRoomHandler(roomService, logger),
		Bookings: httptransport.NewBookingHandler(reservations, cancellations, logger),
	})

	protected := httptransport.RequireSession(authService, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Login is the only route reachable without a session.
		if r.Method == http.MethodPost && strings.EqualFold(r.URL.Path, "/sessions") {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           otelhttp.NewHandler(handler, "reservationd"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reservation API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// seedAdminUser creates the configured administrator account when no account
// with that email exists yet. Without it a fresh deployment has no principal
// able to create users or rooms.
func seedAdminUser(ctx context.Context, repo persistence.UserRepository, cfg config.Config, idGenerator func() string, now func() time.Time, logger *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	email := strings.ToLower(cfg.AdminEmail)
	if _, err := repo.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return err
	}

	hash, err := application.HashPassword(cfg.AdminPassword, application.DefaultArgon2idParams)
	if err != nil {
		return err
	}

	created := now().UTC()
	admin := persistence.User{
		ID:           idGenerator(),
		Email:        email,
		DisplayName:  "Administrator",
		PasswordHash: hash,
		IsAdmin:      true,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	if err := repo.CreateUser(ctx, admin); err != nil {
		return err
	}

	logger.Info("seeded administrator account", "email", email, "user_id", admin.ID)
	return nil
}

// mapPersistenceError translates storage sentinels into application sentinels
// so services never observe persistence error values.
func mapPersistenceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return application.ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return application.ErrAlreadyExists
	case errors.Is(err, persistence.ErrStaleStatus):
		return application.ErrInvalidStateTransition
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return application.ErrNotFound
	default:
		return err
	}
}

type bookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func newBookingRepositoryAdapter(repo persistence.BookingRepository) *bookingRepositoryAdapter {
	return &bookingRepositoryAdapter{repo: repo}
}

func (a *bookingRepositoryAdapter) CreateBooking(ctx context.Context, b booking.Booking) (booking.Booking, error) {
	if err := a.repo.CreateBooking(ctx, toPersistenceBooking(b)); err != nil {
		return booking.Booking{}, mapPersistenceError(err)
	}
	return b, nil
}

func (a *bookingRepositoryAdapter) GetBooking(ctx context.Context, id string) (booking.Booking, error) {
	stored, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return booking.Booking{}, mapPersistenceError(err)
	}
	return toDomainBooking(stored)
}

func (a *bookingRepositoryAdapter) ListBookings(ctx context.Context, filter application.BookingRepositoryFilter) ([]booking.Booking, error) {
	models, err := a.repo.ListBookings(ctx, persistence.BookingFilter{
		RoomID:      filter.RoomID,
		UserID:      filter.UserID,
		StartsAfter: filter.StartsAfter,
		EndsBefore:  filter.EndsBefore,
	})
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	return toDomainBookings(models)
}

func (a *bookingRepositoryAdapter) FindConfirmedOverlapping(ctx context.Context, roomID string, window booking.Window) ([]booking.Booking, error) {
	models, err := a.repo.FindConfirmedOverlapping(ctx, roomID, window.Start, window.End)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	return toDomainBookings(models)
}

func (a *bookingRepositoryAdapter) UpdateBookingStatus(ctx context.Context, id string, from, to booking.Status, reason *string, at time.Time) (booking.Booking, error) {
	stored, err := a.repo.UpdateBookingStatus(ctx, id, string(from), string(to), reason, at)
	if err != nil {
		return booking.Booking{}, mapPersistenceError(err)
	}
	return toDomainBooking(stored)
}

type roomRepositoryAdapter struct {
	repo persistence.RoomRepository
}

func newRoomRepositoryAdapter(repo persistence.RoomRepository) *roomRepositoryAdapter {
	return &roomRepositoryAdapter{repo: repo}
}

func (a *roomRepositoryAdapter) CreateRoom(ctx context.Context, room booking.Room) (booking.Room, error) {
	if err := a.repo.CreateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return booking.Room{}, mapPersistenceError(err)
	}
	stored, err := a.repo.GetRoom(ctx, room.ID)
	if err != nil {
		return booking.Room{}, mapPersistenceError(err)
	}
	return toDomainRoom(stored), nil
}

func (a *roomRepositoryAdapter) GetRoom(ctx context.Context, id string) (booking.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return booking.Room{}, mapPersistenceError(err)
	}
	return toDomainRoom(stored), nil
}

func (a *roomRepositoryAdapter) UpdateRoom(ctx context.Context, room booking.Room) (booking.Room, error) {
	if err := a.repo.UpdateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return booking.Room{}, mapPersistenceError(err)
	}
	stored, err := a.repo.GetRoom(ctx, room.ID)
	if err != nil {
		return booking.Room{}, mapPersistenceError(err)
	}
	return toDomainRoom(stored), nil
}

func (a *roomRepositoryAdapter) DeleteRoom(ctx context.Context, id string) error {
	return mapPersistenceError(a.repo.DeleteRoom(ctx, id))
}

func (a *roomRepositoryAdapter) ListRooms(ctx context.Context) ([]booking.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	rooms := make([]booking.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toDomainRoom(model))
	}
	return rooms, nil
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, creds application.UserCredentials) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(creds)); err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	return creds.User, nil
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserCredentials(ctx context.Context, id string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.UserCredentials{}, mapPersistenceError(err)
	}
	return application.UserCredentials{User: toApplicationUser(stored), PasswordHash: stored.PasswordHash}, nil
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, creds application.UserCredentials) (application.User, error) {
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(creds)); err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	return creds.User, nil
}

func (a *userRepositoryAdapter) DeleteUser(ctx context.Context, id string) error {
	return mapPersistenceError(a.repo.DeleteUser(ctx, id))
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

func (a *userRepositoryAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, mapPersistenceError(err)
	}
	return application.UserCredentials{User: toApplicationUser(stored), PasswordHash: stored.PasswordHash}, nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, mapPersistenceError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, mapPersistenceError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, mapPersistenceError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return mapPersistenceError(a.repo.DeleteExpiredSessions(ctx, reference))
}

func toPersistenceBooking(b booking.Booking) persistence.Booking {
	attendees := make([]persistence.Attendee, 0, len(b.Attendees))
	for _, attendee := range b.Attendees {
		attendees = append(attendees, persistence.Attendee{
			Name:        attendee.Name,
			StudentID:   cloneString(attendee.StudentID),
			IsCompanion: attendee.IsCompanion,
		})
	}
	return persistence.Booking{
		ID:                 b.ID,
		RoomID:             b.RoomID,
		UserID:             b.UserID,
		Start:              b.Window.Start,
		End:                b.Window.End,
		Purpose:            b.Purpose,
		Attendees:          attendees,
		Status:             string(b.Status),
		CancellationReason: cloneString(b.CancellationReason),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.CreatedAt,
	}
}

func toDomainBooking(model persistence.Booking) (booking.Booking, error) {
	window, err := booking.NewWindow(model.Start, model.End)
	if err != nil {
		return booking.Booking{}, fmt.Errorf("stored booking %s has an invalid window: %w", model.ID, err)
	}
	attendees := make([]booking.Attendee, 0, len(model.Attendees))
	for _, attendee := range model.Attendees {
		attendees = append(attendees, booking.Attendee{
			Name:        attendee.Name,
			StudentID:   cloneString(attendee.StudentID),
			IsCompanion: attendee.IsCompanion,
		})
	}
	return booking.Booking{
		ID:                 model.ID,
		RoomID:             model.RoomID,
		UserID:             model.UserID,
		Window:             window,
		Purpose:            model.Purpose,
		Attendees:          attendees,
		Status:             booking.Status(model.Status),
		CancellationReason: cloneString(model.CancellationReason),
		CreatedAt:          model.CreatedAt,
	}, nil
}

func toDomainBookings(models []persistence.Booking) ([]booking.Booking, error) {
	if len(models) == 0 {
		return nil, nil
	}
	bookings := make([]booking.Booking, 0, len(models))
	for _, model := range models {
		converted, err := toDomainBooking(model)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, converted)
	}
	return bookings, nil
}

func toDomainRoom(model persistence.Room) booking.Room {
	return booking.Room{
		ID:          model.ID,
		Name:        model.Name,
		MinCapacity: model.MinCapacity,
		MaxCapacity: model.MaxCapacity,
		Description: model.Description,
		Features:    append([]string(nil), model.Features...),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceRoom(room booking.Room) persistence.Room {
	return persistence.Room{
		ID:          room.ID,
		Name:        room.Name,
		MinCapacity: room.MinCapacity,
		MaxCapacity: room.MaxCapacity,
		Description: room.Description,
		Features:    append([]string(nil), room.Features...),
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		IsAdmin:     model.IsAdmin,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceUser(creds application.UserCredentials) persistence.User {
	return persistence.User{
		ID:           creds.User.ID,
		Email:        creds.User.Email,
		DisplayName:  creds.User.DisplayName,
		PasswordHash: creds.PasswordHash,
		IsAdmin:      creds.User.IsAdmin,
		CreatedAt:    creds.User.CreatedAt,
		UpdatedAt:    creds.User.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		UserID:    model.UserID,
		Token:     model.Token,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
