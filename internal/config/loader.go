// Package config loads service configuration from the environment and the
// optional operating calendar file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration for the reservation service.
type Config struct {
	HTTPPort   int
	SQLiteDSN  string
	SessionTTL time.Duration

	MinLeadTime         time.Duration
	MinDuration         time.Duration
	MaxDuration         time.Duration
	MinAttendees        int
	MaxAttendees        int
	EnforceRoomCapacity bool
	LockTimeout         time.Duration

	KafkaBrokers string
	KafkaTopic   string

	CalendarPath string

	// AdminEmail and AdminPassword seed an initial administrator account at
	// startup when no account with that email exists. Both must be set.
	AdminEmail    string
	AdminPassword string

	TracingEnabled bool
	OTLPEndpoint   string
	SampleRatio    float64
}

// Load parses configuration values from the current process environment,
// applying defaults for everything left unset.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:     8080,
		SQLiteDSN:    "file:reservations.db",
		SessionTTL:   24 * time.Hour,
		MinLeadTime:  30 * time.Minute,
		MinDuration:  30 * time.Minute,
		MaxDuration:  4 * time.Hour,
		MinAttendees: 1,
		MaxAttendees: 20,
		LockTimeout:  5 * time.Second,
		KafkaTopic:   "booking-events",
		OTLPEndpoint: "localhost:4317",
		SampleRatio:  1.0,
	}

	var invalid []string

	readInt := func(key string, minimum int, dst *int) {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			return
		}
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < minimum {
			invalid = append(invalid, key)
			return
		}
		*dst = parsed
	}

	readDuration := func(key string, dst *time.Duration) {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			return
		}
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed < 0 {
			invalid = append(invalid, key)
			return
		}
		*dst = parsed
	}

	readBool := func(key string, dst *bool) {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			return
		}
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, key)
			return
		}
		*dst = parsed
	}

	readInt("RESERVATION_HTTP_PORT", 1, &cfg.HTTPPort)
	readDuration("RESERVATION_SESSION_TTL", &cfg.SessionTTL)
	readDuration("RESERVATION_MIN_LEAD_TIME", &cfg.MinLeadTime)
	readDuration("RESERVATION_MIN_DURATION", &cfg.MinDuration)
	readDuration("RESERVATION_MAX_DURATION", &cfg.MaxDuration)
	readInt("RESERVATION_MIN_ATTENDEES", 1, &cfg.MinAttendees)
	readInt("RESERVATION_MAX_ATTENDEES", 1, &cfg.MaxAttendees)
	readBool("RESERVATION_ENFORCE_ROOM_CAPACITY", &cfg.EnforceRoomCapacity)
	readDuration("RESERVATION_LOCK_TIMEOUT", &cfg.LockTimeout)
	readBool("RESERVATION_TRACING_ENABLED", &cfg.TracingEnabled)

	if dsn := strings.TrimSpace(os.Getenv("RESERVATION_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}
	if brokers := strings.TrimSpace(os.Getenv("RESERVATION_KAFKA_BROKERS")); brokers != "" {
		cfg.KafkaBrokers = brokers
	}
	if topic := strings.TrimSpace(os.Getenv("RESERVATION_KAFKA_TOPIC")); topic != "" {
		cfg.KafkaTopic = topic
	}
	if path := strings.TrimSpace(os.Getenv("RESERVATION_CALENDAR_PATH")); path != "" {
		cfg.CalendarPath = path
	}
	cfg.AdminEmail = strings.TrimSpace(os.Getenv("RESERVATION_ADMIN_EMAIL"))
	cfg.AdminPassword = os.Getenv("RESERVATION_ADMIN_PASSWORD")
	if endpoint := strings.TrimSpace(os.Getenv("RESERVATION_OTLP_ENDPOINT")); endpoint != "" {
		cfg.OTLPEndpoint = endpoint
	}
	if ratio := strings.TrimSpace(os.Getenv("RESERVATION_OTEL_SAMPLE_RATIO")); ratio != "" {
		parsed, err := strconv.ParseFloat(ratio, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			invalid = append(invalid, "RESERVATION_OTEL_SAMPLE_RATIO")
		} else {
			cfg.SampleRatio = parsed
		}
	}

	if cfg.MaxDuration < cfg.MinDuration {
		invalid = append(invalid, "RESERVATION_MAX_DURATION")
	}
	if cfg.MaxAttendees < cfg.MinAttendees {
		invalid = append(invalid, "RESERVATION_MAX_ATTENDEES")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
