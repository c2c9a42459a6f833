package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/example/room-reservation/internal/booking"
)

const (
	defaultOpeningHour = 8
	defaultClosingHour = 22
)

// calendarFile is the TOML shape of the operating calendar.
//
//	opening_hour = 8
//	closing_hour = 22
//	timezone = "UTC"
//
//	[[closure]]
//	weekday = "Saturday"
//	from = "00:00"
//	to = "24:00"
//
//	[[closure]]
//	weekday = "Friday"
//	from = "17:00"
//	to = "close"
type calendarFile struct {
	OpeningHour int           `toml:"opening_hour"`
	ClosingHour int           `toml:"closing_hour"`
	Timezone    string        `toml:"timezone"`
	Closures    []closureFile `toml:"closure"`
}

type closureFile struct {
	Weekday string `toml:"weekday"`
	From    string `toml:"from"`
	To      string `toml:"to"`
}

// LoadCalendar reads the operating calendar from a TOML file. An empty path
// yields the default calendar: open every day from 08:00 to 22:00, UTC, no
// closures.
func LoadCalendar(path string) (booking.OperatingCalendar, error) {
	if path == "" {
		return booking.NewOperatingCalendar(defaultOpeningHour, defaultClosingHour, nil, time.UTC)
	}

	var file calendarFile
	file.OpeningHour = defaultOpeningHour
	file.ClosingHour = defaultClosingHour
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return booking.OperatingCalendar{}, fmt.Errorf("failed to read calendar file: %w", err)
	}

	loc := time.UTC
	if file.Timezone != "" {
		parsed, err := time.LoadLocation(file.Timezone)
		if err != nil {
			return booking.OperatingCalendar{}, fmt.Errorf("invalid calendar timezone %q: %w", file.Timezone, err)
		}
		loc = parsed
	}

	closures := make([]booking.Closure, 0, len(file.Closures))
	for i, entry := range file.Closures {
		closure, err := parseClosure(entry, file.ClosingHour)
		if err != nil {
			return booking.OperatingCalendar{}, fmt.Errorf("closure %d: %w", i+1, err)
		}
		closures = append(closures, closure)
	}

	return booking.NewOperatingCalendar(file.OpeningHour, file.ClosingHour, closures, loc)
}

func parseClosure(entry closureFile, closingHour int) (booking.Closure, error) {
	weekday, err := parseWeekday(entry.Weekday)
	if err != nil {
		return booking.Closure{}, err
	}

	from, err := parseMinuteOfDay(entry.From)
	if err != nil {
		return booking.Closure{}, fmt.Errorf("invalid from %q: %w", entry.From, err)
	}

	var to int
	if strings.EqualFold(strings.TrimSpace(entry.To), "close") {
		to = closingHour * 60
	} else {
		to, err = parseMinuteOfDay(entry.To)
		if err != nil {
			return booking.Closure{}, fmt.Errorf("invalid to %q: %w", entry.To, err)
		}
	}

	return booking.Closure{Weekday: weekday, FromMinute: from, ToMinute: to}, nil
}

func parseWeekday(value string) (time.Weekday, error) {
	for day := time.Sunday; day <= time.Saturday; day++ {
		if strings.EqualFold(value, day.String()) {
			return day, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", value)
}

// parseMinuteOfDay accepts "HH:MM"; "24:00" marks end of day.
func parseMinuteOfDay(value string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM")
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM")
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM")
	}
	total := hour*60 + minute
	if hour < 0 || minute < 0 || minute > 59 || total > 24*60 {
		return 0, fmt.Errorf("out of range")
	}
	return total, nil
}
