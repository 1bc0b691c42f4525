package timeutil

import (
	"fmt"
	"strings"
	"time"

	"tripbot/internal/models"
)

// DefaultZone is the operator time zone trip schedules are written in.
const DefaultZone = "America/Sao_Paulo"

// LoadLocation resolves the zone, falling back to a fixed UTC-3 offset when
// the host has no tzdata.
func LoadLocation(name string) *time.Location {
	if strings.TrimSpace(name) == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, -3*60*60)
	}
	return loc
}

// Clock supplies the current instant. Production code uses System; tests
// inject a Fixed clock to drive time windows deterministically.
type Clock interface {
	Now() time.Time
}

// System is the wall clock in a given location.
type System struct {
	Loc *time.Location
}

// Now returns the current time in the configured location.
func (c System) Now() time.Time {
	if c.Loc == nil {
		return time.Now()
	}
	return time.Now().In(c.Loc)
}

// Fixed always returns the same instant; Set moves it.
type Fixed struct {
	T time.Time
}

func (c *Fixed) Now() time.Time { return c.T }

// Set moves the clock to t.
func (c *Fixed) Set(t time.Time) { c.T = t }

// Advance moves the clock forward by d.
func (c *Fixed) Advance(d time.Duration) { c.T = c.T.Add(d) }

// ParseSchedule combines a YYYY-MM-DD date and an HH:MM (or HH:MM:SS) time
// into a single instant in loc.
func ParseSchedule(date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("%w: empty date or time", models.ErrMalformedSchedule)
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, date+" "+clock, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q %q", models.ErrMalformedSchedule, date, clock)
}

// FormatDate renders YYYY-MM-DD as DD/MM/YYYY; other inputs are returned as is.
func FormatDate(date string) string {
	parts := strings.Split(strings.TrimSpace(date), "-")
	if len(parts) != 3 {
		return date
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}
