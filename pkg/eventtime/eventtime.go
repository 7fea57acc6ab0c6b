package eventtime

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmpty is returned when the value to parse is blank.
var ErrEmpty = errors.New("eventtime: empty value")

const dateLayout = "2006-01-02"

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"15:04:05.999999999",
	"3:04 PM",
	"3:04PM",
	"3:04 pm",
	"3:04pm",
}

// Layouts carrying their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// Layouts interpreted in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
}

// Clock is a bare time-of-day.
type Clock struct {
	Hour, Minute, Second, Nanosecond int
}

// IsClock reports whether raw is a time-of-day without a date component.
func IsClock(raw string) bool {
	_, err := ParseClock(raw)
	return err == nil
}

// ParseClock parses "HH:MM", "HH:MM:SS" (optionally fractional) and 12-hour forms.
func ParseClock(raw string) (Clock, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Clock{}, ErrEmpty
	}
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return Clock{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nanosecond: t.Nanosecond()}, nil
		}
	}
	return Clock{}, fmt.Errorf("eventtime: invalid time of day %q", raw)
}

// ParseDate returns midnight of the calendar date held by raw, in loc.
// raw is either a bare date or a timestamp; a timestamp with an offset is
// first converted to loc so the calendar day is the local one.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrEmpty
	}
	if t, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
		return t, nil
	}
	t, err := ParseInstant(raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("eventtime: invalid date %q", raw)
	}
	return StartOfDay(t, loc), nil
}

// ParseInstant parses a full timestamp. Values without an offset are read in loc.
func ParseInstant(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrEmpty
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.In(loc), nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("eventtime: invalid timestamp %q", raw)
}

// Combine places clock on the calendar day of date, in loc.
func Combine(date time.Time, c Clock, loc *time.Location) time.Time {
	d := date.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, c.Second, c.Nanosecond, loc)
}

// Resolve turns an event's date and one of its time fields into an instant.
// A bare time-of-day is anchored on the event date; anything else must be a
// full timestamp.
func Resolve(dateRaw, timeRaw string, loc *time.Location) (time.Time, error) {
	if c, err := ParseClock(timeRaw); err == nil {
		date, err := ParseDate(dateRaw, loc)
		if err != nil {
			return time.Time{}, err
		}
		return Combine(date, c, loc), nil
	}
	return ParseInstant(timeRaw, loc)
}

// StartOfDay is midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay is 23:59:59.999 of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
}

// Format renders an instant for user-facing messages.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Mon 2 Jan 2006, 15:04")
}
