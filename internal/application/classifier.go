package application

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"share2care/internal/domain/entities"
	"share2care/pkg/eventtime"
)

// Classifier splits approved events into current and past ones.
type Classifier struct {
	loc *time.Location
	log zerolog.Logger
}

func NewClassifier(loc *time.Location, logger zerolog.Logger) *Classifier {
	if loc == nil {
		loc = time.Local
	}
	return &Classifier{loc: loc, log: logger.With().Str("component", "classifier").Logger()}
}

// Classify drops unapproved events and partitions the rest by their end
// instant. Input order is preserved in both outputs.
func (c *Classifier) Classify(events []entities.Event, now time.Time) (current, past []entities.Event) {
	current = make([]entities.Event, 0, len(events))
	past = make([]entities.Event, 0)
	for _, e := range events {
		if !e.IsApproved() {
			continue
		}
		if c.isPast(&e, now) {
			past = append(past, e)
		} else {
			current = append(current, e)
		}
	}
	return current, past
}

// EndInstant derives when an event is over: explicit end time if any,
// otherwise the last millisecond of its calendar day.
func (c *Classifier) EndInstant(e *entities.Event) (time.Time, error) {
	if strings.TrimSpace(e.EndTime) != "" {
		return eventtime.Resolve(e.EventDate, e.EndTime, c.loc)
	}
	date, err := eventtime.ParseDate(e.EventDate, c.loc)
	if err != nil {
		return time.Time{}, err
	}
	return eventtime.EndOfDay(date, c.loc), nil
}

// StartInstant derives when an event begins: explicit start time if any,
// otherwise midnight of its calendar day.
func (c *Classifier) StartInstant(e *entities.Event) (time.Time, error) {
	if strings.TrimSpace(e.StartTime) != "" {
		return eventtime.Resolve(e.EventDate, e.StartTime, c.loc)
	}
	return eventtime.ParseDate(e.EventDate, c.loc)
}

// HasStarted decides join eligibility. On malformed times it compares
// calendar days only, and an unreadable date counts as started.
func (c *Classifier) HasStarted(e *entities.Event, now time.Time) bool {
	start, err := c.StartInstant(e)
	if err == nil {
		return !now.Before(start)
	}
	c.log.Warn().Err(err).Int64("event_id", e.ID).Str("start_time", e.StartTime).Msg("start instant unreadable, comparing dates")

	date, derr := eventtime.ParseDate(e.EventDate, c.loc)
	if derr != nil {
		return true
	}
	return !date.After(eventtime.StartOfDay(now, c.loc))
}

func (c *Classifier) isPast(e *entities.Event, now time.Time) bool {
	end, err := c.EndInstant(e)
	if err == nil {
		return end.Before(now)
	}
	c.log.Warn().Err(err).Int64("event_id", e.ID).Str("event_date", e.EventDate).Str("end_time", e.EndTime).Msg("end instant unreadable, comparing dates")

	date, derr := eventtime.ParseDate(e.EventDate, c.loc)
	if derr != nil {
		return true
	}
	return date.Before(eventtime.StartOfDay(now, c.loc))
}
