package entities

import (
	"strings"

	"share2care/internal/domain"
)

// Event is a community activity as listed by the gateway. Date and time
// fields are kept raw; deriving instants is the classifier's job.
type Event struct {
	ID                  int64
	Title               string
	Description         string
	Category            string
	Location            string
	EventDate           string
	StartTime           string
	EndTime             string
	MaxParticipants     int
	CurrentParticipants int
	OrganizerID         string
	OrganizerName       string
	Status              string
}

// IsApproved reports whether the event is visible on the board.
func (e *Event) IsApproved() bool {
	switch strings.ToLower(strings.TrimSpace(e.Status)) {
	case domain.StatusActive, domain.StatusApproved:
		return true
	}
	return false
}

// Available is the remaining capacity. Negative when the event is over capacity.
func (e *Event) Available() int {
	return e.MaxParticipants - e.CurrentParticipants
}

// IsFull reports whether no seat is left. Over-capacity counts as full, and
// so does an event without seats.
func (e *Event) IsFull() bool {
	return e.CurrentParticipants >= e.MaxParticipants
}

// Category labels events.
type Category struct {
	ID     int64
	Name   string
	Status string
}

// IsActive reports whether the category may be offered in the selector.
func (c *Category) IsActive() bool {
	return strings.EqualFold(strings.TrimSpace(c.Status), domain.StatusActive)
}
