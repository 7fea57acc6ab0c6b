package entities

// EventSubmission is the event creation form.
type EventSubmission struct {
	Title           string `json:"title" validate:"required,min=3,max=120"`
	Description     string `json:"description" validate:"required,min=10,max=2000"`
	Category        string `json:"category" validate:"required"`
	Location        string `json:"location" validate:"max=200"`
	EventDate       string `json:"event_date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime         string `json:"end_time" validate:"required,datetime=15:04"`
	MaxParticipants int    `json:"max_participants" validate:"required,min=1,max=500"`
}

// NewEvent is what createEvent sends to the gateway.
type NewEvent struct {
	EventSubmission
	OrganizerID   string
	OrganizerName string
	Status        string
}
