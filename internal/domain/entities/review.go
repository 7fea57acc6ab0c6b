package entities

import "time"

// Review is one participant's rating of a past event.
type Review struct {
	EventID      int64
	ReviewerName string
	Rating       int
	Text         string
	CreatedAt    time.Time
}

// Eligibility describes whether a user may review an event and what they
// already wrote.
type Eligibility struct {
	CanReview      bool
	HasReviewed    bool
	ExistingRating *int
	ExistingReview *string
}

// DefaultEligibility is recorded when the gateway could not answer.
func DefaultEligibility() Eligibility {
	return Eligibility{}
}

// ReviewSubmission is the payload of submitEventReview.
type ReviewSubmission struct {
	EventID int64
	UserID  string
	Rating  int
	Text    string
}
