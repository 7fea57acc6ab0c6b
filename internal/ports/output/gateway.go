package output

import (
	"context"

	"share2care/internal/domain/entities"
)

// EventGateway is the read side of the remote data gateway used by the board.
type EventGateway interface {
	ListEvents(ctx context.Context) ([]entities.Event, error)
	ListCategories(ctx context.Context) ([]entities.Category, error)
	GetUserJoinedEvents(ctx context.Context, userID string) ([]entities.Event, error)
	JoinEvent(ctx context.Context, eventID int64, userID string) error
	CreateEvent(ctx context.Context, event entities.NewEvent) error
}

// ReviewGateway covers review eligibility and reviews.
type ReviewGateway interface {
	CanUserReviewEvent(ctx context.Context, eventID int64, userID string) (entities.Eligibility, error)
	GetEventReviews(ctx context.Context, eventID int64) ([]entities.Review, error)
	SubmitEventReview(ctx context.Context, review entities.ReviewSubmission) error
}

// ApprovalGateway reports a user's account approval.
type ApprovalGateway interface {
	GetUserApprovalStatus(ctx context.Context, userID string) (entities.ApprovalState, error)
}

// BoardGateway is what the events board needs.
type BoardGateway interface {
	EventGateway
	ReviewGateway
}

// Gateway is the whole remote data gateway.
type Gateway interface {
	EventGateway
	ReviewGateway
	ApprovalGateway
}

// TokenSource supplies the bearer token attached to gateway calls.
type TokenSource interface {
	Token(ctx context.Context) string
}
