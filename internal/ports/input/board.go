package input

import (
	"context"

	"share2care/internal/application"
	"share2care/internal/domain/entities"
)

type BoardUseCase interface {
	View() application.BoardView
	ChangeFilter(q application.Query)
	ChangePage(tab string, page int) error
	RefreshNow(ctx context.Context) error
	Join(ctx context.Context, eventID int64) error
	Review(ctx context.Context, eventID int64, rating int, text string) error
	Reviews(ctx context.Context, eventID int64) ([]entities.Review, error)
	Eligibility(eventID int64) (entities.Eligibility, bool)
}

type SubmissionUseCase interface {
	Submit(ctx context.Context, form entities.EventSubmission) error
}
