package input

import (
	"context"

	"share2care/internal/application"
	"share2care/internal/domain/entities"
	"share2care/internal/ports/output"
)

type SessionUseCase interface {
	Current(ctx context.Context) (*entities.Session, error)
	SignIn(ctx context.Context, user entities.User, token, approval string) error
	SignOut(ctx context.Context) error
}

// ApprovalSignals accepts admin approval signals; returns the number of
// subscribers reached.
type ApprovalSignals interface {
	Publish(sig application.EventApproved) int
}

// NoticeInbox hands out notices waiting to be shown in the page.
type NoticeInbox interface {
	TakePending(userID string) []output.Notice
}
