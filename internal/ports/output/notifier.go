package output

import (
	"context"
	"errors"
)

// Notice is a one-time message surfaced to the user.
type Notice struct {
	Kind    string
	EventID int64
	UserID  string
	Title   string
	Body    string
}

// Notice kinds.
const (
	NoticeEventApproved   = "event_approved"
	NoticeAccountApproved = "account_approved"
)

// Notifier delivers notices. Implementations return ErrNotifierUnavailable
// when they are not configured so that a chain can fall through.
type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

// ErrNotifierUnavailable marks a notifier that cannot deliver right now.
var ErrNotifierUnavailable = errors.New("notifier unavailable")
