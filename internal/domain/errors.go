package domain

import (
	"errors"
	"sort"
	"strings"
)

// Domain errors.
var (
	ErrEventNotFound      = errors.New("event not found")
	ErrNotLoggedIn        = errors.New("sign in required")
	ErrSessionExpired     = errors.New("session expired, please sign in again")
	ErrUnauthorized       = errors.New("gateway rejected the credentials")
	ErrAccountPending     = errors.New("account is waiting for approval")
	ErrEventStarted       = errors.New("event has already started")
	ErrEventFull          = errors.New("event is full")
	ErrAlreadyJoined      = errors.New("already joined this event")
	ErrEventNotPast       = errors.New("event has not ended yet")
	ErrAlreadyReviewed    = errors.New("event already reviewed")
	ErrReviewNotAllowed   = errors.New("review not allowed for this event")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrRateLimited        = errors.New("gateway rate limit reached")
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	ErrMalformedResponse  = errors.New("malformed gateway response")
	ErrRefreshInProgress  = errors.New("refresh already in progress")
	ErrInvalidTab         = errors.New("unknown tab")
)

// Ordered so that wrapping errors resolve to the most specific code.
var codes = []struct {
	err  error
	code string
}{
	{ErrSessionExpired, "session_expired"},
	{ErrEventNotFound, "event_not_found"},
	{ErrNotLoggedIn, "not_logged_in"},
	{ErrUnauthorized, "unauthorized"},
	{ErrAccountPending, "account_pending"},
	{ErrEventStarted, "event_started"},
	{ErrEventFull, "event_full"},
	{ErrAlreadyJoined, "already_joined"},
	{ErrEventNotPast, "event_not_past"},
	{ErrAlreadyReviewed, "already_reviewed"},
	{ErrReviewNotAllowed, "review_not_allowed"},
	{ErrInvalidRating, "invalid_rating"},
	{ErrRateLimited, "rate_limited"},
	{ErrGatewayUnavailable, "gateway_unavailable"},
	{ErrMalformedResponse, "malformed_response"},
	{ErrRefreshInProgress, "refresh_in_progress"},
	{ErrInvalidTab, "invalid_tab"},
}

// Code returns the stable code of the first domain error found in err's chain,
// "validation" for a ValidationError, or "" when err is not a domain error.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return "validation"
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// ValidationError carries one message per invalid form field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
