package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"share2care/internal/domain"
	"share2care/internal/domain/entities"
	"share2care/pkg/eventtime"
)

// Field aliases seen across gateway versions, first match wins.
var (
	aliasCanReview   = []string{"can_review", "canReview", "allowed", "is_allowed", "can_rate"}
	aliasHasReviewed = []string{"has_reviewed", "hasReviewed", "already_reviewed", "reviewed"}
	aliasRating      = []string{"existing_rating", "existingRating", "rating"}
	aliasReviewText  = []string{"existing_review", "existingReview", "review", "review_text"}
)

// unwrap peels the {data: ...} envelope and, for lists, a named collection key.
func unwrap(raw any, keys ...string) any {
	for i := 0; i < 3; i++ {
		m, ok := raw.(map[string]any)
		if !ok {
			return raw
		}
		if inner, ok := m["data"]; ok {
			raw = inner
			continue
		}
		for _, k := range keys {
			if inner, ok := m[k]; ok {
				return inner
			}
		}
		return raw
	}
	return raw
}

func list(raw any, keys ...string) ([]map[string]any, error) {
	raw = unwrap(raw, keys...)
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list, got %T", domain.ErrMalformedResponse, raw)
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected an object, got %T", domain.ErrMalformedResponse, it)
		}
		out = append(out, m)
	}
	return out, nil
}

func object(raw any) (map[string]any, error) {
	raw = unwrap(raw)
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected an object, got %T", domain.ErrMalformedResponse, raw)
	}
	return m, nil
}

// pick returns the first present, non-null alias.
func pick(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return scalar(v), true
		}
	}
	return nil, false
}

// scalar turns json.Number into a native number so cast handles it.
func scalar(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func str(m map[string]any, keys ...string) string {
	v, ok := pick(m, keys...)
	if !ok {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

func integer(m map[string]any, keys ...string) int64 {
	v, ok := pick(m, keys...)
	if !ok {
		return 0
	}
	if s, isStr := v.(string); isStr {
		v = strings.TrimLeft(strings.TrimSpace(s), "0")
		if v == "" {
			return 0
		}
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0
	}
	return n
}

func flag(m map[string]any, keys ...string) bool {
	v, ok := pick(m, keys...)
	if !ok {
		return false
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false
	}
	return b
}

func decodeEvents(raw any) ([]entities.Event, error) {
	items, err := list(raw, "events")
	if err != nil {
		return nil, err
	}
	out := make([]entities.Event, 0, len(items))
	for _, m := range items {
		out = append(out, decodeEvent(m))
	}
	return out, nil
}

func decodeEvent(m map[string]any) entities.Event {
	return entities.Event{
		ID:                  integer(m, "id", "event_id", "eventId"),
		Title:               str(m, "title", "name"),
		Description:         str(m, "description"),
		Category:            str(m, "category", "category_name", "categoryName"),
		Location:            str(m, "location"),
		EventDate:           str(m, "event_date", "eventDate", "date"),
		StartTime:           str(m, "start_time", "startTime"),
		EndTime:             str(m, "end_time", "endTime"),
		MaxParticipants:     int(integer(m, "max_participants", "maxParticipants", "capacity")),
		CurrentParticipants: int(integer(m, "current_participants", "currentParticipants", "participants_count")),
		OrganizerID:         str(m, "organizer_id", "organizerId", "created_by"),
		OrganizerName:       str(m, "organizer_name", "organizerName", "organizer"),
		Status:              str(m, "status"),
	}
}

func decodeCategories(raw any) ([]entities.Category, error) {
	items, err := list(raw, "categories")
	if err != nil {
		return nil, err
	}
	out := make([]entities.Category, 0, len(items))
	for _, m := range items {
		c := entities.Category{
			ID:     integer(m, "id", "category_id"),
			Name:   str(m, "name", "category_name", "categoryName"),
			Status: str(m, "status"),
		}
		// Listings without a status only carry usable categories.
		if c.Status == "" {
			c.Status = domain.StatusActive
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeApproval(raw any) (entities.ApprovalState, error) {
	m, err := object(raw)
	if err != nil {
		return entities.ApprovalState{}, err
	}
	return entities.ApprovalState{
		Status:         str(m, "status"),
		ApprovalStatus: str(m, "approval_status", "approvalStatus"),
	}, nil
}

// decodeEligibility maps any of the known answer shapes onto Eligibility.
// Absent or unreadable fields take the safe default.
func decodeEligibility(raw any) (entities.Eligibility, error) {
	raw = unwrap(raw)
	if b, ok := raw.(bool); ok {
		return entities.Eligibility{CanReview: b}, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return entities.DefaultEligibility(), fmt.Errorf("%w: eligibility is %T", domain.ErrMalformedResponse, raw)
	}

	rec := entities.Eligibility{
		CanReview:   flag(m, aliasCanReview...),
		HasReviewed: flag(m, aliasHasReviewed...),
	}
	if v, ok := pick(m, aliasRating...); ok {
		if n, err := cast.ToIntE(v); err == nil && n >= 0 && n <= 5 {
			rec.ExistingRating = &n
		}
	}
	if v, ok := pick(m, aliasReviewText...); ok {
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) != "" {
			rec.ExistingReview = &s
		}
	}
	if rec.HasReviewed {
		rec.CanReview = false
	}
	return rec, nil
}

func decodeReviews(raw any, eventID int64, loc *time.Location) ([]entities.Review, error) {
	items, err := list(raw, "reviews")
	if err != nil {
		return nil, err
	}
	out := make([]entities.Review, 0, len(items))
	for _, m := range items {
		r := entities.Review{
			EventID:      eventID,
			ReviewerName: str(m, "reviewer_name", "reviewerName", "user_name", "name"),
			Rating:       int(integer(m, "rating")),
			Text:         str(m, "review", "review_text", "text", "comment"),
		}
		if id := integer(m, "event_id", "eventId"); id != 0 {
			r.EventID = id
		}
		if ts := str(m, "created_at", "createdAt"); ts != "" {
			if t, err := eventtime.ParseInstant(ts, loc); err == nil {
				r.CreatedAt = t
			}
		}
		out = append(out, r)
	}
	return out, nil
}
