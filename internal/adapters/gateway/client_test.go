package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"share2care/internal/domain"
	"share2care/internal/domain/entities"
)

type staticToken string

func (s staticToken) Token(context.Context) string { return string(s) }

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", time.Second, staticToken(token), time.UTC, zerolog.Nop())
}

func TestListEvents_EnvelopesAndLooseTypes(t *testing.T) {
	bodies := []string{
		`[{"id":1,"title":"Beach cleanup","event_date":"2025-09-01","max_participants":20,"current_participants":"5","status":"active"}]`,
		`{"data":[{"id":"1","title":"Beach cleanup","eventDate":"2025-09-01","maxParticipants":"20","currentParticipants":5,"status":"active"}]}`,
		`{"events":[{"id":1,"title":"Beach cleanup","date":"2025-09-01","capacity":20,"participants_count":5,"status":"active"}]}`,
		`{"data":{"events":[{"id":1.0,"title":"Beach cleanup","event_date":"2025-09-01","max_participants":20,"current_participants":5,"status":"active"}]}}`,
	}
	for _, body := range bodies {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/events", r.URL.Path)
			_, _ = io.WriteString(w, body)
		}, "")

		events, err := c.ListEvents(context.Background())
		require.NoError(t, err, body)
		require.Len(t, events, 1, body)
		assert.Equal(t, int64(1), events[0].ID)
		assert.Equal(t, "Beach cleanup", events[0].Title)
		assert.Equal(t, "2025-09-01", events[0].EventDate)
		assert.Equal(t, 20, events[0].MaxParticipants)
		assert.Equal(t, 5, events[0].CurrentParticipants)
	}
}

func TestRequestHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err)
		_, _ = io.WriteString(w, `[]`)
	}, "tok-123")

	categories, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusNotFound, domain.ErrEventNotFound},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusInternalServerError, domain.ErrGatewayUnavailable},
		{http.StatusBadRequest, domain.ErrGatewayUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"message":"nope"}`)
			}, "")
			err := c.JoinEvent(context.Background(), 7, "u1")
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestMalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data": "oops"`)
	}, "")
	_, err := c.ListEvents(context.Background())
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data": "oops"}`)
	}, "")
	_, err = c.ListEvents(context.Background())
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestCanUserReviewEvent_Aliases(t *testing.T) {
	four := 4
	text := "Lovely"
	tests := []struct {
		name string
		body string
		want entities.Eligibility
	}{
		{"snake case", `{"can_review":true,"has_reviewed":false}`, entities.Eligibility{CanReview: true}},
		{"camel case in envelope", `{"data":{"canReview":"true","hasReviewed":0}}`, entities.Eligibility{CanReview: true}},
		{"allowed", `{"allowed":1}`, entities.Eligibility{CanReview: true}},
		{"can_rate", `{"can_rate":"1"}`, entities.Eligibility{CanReview: true}},
		{"already reviewed", `{"allowed":true,"already_reviewed":true,"rating":"4","review":"Lovely"}`,
			entities.Eligibility{HasReviewed: true, ExistingRating: &four, ExistingReview: &text}},
		{"camel existing", `{"reviewed":"true","existingRating":4,"existingReview":"Lovely"}`,
			entities.Eligibility{HasReviewed: true, ExistingRating: &four, ExistingReview: &text}},
		{"bare boolean", `true`, entities.Eligibility{CanReview: true}},
		{"empty object", `{}`, entities.Eligibility{}},
		{"out of range rating", `{"has_reviewed":true,"rating":9}`, entities.Eligibility{HasReviewed: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/events/12/can-review", r.URL.Path)
				assert.Equal(t, "u1", r.URL.Query().Get("user_id"))
				_, _ = io.WriteString(w, tt.body)
			}, "")
			got, err := c.CanUserReviewEvent(context.Background(), 12, "u1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanUserReviewEvent_ErrorReturnsDefault(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, "")
	got, err := c.CanUserReviewEvent(context.Background(), 12, "u1")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, entities.DefaultEligibility(), got)
}

func TestSubmitEventReview_Body(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/events/3/reviews", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"user_id": "u1", "rating": float64(5), "review": "Great"}, body)
		w.WriteHeader(http.StatusCreated)
	}, "")

	err := c.SubmitEventReview(context.Background(), entities.ReviewSubmission{EventID: 3, UserID: "u1", Rating: 5, Text: "Great"})
	assert.NoError(t, err)
}

func TestCreateEvent_ForcesPending(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pending", body["status"])
		assert.Equal(t, "u1", body["organizer_id"])
		assert.Equal(t, "Lyon", body["location"])
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"id":44}}`)
	}, "")

	err := c.CreateEvent(context.Background(), entities.NewEvent{
		EventSubmission: entities.EventSubmission{Title: "Soup", Location: "Lyon"},
		OrganizerID:     "u1",
		Status:          "active",
	})
	assert.NoError(t, err)
}

func TestGetEventReviews(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"reviews":[{"user_name":"Ana","rating":"5","review_text":"Great","created_at":"2025-08-02T10:00:00Z"}]}`)
	}, "")

	reviews, err := c.GetEventReviews(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, int64(3), reviews[0].EventID)
	assert.Equal(t, "Ana", reviews[0].ReviewerName)
	assert.Equal(t, 5, reviews[0].Rating)
	assert.Equal(t, "Great", reviews[0].Text)
	assert.True(t, reviews[0].CreatedAt.Equal(time.Date(2025, 8, 2, 10, 0, 0, 0, time.UTC)))
}

func TestApprovalStatusAndCategories(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/u%201/approval-status", "/users/u 1/approval-status":
			_, _ = io.WriteString(w, `{"data":{"status":"active","approvalStatus":"approved"}}`)
		case "/categories":
			_, _ = io.WriteString(w, `{"categories":[{"id":"2","category_name":"Food"},{"id":3,"name":"Old","status":"inactive"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, "")

	state, err := c.GetUserApprovalStatus(context.Background(), "u 1")
	require.NoError(t, err)
	assert.Equal(t, entities.ApprovalState{Status: "active", ApprovalStatus: "approved"}, state)

	categories, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []entities.Category{
		{ID: 2, Name: "Food", Status: domain.StatusActive},
		{ID: 3, Name: "Old", Status: "inactive"},
	}, categories)
}
