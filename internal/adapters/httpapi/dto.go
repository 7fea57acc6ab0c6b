package httpapi

import (
	"time"

	"share2care/internal/application"
	"share2care/internal/domain/entities"
	"share2care/internal/ports/output"
)

type FilterRequest struct {
	Search   string `json:"search"`
	Category string `json:"category"`
	Location string `json:"location"`
	SortBy   string `json:"sort_by"`
}

type PageRequest struct {
	Page int `json:"page"`
}

type ReviewRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

type SignInRequest struct {
	User           entities.User `json:"user"`
	Token          string        `json:"token"`
	ApprovalStatus string        `json:"approval_status"`
}

type ApprovalRequest struct {
	EventID     int64  `json:"event_id"`
	OrganizerID string `json:"organizer_id"`
	Title       string `json:"title"`
}

type EligibilityResponse struct {
	Known          bool    `json:"known"`
	CanReview      bool    `json:"can_review"`
	HasReviewed    bool    `json:"has_reviewed"`
	ExistingRating *int    `json:"existing_rating"`
	ExistingReview *string `json:"existing_review"`
}

type EventResponse struct {
	ID                  int64                `json:"id"`
	Title               string               `json:"title"`
	Description         string               `json:"description"`
	Category            string               `json:"category"`
	Location            string               `json:"location"`
	EventDate           string               `json:"event_date"`
	StartTime           string               `json:"start_time"`
	EndTime             string               `json:"end_time"`
	MaxParticipants     int                  `json:"max_participants"`
	CurrentParticipants int                  `json:"current_participants"`
	Available           int                  `json:"available"`
	OrganizerID         string               `json:"organizer_id"`
	OrganizerName       string               `json:"organizer_name"`
	Status              string               `json:"status"`
	Joined              bool                 `json:"joined"`
	Started             bool                 `json:"started"`
	Full                bool                 `json:"full"`
	Eligibility         *EligibilityResponse `json:"eligibility,omitempty"`
}

type TableResponse struct {
	Items      []EventResponse `json:"items"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	Total      int             `json:"total"`
}

type SectionResponse struct {
	Loading   bool       `json:"loading"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type BoardResponse struct {
	Current    TableResponse              `json:"current"`
	Past       TableResponse              `json:"past"`
	Categories []string                   `json:"categories"`
	Locations  []string                   `json:"locations"`
	Query      FilterRequest              `json:"query"`
	Sections   map[string]SectionResponse `json:"sections"`
	UserID     string                     `json:"user_id,omitempty"`
}

type ReviewResponse struct {
	EventID      int64      `json:"event_id"`
	ReviewerName string     `json:"reviewer_name"`
	Rating       int        `json:"rating"`
	Review       string     `json:"review"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

type SessionResponse struct {
	LoggedIn       bool           `json:"logged_in"`
	User           *entities.User `json:"user,omitempty"`
	ApprovalStatus string         `json:"approval_status,omitempty"`
}

type NoticeResponse struct {
	Kind    string `json:"kind"`
	EventID int64  `json:"event_id,omitempty"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

type ErrorResponse struct {
	Message  string            `json:"message"`
	Code     string            `json:"code,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

func (f FilterRequest) toQuery() application.Query {
	return application.Query{Search: f.Search, Category: f.Category, Location: f.Location, SortBy: f.SortBy}
}

func toEligibilityResponse(rec entities.Eligibility, known bool) EligibilityResponse {
	return EligibilityResponse{
		Known:          known,
		CanReview:      rec.CanReview,
		HasReviewed:    rec.HasReviewed,
		ExistingRating: rec.ExistingRating,
		ExistingReview: rec.ExistingReview,
	}
}

func toEventResponse(v application.EventView) EventResponse {
	e := v.Event
	out := EventResponse{
		ID:                  e.ID,
		Title:               e.Title,
		Description:         e.Description,
		Category:            e.Category,
		Location:            e.Location,
		EventDate:           e.EventDate,
		StartTime:           e.StartTime,
		EndTime:             e.EndTime,
		MaxParticipants:     e.MaxParticipants,
		CurrentParticipants: e.CurrentParticipants,
		Available:           v.Available,
		OrganizerID:         e.OrganizerID,
		OrganizerName:       e.OrganizerName,
		Status:              e.Status,
		Joined:              v.Joined,
		Started:             v.Started,
		Full:                v.Full,
	}
	if v.Eligibility != nil {
		rec := toEligibilityResponse(*v.Eligibility, true)
		out.Eligibility = &rec
	}
	return out
}

func toTableResponse(p application.TablePage) TableResponse {
	items := make([]EventResponse, 0, len(p.Items))
	for _, v := range p.Items {
		items = append(items, toEventResponse(v))
	}
	return TableResponse{Items: items, Page: p.Page, TotalPages: p.TotalPages, Total: p.Total}
}

// toBoardResponse renders the view; errorText localizes section errors.
func toBoardResponse(v application.BoardView, errorText func(error) string) BoardResponse {
	sections := make(map[string]SectionResponse, len(v.Sections))
	for name, st := range v.Sections {
		s := SectionResponse{Loading: st.Loading}
		if st.Error != nil {
			s.Error = errorText(st.Error)
		}
		if !st.UpdatedAt.IsZero() {
			at := st.UpdatedAt
			s.UpdatedAt = &at
		}
		sections[name] = s
	}
	return BoardResponse{
		Current:    toTableResponse(v.Current),
		Past:       toTableResponse(v.Past),
		Categories: nonNil(v.Categories),
		Locations:  nonNil(v.Locations),
		Query: FilterRequest{
			Search:   v.Query.Search,
			Category: v.Query.Category,
			Location: v.Query.Location,
			SortBy:   v.Query.SortBy,
		},
		Sections: sections,
		UserID:   v.UserID,
	}
}

func toReviewResponses(reviews []entities.Review) []ReviewResponse {
	out := make([]ReviewResponse, 0, len(reviews))
	for _, r := range reviews {
		rr := ReviewResponse{EventID: r.EventID, ReviewerName: r.ReviewerName, Rating: r.Rating, Review: r.Text}
		if !r.CreatedAt.IsZero() {
			at := r.CreatedAt
			rr.CreatedAt = &at
		}
		out = append(out, rr)
	}
	return out
}

func toSessionResponse(s *entities.Session) SessionResponse {
	if s == nil || s.UserID() == "" {
		return SessionResponse{}
	}
	return SessionResponse{LoggedIn: true, User: s.User, ApprovalStatus: s.ApprovalStatus}
}

func toNoticeResponses(notices []output.Notice) []NoticeResponse {
	out := make([]NoticeResponse, 0, len(notices))
	for _, n := range notices {
		out = append(out, NoticeResponse{Kind: n.Kind, EventID: n.EventID, Title: n.Title, Body: n.Body})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
