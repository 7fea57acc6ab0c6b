package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"share2care/internal/application"
	"share2care/internal/domain"
	"share2care/internal/domain/entities"
	"share2care/internal/ports/output"
)

type mockBoard struct {
	view        application.BoardView
	query       application.Query
	changePage  func(tab string, page int) error
	refreshNow  func(ctx context.Context) error
	join        func(ctx context.Context, eventID int64) error
	review      func(ctx context.Context, eventID int64, rating int, text string) error
	reviews     func(ctx context.Context, eventID int64) ([]entities.Review, error)
	eligibility map[int64]entities.Eligibility
}

func (m *mockBoard) View() application.BoardView      { return m.view }
func (m *mockBoard) ChangeFilter(q application.Query) { m.query = q }

func (m *mockBoard) ChangePage(tab string, page int) error {
	if m.changePage == nil {
		return nil
	}
	return m.changePage(tab, page)
}

func (m *mockBoard) RefreshNow(ctx context.Context) error {
	if m.refreshNow == nil {
		return nil
	}
	return m.refreshNow(ctx)
}

func (m *mockBoard) Join(ctx context.Context, eventID int64) error {
	if m.join == nil {
		return nil
	}
	return m.join(ctx, eventID)
}

func (m *mockBoard) Review(ctx context.Context, eventID int64, rating int, text string) error {
	if m.review == nil {
		return nil
	}
	return m.review(ctx, eventID, rating, text)
}

func (m *mockBoard) Reviews(ctx context.Context, eventID int64) ([]entities.Review, error) {
	if m.reviews == nil {
		return nil, nil
	}
	return m.reviews(ctx, eventID)
}

func (m *mockBoard) Eligibility(eventID int64) (entities.Eligibility, bool) {
	rec, ok := m.eligibility[eventID]
	return rec, ok
}

type mockSubmissions struct {
	submit func(ctx context.Context, form entities.EventSubmission) error
}

func (m *mockSubmissions) Submit(ctx context.Context, form entities.EventSubmission) error {
	return m.submit(ctx, form)
}

type mockSession struct {
	current *entities.Session
	signIn  func(user entities.User, token, approval string) error
	signOut int
}

func (m *mockSession) Current(context.Context) (*entities.Session, error) {
	if m.current == nil {
		return &entities.Session{}, nil
	}
	return m.current, nil
}

func (m *mockSession) SignIn(_ context.Context, user entities.User, token, approval string) error {
	if m.signIn != nil {
		if err := m.signIn(user, token, approval); err != nil {
			return err
		}
	}
	m.current = &entities.Session{LoggedIn: true, User: &user, Token: token, ApprovalStatus: approval}
	return nil
}

func (m *mockSession) SignOut(context.Context) error {
	m.signOut++
	m.current = nil
	return nil
}

type mockSignals struct {
	published []application.EventApproved
}

func (m *mockSignals) Publish(sig application.EventApproved) int {
	m.published = append(m.published, sig)
	return 2
}

type mockInbox struct {
	pending map[string][]output.Notice
}

func (m *mockInbox) TakePending(userID string) []output.Notice {
	out := m.pending[userID]
	delete(m.pending, userID)
	return out
}

// keyTranslator echoes the key with the locale so tests can see both.
type keyTranslator struct{}

func (keyTranslator) T(locale, key string, _ map[string]any) string {
	if locale == "" {
		return key
	}
	return locale + ":" + key
}

type fixture struct {
	board   *mockBoard
	submit  *mockSubmissions
	session *mockSession
	signals *mockSignals
	inbox   *mockInbox
	e       *echo.Echo
}

func newFixture() *fixture {
	f := &fixture{
		board:   &mockBoard{eligibility: map[int64]entities.Eligibility{}},
		submit:  &mockSubmissions{submit: func(context.Context, entities.EventSubmission) error { return nil }},
		session: &mockSession{},
		signals: &mockSignals{},
		inbox:   &mockInbox{pending: map[string][]output.Notice{}},
	}
	h := NewHandler(f.board, f.submit, f.session, f.signals, f.inbox, keyTranslator{}, zerolog.Nop())
	f.e = NewServer(h, keyTranslator{}, nil, zerolog.Nop())
	return f
}

func (f *fixture) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestGetBoard_RendersSectionsAndEligibility(t *testing.T) {
	f := newFixture()
	rating := 4
	f.board.view = application.BoardView{
		Past: application.TablePage{
			Items: []application.EventView{{
				Event:       entities.Event{ID: 3, Title: "Soup kitchen"},
				Joined:      true,
				Eligibility: &entities.Eligibility{HasReviewed: true, ExistingRating: &rating},
			}},
			Page: 1, TotalPages: 1, Total: 1,
		},
		Sections: map[string]application.SectionState{
			"events":     {},
			"categories": {Error: domain.ErrGatewayUnavailable},
		},
		UserID: "u1",
	}

	rec := f.do(http.MethodGet, "/api/board", "", "Accept-Language", "fr")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[BoardResponse](t, rec)
	assert.Empty(t, body.Current.Items)
	assert.NotNil(t, body.Categories)
	require.Len(t, body.Past.Items, 1)
	require.NotNil(t, body.Past.Items[0].Eligibility)
	assert.True(t, body.Past.Items[0].Eligibility.HasReviewed)
	assert.Equal(t, 4, *body.Past.Items[0].Eligibility.ExistingRating)
	assert.Equal(t, "fr:error.gateway_unavailable", body.Sections["categories"].Error)
	assert.Empty(t, body.Sections["events"].Error)
	assert.Equal(t, "u1", body.UserID)
}

func TestChangeFilter(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPut, "/api/board/filter", `{"search":"beach","location":"Lyon","sort_by":"date"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, application.Query{Search: "beach", Location: "Lyon", SortBy: "date"}, f.board.query)
}

func TestChangePage_InvalidTab(t *testing.T) {
	f := newFixture()
	f.board.changePage = func(tab string, page int) error {
		assert.Equal(t, "archive", tab)
		assert.Equal(t, 2, page)
		return domain.ErrInvalidTab
	}
	rec := f.do(http.MethodPut, "/api/board/pages/archive", `{"page":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_tab", decode[ErrorResponse](t, rec).Code)
}

func TestRefresh_InProgressIsAccepted(t *testing.T) {
	f := newFixture()
	f.board.refreshNow = func(context.Context) error { return domain.ErrRefreshInProgress }
	rec := f.do(http.MethodPost, "/api/board/refresh", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	f.board.refreshNow = func(context.Context) error { return domain.ErrGatewayUnavailable }
	rec = f.do(http.MethodPost, "/api/board/refresh", "")
	assert.Equal(t, http.StatusOK, rec.Code, "section errors are reported inside the board")
}

func TestSubmitEvent(t *testing.T) {
	f := newFixture()
	var got entities.EventSubmission
	f.submit.submit = func(_ context.Context, form entities.EventSubmission) error {
		got = form
		return nil
	}
	rec := f.do(http.MethodPost, "/api/events", `{"title":"Beach cleanup","max_participants":12,"event_date":"2025-09-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Beach cleanup", got.Title)
	assert.Equal(t, 12, got.MaxParticipants)
	assert.Contains(t, rec.Body.String(), domain.StatusPending)
}

func TestSubmitEvent_ValidationFields(t *testing.T) {
	f := newFixture()
	f.submit.submit = func(context.Context, entities.EventSubmission) error {
		return &domain.ValidationError{Fields: map[string]string{"title": "required"}}
	}
	rec := f.do(http.MethodPost, "/api/events", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "validation", body.Code)
	assert.Equal(t, map[string]string{"title": "required"}, body.Fields)
}

func TestJoin_ErrorStatuses(t *testing.T) {
	tests := []struct {
		err      error
		status   int
		redirect string
	}{
		{domain.ErrEventFull, http.StatusConflict, ""},
		{domain.ErrEventStarted, http.StatusConflict, ""},
		{domain.ErrAccountPending, http.StatusForbidden, ""},
		{domain.ErrNotLoggedIn, http.StatusUnauthorized, ""},
		{domain.ErrSessionExpired, http.StatusUnauthorized, "/login"},
		{domain.ErrRateLimited, http.StatusTooManyRequests, ""},
	}
	for _, tt := range tests {
		t.Run(domain.Code(tt.err), func(t *testing.T) {
			f := newFixture()
			f.board.join = func(_ context.Context, id int64) error {
				assert.Equal(t, int64(9), id)
				return tt.err
			}
			rec := f.do(http.MethodPost, "/api/events/9/join", "")
			assert.Equal(t, tt.status, rec.Code)
			body := decode[ErrorResponse](t, rec)
			assert.Equal(t, "error."+domain.Code(tt.err), body.Message)
			assert.Equal(t, tt.redirect, body.Redirect)
		})
	}
}

func TestJoin_BadID(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/events/abc/join", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error.bad_request", decode[ErrorResponse](t, rec).Message)
}

func TestUnknownErrorIsInternal(t *testing.T) {
	f := newFixture()
	f.board.join = func(context.Context, int64) error { return assert.AnError }
	rec := f.do(http.MethodPost, "/api/events/1/join", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error.internal", decode[ErrorResponse](t, rec).Message)
}

func TestSubmitReview_ReturnsEligibility(t *testing.T) {
	f := newFixture()
	f.board.review = func(_ context.Context, id int64, rating int, text string) error {
		assert.Equal(t, int64(5), id)
		assert.Equal(t, 4, rating)
		assert.Equal(t, "Lovely", text)
		r, txt := rating, text
		f.board.eligibility[id] = entities.Eligibility{HasReviewed: true, ExistingRating: &r, ExistingReview: &txt}
		return nil
	}
	rec := f.do(http.MethodPost, "/api/events/5/reviews", `{"rating":4,"review":"Lovely"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode[EligibilityResponse](t, rec)
	assert.True(t, body.Known)
	assert.True(t, body.HasReviewed)
	assert.False(t, body.CanReview)
}

func TestGetEligibility_Unknown(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/api/events/5/eligibility", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, EligibilityResponse{}, decode[EligibilityResponse](t, rec))
}

func TestListReviews(t *testing.T) {
	f := newFixture()
	f.board.reviews = func(_ context.Context, id int64) ([]entities.Review, error) {
		return []entities.Review{{EventID: id, ReviewerName: "Ana", Rating: 5, Text: "Great"}}, nil
	}
	rec := f.do(http.MethodGet, "/api/events/8/reviews", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[[]ReviewResponse](t, rec)
	require.Len(t, body, 1)
	assert.Equal(t, ReviewResponse{EventID: 8, ReviewerName: "Ana", Rating: 5, Review: "Great"}, body[0])
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[SessionResponse](t, rec).LoggedIn)

	rec = f.do(http.MethodPost, "/api/session", `{"user":{"id":"u1","name":"Ana"},"token":"t","approval_status":"approved"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode[SessionResponse](t, rec)
	assert.True(t, body.LoggedIn)
	assert.Equal(t, "Ana", body.User.Name)
	assert.Equal(t, domain.ApprovalApproved, body.ApprovalStatus)
	assert.NotContains(t, rec.Body.String(), `"token"`)

	rec = f.do(http.MethodDelete, "/api/session", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, f.session.signOut)
}

func TestPublishApproval(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/approvals", `{"event_id":4,"organizer_id":"u1","title":"Soup"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []application.EventApproved{{EventID: 4, OrganizerID: "u1", Title: "Soup"}}, f.signals.published)

	rec = f.do(http.MethodPost, "/api/approvals", `{"title":"Soup"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTakeNotices(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/api/notices", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.session.current = &entities.Session{LoggedIn: true, User: &entities.User{ID: "u1"}}
	f.inbox.pending["u1"] = []output.Notice{{Kind: output.NoticeEventApproved, EventID: 4, Title: "t", Body: "b"}}

	rec = f.do(http.MethodGet, "/api/notices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]NoticeResponse](t, rec), 1)

	rec = f.do(http.MethodGet, "/api/notices", "")
	assert.Empty(t, decode[[]NoticeResponse](t, rec))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "share2care_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h := NewHandler(&mockBoard{}, &mockSubmissions{}, &mockSession{}, &mockSignals{}, &mockInbox{}, keyTranslator{}, zerolog.Nop())
	e := NewServer(h, keyTranslator{}, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), zerolog.Nop())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "share2care_test_total 1")
}
