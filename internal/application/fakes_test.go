package application

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"share2care/internal/domain"
	"share2care/internal/domain/entities"
	"share2care/internal/ports/output"
	"share2care/pkg/bus"
	"share2care/pkg/tz"
)

// fakeGateway answers with its function fields; nil fields return zero values.
type fakeGateway struct {
	mu    sync.Mutex
	calls map[string]int

	listEvents     func(ctx context.Context) ([]entities.Event, error)
	listCategories func(ctx context.Context) ([]entities.Category, error)
	joinedEvents   func(ctx context.Context, userID string) ([]entities.Event, error)
	joinEvent      func(ctx context.Context, eventID int64, userID string) error
	createEvent    func(ctx context.Context, e entities.NewEvent) error
	canReview      func(ctx context.Context, eventID int64, userID string) (entities.Eligibility, error)
	reviews        func(ctx context.Context, eventID int64) ([]entities.Review, error)
	submitReview   func(ctx context.Context, r entities.ReviewSubmission) error
	approval       func(ctx context.Context, userID string) (entities.ApprovalState, error)
}

func (f *fakeGateway) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeGateway) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeGateway) ListEvents(ctx context.Context) ([]entities.Event, error) {
	f.count("ListEvents")
	if f.listEvents == nil {
		return nil, nil
	}
	return f.listEvents(ctx)
}

func (f *fakeGateway) ListCategories(ctx context.Context) ([]entities.Category, error) {
	f.count("ListCategories")
	if f.listCategories == nil {
		return nil, nil
	}
	return f.listCategories(ctx)
}

func (f *fakeGateway) GetUserJoinedEvents(ctx context.Context, userID string) ([]entities.Event, error) {
	f.count("GetUserJoinedEvents")
	if f.joinedEvents == nil {
		return nil, nil
	}
	return f.joinedEvents(ctx, userID)
}

func (f *fakeGateway) JoinEvent(ctx context.Context, eventID int64, userID string) error {
	f.count("JoinEvent")
	if f.joinEvent == nil {
		return nil
	}
	return f.joinEvent(ctx, eventID, userID)
}

func (f *fakeGateway) CreateEvent(ctx context.Context, e entities.NewEvent) error {
	f.count("CreateEvent")
	if f.createEvent == nil {
		return nil
	}
	return f.createEvent(ctx, e)
}

func (f *fakeGateway) CanUserReviewEvent(ctx context.Context, eventID int64, userID string) (entities.Eligibility, error) {
	f.count("CanUserReviewEvent")
	if f.canReview == nil {
		return entities.Eligibility{}, nil
	}
	return f.canReview(ctx, eventID, userID)
}

func (f *fakeGateway) GetEventReviews(ctx context.Context, eventID int64) ([]entities.Review, error) {
	f.count("GetEventReviews")
	if f.reviews == nil {
		return nil, nil
	}
	return f.reviews(ctx, eventID)
}

func (f *fakeGateway) SubmitEventReview(ctx context.Context, r entities.ReviewSubmission) error {
	f.count("SubmitEventReview")
	if f.submitReview == nil {
		return nil
	}
	return f.submitReview(ctx, r)
}

func (f *fakeGateway) GetUserApprovalStatus(ctx context.Context, userID string) (entities.ApprovalState, error) {
	f.count("GetUserApprovalStatus")
	if f.approval == nil {
		return entities.ApprovalState{}, nil
	}
	return f.approval(ctx, userID)
}

// mapStore is an in-memory session store.
type mapStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string]string)}
}

func (s *mapStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", output.ErrKeyNotFound
	}
	return v, nil
}

func (s *mapStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *mapStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []output.Notice
}

func (n *recordingNotifier) Notify(_ context.Context, notice output.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func (n *recordingNotifier) Notices() []output.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]output.Notice(nil), n.notices...)
}

// keyTranslator echoes the key, so tests can assert on which message was used.
type keyTranslator struct{}

func (keyTranslator) T(_ string, key string, _ map[string]any) string { return key }

type countingMetrics struct {
	output.NopMetrics
	mu      sync.Mutex
	dropped map[string]int
	queries map[string]int
}

func (m *countingMetrics) TickDropped(task string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dropped == nil {
		m.dropped = make(map[string]int)
	}
	m.dropped[task]++
}

func (m *countingMetrics) EligibilityQuery(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queries == nil {
		m.queries = make(map[string]int)
	}
	m.queries[result]++
}

func (m *countingMetrics) Dropped(task string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped[task]
}

func (m *countingMetrics) Queries(result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[result]
}

var (
	paris   = tz.MustLoad("Europe/Paris")
	nopLog  = zerolog.Nop()
	fixedAt = time.Date(2025, 8, 15, 12, 0, 0, 0, paris)
)


func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func approved(id int64, date, start, end string) entities.Event {
	return entities.Event{
		ID:              id,
		Title:           "Event",
		EventDate:       date,
		StartTime:       start,
		EndTime:         end,
		MaxParticipants: 10,
		Status:          domain.StatusActive,
	}
}

type harness struct {
	gateway    *fakeGateway
	store      *mapStore
	notifier   *recordingNotifier
	metrics    *countingMetrics
	changes    *bus.Bus[SessionChanged]
	session    *SessionService
	reconciler *Reconciler
	board      *Board
}

func newHarness(gw *fakeGateway) *harness {
	h := &harness{
		gateway:  gw,
		store:    newMapStore(),
		notifier: &recordingNotifier{},
		metrics:  &countingMetrics{},
		changes:  bus.New[SessionChanged]("session", 8, nopLog),
	}
	h.session = NewSessionService(h.store, gw, h.notifier, keyTranslator{}, h.changes, "en", nopLog)
	h.session.now = fixedClock(fixedAt)
	h.reconciler = NewReconciler(gw, ReconcilerConfig{Throttle: time.Millisecond, CooldownInitial: time.Millisecond}, h.metrics, nopLog)
	h.board = NewBoard(
		BoardConfig{PageSize: 10, PollInterval: time.Hour, Locale: "en"},
		gw, h.reconciler, NewClassifier(paris, nopLog), h.session,
		h.notifier, keyTranslator{}, h.metrics, nopLog,
	)
	h.board.now = fixedClock(fixedAt)
	return h
}

func (h *harness) signIn(ctx context.Context, id, approval string) {
	user := entities.User{ID: id, Name: "Ana", City: "Lyon"}
	if err := h.session.SignIn(ctx, user, "", approval); err != nil {
		panic(err)
	}
	h.board.mu.Lock()
	h.board.activeUser = id
	h.board.mu.Unlock()
}
