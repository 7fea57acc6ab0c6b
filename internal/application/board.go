package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"share2care/internal/domain"
	"share2care/internal/domain/entities"
	"share2care/internal/ports/output"
)

// Board sections with their own loading and error state.
const (
	SectionEvents      = "events"
	SectionCategories  = "categories"
	SectionJoined      = "joined"
	SectionEligibility = "eligibility"
	SectionReviews     = "reviews"
)

// EventApproved is the signal sent by an admin actor when an event goes live.
type EventApproved struct {
	EventID     int64
	OrganizerID string
	Title       string
}

// SectionState is what the presentation layer shows for one async section.
type SectionState struct {
	Loading   bool
	Error     error
	UpdatedAt time.Time
}

// EventView is one board row.
type EventView struct {
	Event       entities.Event
	Joined      bool
	Started     bool
	Full        bool
	Available   int
	Eligibility *entities.Eligibility
}

// TablePage is one page of a board table.
type TablePage struct {
	Items      []EventView
	Page       int
	TotalPages int
	Total      int
}

// BoardView is everything the presentation layer renders.
type BoardView struct {
	Current    TablePage
	Past       TablePage
	Categories []string
	Locations  []string
	Query      Query
	Sections   map[string]SectionState
	UserID     string
}

// BoardConfig tunes the board.
type BoardConfig struct {
	PageSize     int
	PollInterval time.Duration
	Locale       string
}

// Board is the events page engine: it fetches, classifies, filters and pages
// events, keeps review eligibility in sync and drives periodic refreshes.
type Board struct {
	gateway    output.BoardGateway
	reconciler *Reconciler
	classifier *Classifier
	session    *SessionService
	scheduler  *RefreshScheduler
	notifier   output.Notifier
	translator output.Translator
	metrics    output.Metrics
	log        zerolog.Logger
	pageSize   int
	locale     string
	now        func() time.Time

	mu         sync.RWMutex
	activeUser string
	events     []entities.Event
	categories []entities.Category
	joined     map[int64]struct{}
	query      Query
	pages      PageCursors
	sections   map[string]SectionState
	celebrated map[int64]struct{}
}

func NewBoard(
	cfg BoardConfig,
	gateway output.BoardGateway,
	reconciler *Reconciler,
	classifier *Classifier,
	session *SessionService,
	notifier output.Notifier,
	translator output.Translator,
	metrics output.Metrics,
	logger zerolog.Logger,
) *Board {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if metrics == nil {
		metrics = output.NopMetrics{}
	}
	b := &Board{
		gateway:    gateway,
		reconciler: reconciler,
		classifier: classifier,
		session:    session,
		notifier:   notifier,
		translator: translator,
		metrics:    metrics,
		log:        logger.With().Str("component", "board").Logger(),
		pageSize:   cfg.PageSize,
		locale:     cfg.Locale,
		now:        time.Now,
		joined:     make(map[int64]struct{}),
		query:      DefaultQuery(),
		pages:      newPageCursors(),
		sections:   make(map[string]SectionState),
		celebrated: make(map[int64]struct{}),
	}
	b.scheduler = NewRefreshScheduler(cfg.PollInterval, b.Refresh, session.CheckApproval, metrics, logger)
	return b
}

// Scheduler exposes the polling state machine.
func (b *Board) Scheduler() *RefreshScheduler {
	return b.scheduler
}

// Bootstrap adopts the stored session. A signed-in user starts polling;
// otherwise the public listing is loaded once.
func (b *Board) Bootstrap(ctx context.Context) error {
	sess, err := b.session.Current(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if userID := sess.UserID(); userID != "" {
		b.HandleSessionChanged(ctx, SessionChanged{LoggedIn: true, UserID: userID})
		return nil
	}
	_, err = b.scheduler.RefreshNow(ctx)
	return err
}

// Close stops polling.
func (b *Board) Close() {
	b.scheduler.Stop()
}

// HandleSessionChanged follows sign-in and sign-out: polling runs only while
// a user is signed in, and per-user state is dropped on sign-out.
func (b *Board) HandleSessionChanged(ctx context.Context, change SessionChanged) {
	b.mu.Lock()
	previous := b.activeUser
	if change.LoggedIn {
		b.activeUser = change.UserID
	} else {
		b.activeUser = ""
	}
	if previous != b.activeUser {
		b.joined = make(map[int64]struct{})
		delete(b.sections, SectionJoined)
		delete(b.sections, SectionEligibility)
	}
	b.mu.Unlock()

	if !change.LoggedIn {
		b.scheduler.Stop()
		b.reconciler.Reset()
		return
	}
	b.scheduler.Start(ctx)
}

// HandleEventApproved refreshes the board and, when the approved event is
// organized by the signed-in user, celebrates it once.
func (b *Board) HandleEventApproved(ctx context.Context, sig EventApproved) {
	if err := b.RefreshNow(ctx); err != nil && !errors.Is(err, domain.ErrRefreshInProgress) {
		b.log.Warn().Err(err).Int64("event_id", sig.EventID).Msg("refresh after approval failed")
	}

	b.mu.Lock()
	userID := b.activeUser
	organizer, title := sig.OrganizerID, sig.Title
	if e, ok := b.findLocked(sig.EventID); ok {
		if organizer == "" {
			organizer = e.OrganizerID
		}
		if title == "" {
			title = e.Title
		}
	}
	if userID == "" || organizer != userID {
		b.mu.Unlock()
		return
	}
	if _, done := b.celebrated[sig.EventID]; done {
		b.mu.Unlock()
		return
	}
	b.celebrated[sig.EventID] = struct{}{}
	b.mu.Unlock()

	if b.notifier == nil {
		return
	}
	notice := output.Notice{
		Kind:    output.NoticeEventApproved,
		EventID: sig.EventID,
		UserID:  userID,
		Title:   b.translator.T(b.locale, "notice.event_approved.title", nil),
		Body:    b.translator.T(b.locale, "notice.event_approved.body", map[string]any{"Title": title}),
	}
	if err := b.notifier.Notify(ctx, notice); err != nil {
		b.log.Warn().Err(err).Int64("event_id", sig.EventID).Msg("approval notice not delivered")
	}
}

// RefreshNow refreshes unless a refresh is already in flight.
func (b *Board) RefreshNow(ctx context.Context) error {
	ran, err := b.scheduler.RefreshNow(ctx)
	if !ran {
		return domain.ErrRefreshInProgress
	}
	return err
}

// Refresh pulls events, categories and the user's joined events
// concurrently, then reconciles eligibility of past events. A failing
// section keeps its previous data and records its error.
func (b *Board) Refresh(ctx context.Context) error {
	started := b.now()
	userID := b.ActiveUser()

	var g errgroup.Group
	g.Go(func() error {
		b.begin(SectionEvents)
		events, err := b.gateway.ListEvents(ctx)
		b.mu.Lock()
		if err == nil {
			b.events = events
		}
		b.endLocked(SectionEvents, err)
		b.mu.Unlock()
		return wrapSection(SectionEvents, err)
	})
	g.Go(func() error {
		b.begin(SectionCategories)
		categories, err := b.gateway.ListCategories(ctx)
		b.mu.Lock()
		if err == nil {
			b.categories = categories
		}
		b.endLocked(SectionCategories, err)
		b.mu.Unlock()
		return wrapSection(SectionCategories, err)
	})
	if userID != "" {
		g.Go(func() error {
			b.begin(SectionJoined)
			joined, err := b.gateway.GetUserJoinedEvents(ctx, userID)
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.activeUser != userID {
				delete(b.sections, SectionJoined)
				return nil
			}
			if err == nil {
				b.joined = make(map[int64]struct{}, len(joined))
				for _, e := range joined {
					b.joined[e.ID] = struct{}{}
				}
			}
			b.endLocked(SectionJoined, err)
			return wrapSection(SectionJoined, err)
		})
	}
	err := g.Wait()

	if userID != "" {
		if rerr := b.reconcile(ctx, userID); rerr != nil && err == nil {
			err = rerr
		}
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	b.metrics.ObserveRefresh(result, b.now().Sub(started))
	return err
}

func (b *Board) reconcile(ctx context.Context, userID string) error {
	b.mu.RLock()
	events := b.events
	b.mu.RUnlock()

	_, past := b.classifier.Classify(events, b.now())
	pending := b.reconciler.Pending(past, userID)
	if len(pending) == 0 {
		return nil
	}

	b.begin(SectionEligibility)
	_, err := b.reconciler.Reconcile(ctx, pending, userID)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.activeUser != userID {
		delete(b.sections, SectionEligibility)
		b.log.Debug().Str("user_id", userID).Msg("eligibility results discarded, session changed")
		return nil
	}
	b.endLocked(SectionEligibility, err)
	return wrapSection(SectionEligibility, err)
}

// View classifies, filters, sorts and pages the fetched events.
func (b *Board) View() BoardView {
	b.mu.RLock()
	events := b.events
	categories := b.categories
	query := b.query
	pages := b.pages
	userID := b.activeUser
	joined := make(map[int64]struct{}, len(b.joined))
	for id := range b.joined {
		joined[id] = struct{}{}
	}
	sections := make(map[string]SectionState, len(b.sections))
	for name, st := range b.sections {
		sections[name] = st
	}
	b.mu.RUnlock()

	now := b.now()
	current, past := b.classifier.Classify(events, now)
	visible := make([]entities.Event, 0, len(current)+len(past))
	visible = append(append(visible, current...), past...)
	locations := DistinctLocations(visible)
	current = FilterAndSort(current, query, b.classifier.loc)
	past = FilterAndSort(past, query, b.classifier.loc)

	var eligibility map[int64]entities.Eligibility
	if userID != "" && b.reconciler.Owner() == userID {
		eligibility = b.reconciler.Snapshot()
	}

	return BoardView{
		Current:    b.table(current, pages.Current, now, joined, nil),
		Past:       b.table(past, pages.Past, now, joined, eligibility),
		Categories: ActiveCategoryNames(categories),
		Locations:  locations,
		Query:      query,
		Sections:   sections,
		UserID:     userID,
	}
}

func (b *Board) table(events []entities.Event, page int, now time.Time, joined map[int64]struct{}, eligibility map[int64]entities.Eligibility) TablePage {
	slice := Paginate(events, page, b.pageSize)
	items := make([]EventView, 0, len(slice))
	for _, e := range slice {
		_, isJoined := joined[e.ID]
		v := EventView{
			Event:     e,
			Joined:    isJoined,
			Started:   b.classifier.HasStarted(&e, now),
			Full:      e.IsFull(),
			Available: e.Available(),
		}
		if rec, ok := eligibility[e.ID]; ok {
			v.Eligibility = &rec
		}
		items = append(items, v)
	}
	return TablePage{
		Items:      items,
		Page:       page,
		TotalPages: TotalPages(len(events), b.pageSize),
		Total:      len(events),
	}
}

// ChangeFilter replaces the query and sends both tables back to page 1.
func (b *Board) ChangeFilter(q Query) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.query = q.Normalize()
	b.pages = newPageCursors()
}

// ChangePage moves one table's cursor. Pages below 1 are read as 1 and pages
// beyond what the fetched events can fill are read as the last one.
func (b *Board) ChangePage(tab string, page int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if last := TotalPages(len(b.events), b.pageSize); page > last {
		page = last
	}
	if page < 1 {
		page = 1
	}
	switch tab {
	case domain.TabCurrent:
		b.pages.Current = page
	case domain.TabPast:
		b.pages.Past = page
	default:
		return fmt.Errorf("%w: %q", domain.ErrInvalidTab, tab)
	}
	return nil
}

// Join asks the gateway to add the signed-in user to an upcoming event.
func (b *Board) Join(ctx context.Context, eventID int64) error {
	err := b.join(ctx, eventID)
	b.metrics.UserAction("join", actionResult(err))
	return err
}

func (b *Board) join(ctx context.Context, eventID int64) error {
	sess, err := b.signedIn(ctx)
	if err != nil {
		return err
	}
	if sess.ApprovalStatus != domain.ApprovalApproved {
		return domain.ErrAccountPending
	}

	b.mu.RLock()
	e, ok := b.findLocked(eventID)
	_, already := b.joined[eventID]
	b.mu.RUnlock()
	switch {
	case !ok || !e.IsApproved():
		return domain.ErrEventNotFound
	case already:
		return domain.ErrAlreadyJoined
	case b.classifier.HasStarted(&e, b.now()):
		return domain.ErrEventStarted
	case e.IsFull():
		return domain.ErrEventFull
	}

	userID := sess.UserID()
	if err := b.gateway.JoinEvent(ctx, eventID, userID); err != nil {
		return b.gatewayFailure(ctx, err)
	}
	b.log.Info().Int64("event_id", eventID).Str("user_id", userID).Msg("joined event")

	b.mu.Lock()
	if b.activeUser == userID {
		b.joined[eventID] = struct{}{}
	}
	b.mu.Unlock()

	if err := b.RefreshNow(ctx); err != nil && !errors.Is(err, domain.ErrRefreshInProgress) {
		b.log.Warn().Err(err).Msg("refresh after join failed")
	}
	return nil
}

// Review submits a rating for a past event and updates eligibility locally.
func (b *Board) Review(ctx context.Context, eventID int64, rating int, text string) error {
	err := b.review(ctx, eventID, rating, text)
	b.metrics.UserAction("review", actionResult(err))
	return err
}

func (b *Board) review(ctx context.Context, eventID int64, rating int, text string) error {
	if rating < 1 || rating > 5 {
		return domain.ErrInvalidRating
	}
	sess, err := b.signedIn(ctx)
	if err != nil {
		return err
	}

	b.mu.RLock()
	e, ok := b.findLocked(eventID)
	b.mu.RUnlock()
	if !ok || !e.IsApproved() {
		return domain.ErrEventNotFound
	}
	if _, past := b.classifier.Classify([]entities.Event{e}, b.now()); len(past) == 0 {
		return domain.ErrEventNotPast
	}

	userID := sess.UserID()
	if b.reconciler.Owner() == userID {
		if rec, known := b.reconciler.Eligibility(eventID); known {
			if rec.HasReviewed {
				return domain.ErrAlreadyReviewed
			}
			if !rec.CanReview {
				return domain.ErrReviewNotAllowed
			}
		}
	}

	err = b.gateway.SubmitEventReview(ctx, entities.ReviewSubmission{
		EventID: eventID,
		UserID:  userID,
		Rating:  rating,
		Text:    text,
	})
	if err != nil {
		return b.gatewayFailure(ctx, err)
	}
	b.reconciler.MarkReviewed(userID, eventID, rating, text)
	b.log.Info().Int64("event_id", eventID).Str("user_id", userID).Int("rating", rating).Msg("review submitted")
	return nil
}

// Reviews lists an event's reviews, fetched on first use.
func (b *Board) Reviews(ctx context.Context, eventID int64) ([]entities.Review, error) {
	b.begin(SectionReviews)
	reviews, err := b.reconciler.Reviews(ctx, eventID)
	b.mu.Lock()
	b.endLocked(SectionReviews, err)
	b.mu.Unlock()
	return reviews, err
}

// Eligibility reads the cached review eligibility of an event.
func (b *Board) Eligibility(eventID int64) (entities.Eligibility, bool) {
	if b.reconciler.Owner() != b.ActiveUser() {
		return entities.Eligibility{}, false
	}
	return b.reconciler.Eligibility(eventID)
}

// ActiveUser is the signed-in user id, "" when signed out.
func (b *Board) ActiveUser() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.activeUser
}

// signedIn loads a usable session; an expired token signs the user out.
func (b *Board) signedIn(ctx context.Context) (*entities.Session, error) {
	sess, err := b.session.Current(ctx)
	if err != nil {
		return nil, err
	}
	if sess.UserID() == "" {
		return nil, domain.ErrNotLoggedIn
	}
	if b.session.Expired(sess) {
		if err := b.session.SignOut(ctx); err != nil {
			b.log.Error().Err(err).Msg("clear expired session")
		}
		return nil, domain.ErrSessionExpired
	}
	return sess, nil
}

// gatewayFailure turns a rejected token into a cleared session.
func (b *Board) gatewayFailure(ctx context.Context, err error) error {
	if !errors.Is(err, domain.ErrUnauthorized) {
		return err
	}
	if serr := b.session.SignOut(ctx); serr != nil {
		b.log.Error().Err(serr).Msg("clear rejected session")
	}
	return fmt.Errorf("%w: %w", domain.ErrSessionExpired, err)
}

func (b *Board) findLocked(eventID int64) (entities.Event, bool) {
	for _, e := range b.events {
		if e.ID == eventID {
			return e, true
		}
	}
	return entities.Event{}, false
}

func (b *Board) begin(section string) {
	b.mu.Lock()
	st := b.sections[section]
	st.Loading = true
	b.sections[section] = st
	b.mu.Unlock()
}

func (b *Board) endLocked(section string, err error) {
	st := b.sections[section]
	st.Loading = false
	st.Error = err
	if err == nil {
		st.UpdatedAt = b.now()
	}
	b.sections[section] = st
}

func wrapSection(section string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", section, err)
}

func actionResult(err error) string {
	if err == nil {
		return "ok"
	}
	if code := domain.Code(err); code != "" {
		return code
	}
	return "error"
}
