package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"share2care/internal/domain"
	"share2care/internal/domain/entities"
	"share2care/internal/ports/output"
)

// DefaultReviewThrottle is the minimum idle gap between the answer to one
// eligibility query and the start of the next.
const DefaultReviewThrottle = 200 * time.Millisecond

// ReconcilerConfig tunes request pacing.
type ReconcilerConfig struct {
	Throttle        time.Duration
	CooldownInitial time.Duration
	CooldownMax     time.Duration
}

func (c ReconcilerConfig) withDefaults() ReconcilerConfig {
	if c.Throttle <= 0 {
		c.Throttle = DefaultReviewThrottle
	}
	if c.CooldownInitial <= 0 {
		c.CooldownInitial = time.Second
	}
	if c.CooldownMax < c.CooldownInitial {
		c.CooldownMax = 10 * c.CooldownInitial
	}
	return c
}

// Reconciler keeps the per-event review eligibility of one user. Queries are
// issued one at a time and each waits the throttle after the previous answer;
// a 429 adds an exponential cooldown before the next one.
type Reconciler struct {
	gateway output.ReviewGateway
	metrics output.Metrics
	log     zerolog.Logger
	every   rate.Limit

	paceMu sync.Mutex
	gap    *rate.Limiter

	cooldownMu sync.Mutex
	cooldown   *backoff.ExponentialBackOff

	mu      sync.RWMutex
	owner   string
	records map[int64]entities.Eligibility
	stale   map[int64]struct{}
	reviews map[int64][]entities.Review
}

func NewReconciler(gateway output.ReviewGateway, cfg ReconcilerConfig, metrics output.Metrics, logger zerolog.Logger) *Reconciler {
	cfg = cfg.withDefaults()
	if metrics == nil {
		metrics = output.NopMetrics{}
	}

	cooldown := backoff.NewExponentialBackOff()
	cooldown.InitialInterval = cfg.CooldownInitial
	cooldown.MaxInterval = cfg.CooldownMax
	cooldown.MaxElapsedTime = 0
	cooldown.Reset()

	return &Reconciler{
		gateway:  gateway,
		metrics:  metrics,
		log:      logger.With().Str("component", "reconciler").Logger(),
		every:    rate.Every(cfg.Throttle),
		cooldown: cooldown,
		records:  make(map[int64]entities.Eligibility),
		stale:    make(map[int64]struct{}),
		reviews:  make(map[int64][]entities.Review),
	}
}

// Reconcile queries eligibility for every event, sequentially. A failed query
// yields the default record and the batch goes on. The only error returned is
// ctx's, together with the entries gathered so far.
func (r *Reconciler) Reconcile(ctx context.Context, events []entities.Event, userID string) (map[int64]entities.Eligibility, error) {
	r.adopt(userID)

	out := make(map[int64]entities.Eligibility, len(events))
	for _, e := range events {
		if err := r.pace(ctx); err != nil {
			return out, err
		}

		rec, err := r.gateway.CanUserReviewEvent(ctx, e.ID, userID)
		r.settle()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			r.log.Warn().Err(err).Int64("event_id", e.ID).Str("user_id", userID).Msg("eligibility query failed, using default")
			r.metrics.EligibilityQuery(resultLabel(err))
			out[e.ID] = r.store(userID, e.ID, entities.DefaultEligibility(), false)

			if errors.Is(err, domain.ErrRateLimited) {
				if err := r.waitCooldown(ctx); err != nil {
					return out, err
				}
			}
			continue
		}

		r.resetCooldown()
		r.metrics.EligibilityQuery("ok")
		out[e.ID] = r.store(userID, e.ID, rec, true)
	}
	return out, nil
}

// Pending selects the events that still need a query for userID: never
// queried, failed last time, or awaiting confirmation of a submitted review.
func (r *Reconciler) Pending(events []entities.Event, userID string) []entities.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.owner != userID {
		return append([]entities.Event(nil), events...)
	}
	out := make([]entities.Event, 0, len(events))
	for _, e := range events {
		_, known := r.records[e.ID]
		_, stale := r.stale[e.ID]
		if !known || stale {
			out = append(out, e)
		}
	}
	return out
}

// Eligibility reads the cached record without touching the network.
func (r *Reconciler) Eligibility(eventID int64) (entities.Eligibility, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[eventID]
	return rec, ok
}

// Snapshot copies every cached record.
func (r *Reconciler) Snapshot() map[int64]entities.Eligibility {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int64]entities.Eligibility, len(r.records))
	for id, rec := range r.records {
		out[id] = rec
	}
	return out
}

// Owner is the user the cached records belong to.
func (r *Reconciler) Owner() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

// MarkReviewed applies a successful submission locally: the record flips to
// reviewed at once, the review list of the event is dropped, and the record
// is re-verified on the next reconciliation.
func (r *Reconciler) MarkReviewed(userID string, eventID int64, rating int, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owner != userID {
		r.resetLocked(userID)
	}
	rec := entities.Eligibility{CanReview: false, HasReviewed: true, ExistingRating: &rating}
	if text != "" {
		rec.ExistingReview = &text
	}
	r.records[eventID] = rec
	r.stale[eventID] = struct{}{}
	delete(r.reviews, eventID)
}

// Reviews returns the reviews of an event, fetching them on first use.
func (r *Reconciler) Reviews(ctx context.Context, eventID int64) ([]entities.Review, error) {
	r.mu.RLock()
	cached, ok := r.reviews[eventID]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	reviews, err := r.gateway.GetEventReviews(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []entities.Review{}
	}

	r.mu.Lock()
	r.reviews[eventID] = reviews
	r.mu.Unlock()
	return reviews, nil
}

// InvalidateReviews drops the cached review list of an event.
func (r *Reconciler) InvalidateReviews(eventID int64) {
	r.mu.Lock()
	delete(r.reviews, eventID)
	r.mu.Unlock()
}

// Reset forgets everything; used on sign-out.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked("")
	r.reviews = make(map[int64][]entities.Review)
}

func (r *Reconciler) adopt(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owner != userID {
		r.resetLocked(userID)
	}
}

func (r *Reconciler) resetLocked(owner string) {
	r.owner = owner
	r.records = make(map[int64]entities.Eligibility)
	r.stale = make(map[int64]struct{})
}

// store caches rec unless the cache changed hands meanwhile. A review once
// recorded is never taken back by a lagging answer.
func (r *Reconciler) store(userID string, eventID int64, rec entities.Eligibility, answered bool) entities.Eligibility {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.records[eventID]; ok && prev.HasReviewed && !rec.HasReviewed {
		rec = prev
	}
	if r.owner != userID {
		return rec
	}
	r.records[eventID] = rec
	if answered {
		delete(r.stale, eventID)
	} else {
		r.stale[eventID] = struct{}{}
	}
	return rec
}

// pace blocks until the throttle has elapsed since the last answer.
func (r *Reconciler) pace(ctx context.Context) error {
	r.paceMu.Lock()
	gap := r.gap
	r.paceMu.Unlock()
	if gap == nil {
		return nil
	}
	return gap.Wait(ctx)
}

// settle opens a new throttle window at the moment an answer arrived. The
// fresh limiter's only token is taken at once, so the next Wait lasts one
// full interval from now.
func (r *Reconciler) settle() {
	gap := rate.NewLimiter(r.every, 1)
	gap.Allow()
	r.paceMu.Lock()
	r.gap = gap
	r.paceMu.Unlock()
}

func (r *Reconciler) waitCooldown(ctx context.Context) error {
	r.cooldownMu.Lock()
	d := r.cooldown.NextBackOff()
	r.cooldownMu.Unlock()
	if d == backoff.Stop {
		d = r.cooldown.MaxInterval
	}
	r.log.Info().Dur("cooldown", d).Msg("rate limited, pausing eligibility queries")

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Reconciler) resetCooldown() {
	r.cooldownMu.Lock()
	r.cooldown.Reset()
	r.cooldownMu.Unlock()
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed"
	default:
		return "error"
	}
}
