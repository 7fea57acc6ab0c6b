package application

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"share2care/internal/domain"
	"share2care/internal/domain/entities"
	"share2care/internal/ports/output"
	"share2care/pkg/eventtime"
)

// SubmissionService validates the event creation form and hands it to the
// gateway. New events always start pending.
type SubmissionService struct {
	gateway  output.EventGateway
	session  *SessionService
	validate *validator.Validate
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger
}

func NewSubmissionService(gateway output.EventGateway, session *SessionService, loc *time.Location, logger zerolog.Logger) *SubmissionService {
	if loc == nil {
		loc = time.Local
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &SubmissionService{
		gateway:  gateway,
		session:  session,
		validate: v,
		loc:      loc,
		now:      time.Now,
		log:      logger.With().Str("component", "submission").Logger(),
	}
}

// Submit checks the form, fills the location from the user's profile when
// left blank, and creates the event. Nothing is sent when validation fails.
func (s *SubmissionService) Submit(ctx context.Context, form entities.EventSubmission) error {
	sess, err := s.session.Current(ctx)
	if err != nil {
		return err
	}
	if sess.UserID() == "" {
		return domain.ErrNotLoggedIn
	}
	if s.session.Expired(sess) {
		if err := s.session.SignOut(ctx); err != nil {
			s.log.Error().Err(err).Msg("clear expired session")
		}
		return domain.ErrSessionExpired
	}

	form = trimSubmission(form)
	if form.Location == "" {
		form.Location = profileLocation(sess.User)
	}
	if err := s.Validate(form); err != nil {
		return err
	}

	err = s.gateway.CreateEvent(ctx, entities.NewEvent{
		EventSubmission: form,
		OrganizerID:     sess.User.ID,
		OrganizerName:   sess.User.Name,
		Status:          domain.StatusPending,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			if serr := s.session.SignOut(ctx); serr != nil {
				s.log.Error().Err(serr).Msg("clear rejected session")
			}
			return fmt.Errorf("%w: %w", domain.ErrSessionExpired, err)
		}
		return fmt.Errorf("create event: %w", err)
	}
	s.log.Info().Str("user_id", sess.User.ID).Str("title", form.Title).Msg("event submitted for approval")
	return nil
}

// Validate returns a *domain.ValidationError listing every invalid field.
func (s *SubmissionService) Validate(form entities.EventSubmission) error {
	fields := map[string]string{}

	if err := s.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate submission: %w", err)
		}
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
	}
	if form.Location == "" {
		fields["location"] = "required"
	}

	if _, bad := fields["event_date"]; !bad {
		date, err := eventtime.ParseDate(form.EventDate, s.loc)
		if err == nil && date.Before(eventtime.StartOfDay(s.now(), s.loc)) {
			fields["event_date"] = "must not be in the past"
		}
	}
	_, badStart := fields["start_time"]
	_, badEnd := fields["end_time"]
	if !badStart && !badEnd {
		start, serr := eventtime.ParseClock(form.StartTime)
		end, eerr := eventtime.ParseClock(form.EndTime)
		if serr == nil && eerr == nil && !clockBefore(start, end) {
			fields["end_time"] = "must be after start_time"
		}
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "datetime":
		return "must match " + fe.Param()
	default:
		return "invalid"
	}
}

func clockBefore(a, b eventtime.Clock) bool {
	am := a.Hour*3600 + a.Minute*60 + a.Second
	bm := b.Hour*3600 + b.Minute*60 + b.Second
	return am < bm
}

func trimSubmission(f entities.EventSubmission) entities.EventSubmission {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Category = strings.TrimSpace(f.Category)
	f.Location = strings.TrimSpace(f.Location)
	f.EventDate = strings.TrimSpace(f.EventDate)
	f.StartTime = strings.TrimSpace(f.StartTime)
	f.EndTime = strings.TrimSpace(f.EndTime)
	return f
}

func profileLocation(u *entities.User) string {
	if u == nil {
		return ""
	}
	if city := strings.TrimSpace(u.City); city != "" {
		return city
	}
	return strings.TrimSpace(u.Address)
}
