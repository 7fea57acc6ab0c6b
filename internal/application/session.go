package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"share2care/internal/domain"
	"share2care/internal/domain/entities"
	"share2care/internal/ports/output"
	"share2care/pkg/bus"
)

// Session store keys.
const (
	KeyLoggedIn       = "isLoggedIn"
	KeyUser           = "user"
	KeyToken          = "token"
	KeyApprovalStatus = "approvalStatus"
)

// SessionChanged is published on every sign-in and sign-out.
type SessionChanged struct {
	LoggedIn bool
	UserID   string
}

// SessionService reads and writes the local session and announces
// transitions on its bus.
type SessionService struct {
	store      output.SessionStore
	approvals  output.ApprovalGateway
	notifier   output.Notifier
	translator output.Translator
	changes    *bus.Bus[SessionChanged]
	locale     string
	now        func() time.Time
	log        zerolog.Logger
}

func NewSessionService(
	store output.SessionStore,
	approvals output.ApprovalGateway,
	notifier output.Notifier,
	translator output.Translator,
	changes *bus.Bus[SessionChanged],
	locale string,
	logger zerolog.Logger,
) *SessionService {
	return &SessionService{
		store:      store,
		approvals:  approvals,
		notifier:   notifier,
		translator: translator,
		changes:    changes,
		locale:     locale,
		now:        time.Now,
		log:        logger.With().Str("component", "session").Logger(),
	}
}

// Current loads the session. Missing keys read as signed out; a corrupt
// profile is logged and also reads as signed out.
func (s *SessionService) Current(ctx context.Context) (*entities.Session, error) {
	loggedIn, err := s.get(ctx, KeyLoggedIn)
	if err != nil {
		return nil, err
	}
	sess := &entities.Session{LoggedIn: loggedIn == "true"}
	if !sess.LoggedIn {
		return sess, nil
	}

	raw, err := s.get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	var user entities.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == "" {
		s.log.Warn().Err(err).Msg("cached user profile unreadable, treating session as signed out")
		return &entities.Session{}, nil
	}
	sess.User = &user

	if sess.Token, err = s.get(ctx, KeyToken); err != nil {
		return nil, err
	}
	if sess.ApprovalStatus, err = s.get(ctx, KeyApprovalStatus); err != nil {
		return nil, err
	}
	if sess.ApprovalStatus == "" {
		sess.ApprovalStatus = domain.ApprovalPending
	}
	return sess, nil
}

// SignIn stores the session produced by the login flow.
func (s *SessionService) SignIn(ctx context.Context, user entities.User, token, approval string) error {
	if strings.TrimSpace(user.ID) == "" {
		return &domain.ValidationError{Fields: map[string]string{"user.id": "required"}}
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if approval == "" {
		approval = domain.ApprovalPending
	}
	for _, kv := range [][2]string{
		{KeyUser, string(raw)},
		{KeyToken, token},
		{KeyApprovalStatus, approval},
		{KeyLoggedIn, "true"},
	} {
		if err := s.store.Set(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("store %s: %w", kv[0], err)
		}
	}
	s.log.Info().Str("user_id", user.ID).Msg("signed in")
	s.changes.Publish(SessionChanged{LoggedIn: true, UserID: user.ID})
	return nil
}

// SignOut clears the session.
func (s *SessionService) SignOut(ctx context.Context) error {
	if err := s.store.Delete(ctx, KeyLoggedIn, KeyUser, KeyToken, KeyApprovalStatus); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.log.Info().Msg("signed out")
	s.changes.Publish(SessionChanged{LoggedIn: false})
	return nil
}

// Token returns the stored bearer token, or "" when none is stored.
func (s *SessionService) Token(ctx context.Context) string {
	token, err := s.get(ctx, KeyToken)
	if err != nil {
		return ""
	}
	return token
}

// Expired reads the exp claim of the session token. The signature is not
// checked; opaque or claim-less tokens never expire locally.
func (s *SessionService) Expired(sess *entities.Session) bool {
	if sess == nil || sess.Token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(sess.Token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !s.now().Before(exp.Time)
}

// CheckApproval re-reads the account approval and stores it. The user is
// notified once when the account turns approved.
func (s *SessionService) CheckApproval(ctx context.Context) error {
	sess, err := s.Current(ctx)
	if err != nil {
		return err
	}
	userID := sess.UserID()
	if userID == "" {
		return nil
	}

	state, err := s.approvals.GetUserApprovalStatus(ctx, userID)
	if err != nil {
		return fmt.Errorf("approval status: %w", err)
	}
	status := normalizeApproval(state)
	if status == "" || status == sess.ApprovalStatus {
		return nil
	}

	// The user may have signed out while the request was in flight.
	if latest, err := s.Current(ctx); err != nil || latest.UserID() != userID {
		return err
	}
	if err := s.store.Set(ctx, KeyApprovalStatus, status); err != nil {
		return fmt.Errorf("store approval: %w", err)
	}
	s.log.Info().Str("user_id", userID).Str("from", sess.ApprovalStatus).Str("to", status).Msg("approval status changed")

	if status == domain.ApprovalApproved && s.notifier != nil {
		notice := output.Notice{
			Kind:   output.NoticeAccountApproved,
			UserID: userID,
			Title:  s.translator.T(s.locale, "notice.account_approved.title", nil),
			Body:   s.translator.T(s.locale, "notice.account_approved.body", map[string]any{"Name": sess.User.Name}),
		}
		if err := s.notifier.Notify(ctx, notice); err != nil {
			s.log.Warn().Err(err).Msg("account approval notice not delivered")
		}
	}
	return nil
}

func (s *SessionService) get(ctx context.Context, key string) (string, error) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, output.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

func normalizeApproval(state entities.ApprovalState) string {
	status := strings.ToLower(strings.TrimSpace(state.ApprovalStatus))
	if status == "" {
		status = strings.ToLower(strings.TrimSpace(state.Status))
	}
	switch status {
	case domain.ApprovalApproved, domain.StatusActive:
		return domain.ApprovalApproved
	case domain.ApprovalRejected:
		return domain.ApprovalRejected
	case domain.ApprovalPending, domain.StatusInactive:
		return domain.ApprovalPending
	}
	return ""
}
