package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"share2care/internal/application"
	"share2care/internal/domain"
	"share2care/internal/domain/entities"
	"share2care/internal/ports/input"
	"share2care/internal/ports/output"
)

// Handler exposes the board engine to the page.
type Handler struct {
	board       input.BoardUseCase
	submissions input.SubmissionUseCase
	session     input.SessionUseCase
	approvals   input.ApprovalSignals
	inbox       input.NoticeInbox
	translator  output.Translator
	log         zerolog.Logger
}

func NewHandler(
	board input.BoardUseCase,
	submissions input.SubmissionUseCase,
	session input.SessionUseCase,
	approvals input.ApprovalSignals,
	inbox input.NoticeInbox,
	translator output.Translator,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		board:       board,
		submissions: submissions,
		session:     session,
		approvals:   approvals,
		inbox:       inbox,
		translator:  translator,
		log:         logger.With().Str("component", "httpapi").Logger(),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/board", h.GetBoard)
	g.PUT("/board/filter", h.ChangeFilter)
	g.PUT("/board/pages/:tab", h.ChangePage)
	g.POST("/board/refresh", h.Refresh)

	g.POST("/events", h.SubmitEvent)
	g.POST("/events/:id/join", h.Join)
	g.GET("/events/:id/reviews", h.ListReviews)
	g.POST("/events/:id/reviews", h.SubmitReview)
	g.GET("/events/:id/eligibility", h.GetEligibility)

	g.GET("/session", h.GetSession)
	g.POST("/session", h.SignIn)
	g.DELETE("/session", h.SignOut)

	g.POST("/approvals", h.PublishApproval)
	g.GET("/notices", h.TakeNotices)
}

func (h *Handler) GetBoard(c echo.Context) error {
	return c.JSON(http.StatusOK, h.boardResponse(c))
}

func (h *Handler) ChangeFilter(c echo.Context) error {
	var req FilterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	h.board.ChangeFilter(req.toQuery())
	return c.JSON(http.StatusOK, h.boardResponse(c))
}

func (h *Handler) ChangePage(c echo.Context) error {
	var req PageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.board.ChangePage(c.Param("tab"), req.Page); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.boardResponse(c))
}

func (h *Handler) Refresh(c echo.Context) error {
	err := h.board.RefreshNow(c.Request().Context())
	if errors.Is(err, domain.ErrRefreshInProgress) {
		return c.JSON(http.StatusAccepted, map[string]string{"status": "in_progress"})
	}
	if err != nil {
		// Section errors are part of the board; only a dead session aborts.
		if errors.Is(err, domain.ErrSessionExpired) {
			return err
		}
		h.log.Warn().Err(err).Msg("refresh completed with errors")
	}
	return c.JSON(http.StatusOK, h.boardResponse(c))
}

func (h *Handler) SubmitEvent(c echo.Context) error {
	var form entities.EventSubmission
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.submissions.Submit(c.Request().Context(), form); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": domain.StatusPending})
}

func (h *Handler) Join(c echo.Context) error {
	id, err := eventID(c)
	if err != nil {
		return err
	}
	if err := h.board.Join(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"event_id": id, "joined": true})
}

func (h *Handler) ListReviews(c echo.Context) error {
	id, err := eventID(c)
	if err != nil {
		return err
	}
	reviews, err := h.board.Reviews(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReviewResponses(reviews))
}

func (h *Handler) SubmitReview(c echo.Context) error {
	id, err := eventID(c)
	if err != nil {
		return err
	}
	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.board.Review(c.Request().Context(), id, req.Rating, req.Review); err != nil {
		return err
	}
	rec, known := h.board.Eligibility(id)
	return c.JSON(http.StatusCreated, toEligibilityResponse(rec, known))
}

func (h *Handler) GetEligibility(c echo.Context) error {
	id, err := eventID(c)
	if err != nil {
		return err
	}
	rec, known := h.board.Eligibility(id)
	return c.JSON(http.StatusOK, toEligibilityResponse(rec, known))
}

func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.session.Current(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) SignIn(c echo.Context) error {
	var req SignInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	if err := h.session.SignIn(ctx, req.User, req.Token, req.ApprovalStatus); err != nil {
		return err
	}
	sess, err := h.session.Current(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSessionResponse(sess))
}

func (h *Handler) SignOut(c echo.Context) error {
	if err := h.session.SignOut(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) PublishApproval(c echo.Context) error {
	var req ApprovalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.EventID <= 0 {
		return &domain.ValidationError{Fields: map[string]string{"event_id": "required"}}
	}
	reached := h.approvals.Publish(application.EventApproved{
		EventID:     req.EventID,
		OrganizerID: req.OrganizerID,
		Title:       req.Title,
	})
	return c.JSON(http.StatusAccepted, map[string]int{"subscribers": reached})
}

func (h *Handler) TakeNotices(c echo.Context) error {
	sess, err := h.session.Current(c.Request().Context())
	if err != nil {
		return err
	}
	userID := sess.UserID()
	if userID == "" {
		return domain.ErrNotLoggedIn
	}
	return c.JSON(http.StatusOK, toNoticeResponses(h.inbox.TakePending(userID)))
}

func (h *Handler) boardResponse(c echo.Context) BoardResponse {
	lang := locale(c)
	return toBoardResponse(h.board.View(), func(err error) string {
		_, body := errorResponse(err, h.translator, lang)
		return body.Message
	})
}

func eventID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}
	return id, nil
}
