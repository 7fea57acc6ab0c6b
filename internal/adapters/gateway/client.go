package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"share2care/internal/domain"
	"share2care/internal/domain/entities"
	"share2care/internal/ports/output"
)

const maxErrorBody = 4 << 10

// Client talks to the remote data gateway over REST.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     output.TokenSource
	loc        *time.Location
	log        zerolog.Logger
}

var _ output.Gateway = (*Client)(nil)

// NewClient builds a client. tokens may be nil for anonymous access.
func NewClient(baseURL string, timeout time.Duration, tokens output.TokenSource, loc *time.Location, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		loc:        loc,
		log:        logger.With().Str("component", "gateway").Logger(),
	}
}

func (c *Client) ListEvents(ctx context.Context) ([]entities.Event, error) {
	var raw any
	if err := c.doJSON(ctx, http.MethodGet, "/events", nil, &raw); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return decodeEvents(raw)
}

func (c *Client) ListCategories(ctx context.Context) ([]entities.Category, error) {
	var raw any
	if err := c.doJSON(ctx, http.MethodGet, "/categories", nil, &raw); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return decodeCategories(raw)
}

func (c *Client) GetUserApprovalStatus(ctx context.Context, userID string) (entities.ApprovalState, error) {
	var raw any
	path := "/users/" + url.PathEscape(userID) + "/approval-status"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return entities.ApprovalState{}, fmt.Errorf("approval status: %w", err)
	}
	return decodeApproval(raw)
}

func (c *Client) GetUserJoinedEvents(ctx context.Context, userID string) ([]entities.Event, error) {
	var raw any
	path := "/users/" + url.PathEscape(userID) + "/joined-events"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("joined events: %w", err)
	}
	return decodeEvents(raw)
}

func (c *Client) JoinEvent(ctx context.Context, eventID int64, userID string) error {
	body := map[string]any{"user_id": userID}
	if err := c.doJSON(ctx, http.MethodPost, eventPath(eventID, "/join"), body, nil); err != nil {
		return fmt.Errorf("join event %d: %w", eventID, err)
	}
	return nil
}

func (c *Client) CreateEvent(ctx context.Context, e entities.NewEvent) error {
	body := map[string]any{
		"title":            e.Title,
		"description":      e.Description,
		"category":         e.Category,
		"location":         e.Location,
		"event_date":       e.EventDate,
		"start_time":       e.StartTime,
		"end_time":         e.EndTime,
		"max_participants": e.MaxParticipants,
		"organizer_id":     e.OrganizerID,
		"organizer_name":   e.OrganizerName,
		"status":           domain.StatusPending,
	}
	if err := c.doJSON(ctx, http.MethodPost, "/events", body, nil); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (c *Client) CanUserReviewEvent(ctx context.Context, eventID int64, userID string) (entities.Eligibility, error) {
	var raw any
	path := eventPath(eventID, "/can-review") + "?" + url.Values{"user_id": {userID}}.Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return entities.DefaultEligibility(), fmt.Errorf("can review event %d: %w", eventID, err)
	}
	return decodeEligibility(raw)
}

func (c *Client) GetEventReviews(ctx context.Context, eventID int64) ([]entities.Review, error) {
	var raw any
	if err := c.doJSON(ctx, http.MethodGet, eventPath(eventID, "/reviews"), nil, &raw); err != nil {
		return nil, fmt.Errorf("event %d reviews: %w", eventID, err)
	}
	return decodeReviews(raw, eventID, c.loc)
}

func (c *Client) SubmitEventReview(ctx context.Context, r entities.ReviewSubmission) error {
	body := map[string]any{
		"user_id": r.UserID,
		"rating":  r.Rating,
		"review":  r.Text,
	}
	if err := c.doJSON(ctx, http.MethodPost, eventPath(r.EventID, "/reviews"), body, nil); err != nil {
		return fmt.Errorf("review event %d: %w", r.EventID, err)
	}
	return nil
}

func eventPath(eventID int64, suffix string) string {
	return "/events/" + strconv.FormatInt(eventID, 10) + suffix
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(started)).
		Msg("gateway call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	msg := serverMessage(resp.Body)
	var kind error
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		kind = domain.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		kind = domain.ErrEventNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		kind = domain.ErrRateLimited
	default:
		kind = domain.ErrGatewayUnavailable
	}
	if msg == "" {
		return fmt.Errorf("%w (status %d)", kind, resp.StatusCode)
	}
	return fmt.Errorf("%w (status %d): %s", kind, resp.StatusCode, msg)
}

// serverMessage extracts "message" or "error" from a JSON error body, or
// the trimmed body itself.
func serverMessage(body io.Reader) string {
	buf, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(buf) == 0 {
		return ""
	}
	var payload map[string]any
	if json.Unmarshal(buf, &payload) == nil {
		for _, key := range []string{"message", "error"} {
			if s, ok := payload[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(buf))
}
