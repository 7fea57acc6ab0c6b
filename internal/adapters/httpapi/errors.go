package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"share2care/internal/domain"
	"share2care/internal/ports/output"
)

var statusByCode = map[string]int{
	"validation":          http.StatusUnprocessableEntity,
	"session_expired":     http.StatusUnauthorized,
	"not_logged_in":       http.StatusUnauthorized,
	"unauthorized":        http.StatusForbidden,
	"account_pending":     http.StatusForbidden,
	"event_not_found":     http.StatusNotFound,
	"event_started":       http.StatusConflict,
	"event_full":          http.StatusConflict,
	"already_joined":      http.StatusConflict,
	"event_not_past":      http.StatusConflict,
	"already_reviewed":    http.StatusConflict,
	"review_not_allowed":  http.StatusForbidden,
	"refresh_in_progress": http.StatusConflict,
	"invalid_rating":      http.StatusBadRequest,
	"invalid_tab":         http.StatusBadRequest,
	"rate_limited":        http.StatusTooManyRequests,
	"gateway_unavailable": http.StatusBadGateway,
	"malformed_response":  http.StatusBadGateway,
}

// ErrorHandler renders every error as {"message": ...} in the caller's language.
func ErrorHandler(translator output.Translator, logger zerolog.Logger) echo.HTTPErrorHandler {
	log := logger.With().Str("component", "httpapi").Logger()
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := errorResponse(err, translator, locale(c))
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg("request failed")
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func errorResponse(err error, translator output.Translator, lang string) (int, ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		key := "error.internal"
		if he.Code < http.StatusInternalServerError {
			key = "error.bad_request"
		}
		msg := translator.T(lang, key, nil)
		if m, ok := he.Message.(string); ok && (he.Code == http.StatusNotFound || he.Code == http.StatusMethodNotAllowed) {
			msg = m
		}
		return he.Code, ErrorResponse{Message: msg}
	}

	code := domain.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		return http.StatusInternalServerError, ErrorResponse{Message: translator.T(lang, "error.internal", nil)}
	}

	body := ErrorResponse{Message: translator.T(lang, "error."+code, nil), Code: code}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	if code == "session_expired" {
		body.Redirect = "/login"
	}
	return status, body
}

func locale(c echo.Context) string {
	return c.Request().Header.Get("Accept-Language")
}
