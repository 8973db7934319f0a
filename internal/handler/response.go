package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/hoko/internal/app"
	"github.com/shinyyama/hoko/internal/inbox"
	"github.com/shinyyama/hoko/internal/login"
	"github.com/shinyyama/hoko/internal/requirement"
	"github.com/shinyyama/hoko/internal/service"
	"github.com/shinyyama/hoko/internal/session"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// requestError is a malformed request; its text goes back as is.
type requestError string

func (e requestError) Error() string { return string(e) }

func badRequest(msg string) error {
	return requestError(msg)
}

// respondError maps a flow error to its status and user-facing message.
func respondError(c echo.Context, err error) error {
	var fe requirement.FieldErrors
	var re requestError
	switch {
	case errors.As(err, &re):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", string(re)))
	case errors.As(err, &fe):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_input", fe.Error()))
	case errors.Is(err, requirement.ErrEmptyNeed):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_input", "Please describe what you need"))
	case errors.Is(err, login.ErrInvalidPhone), errors.Is(err, login.ErrInvalidCode),
		errors.Is(err, login.ErrMissingCity), errors.Is(err, login.ErrMissingProfile),
		errors.Is(err, login.ErrMissingCategory):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_input", login.Message(err)))
	case errors.Is(err, login.ErrCodeExpired), errors.Is(err, login.ErrCodeMismatch):
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("invalid_code", login.Message(err)))
	case errors.Is(err, login.ErrCooldown):
		return c.JSON(http.StatusTooManyRequests, NewErrorResponse("cooldown", login.Message(err)))
	case errors.Is(err, login.ErrBusy), errors.Is(err, app.ErrSubmitting), errors.Is(err, app.ErrPostInProgress),
		errors.Is(err, inbox.ErrSending):
		return c.JSON(http.StatusConflict, NewErrorResponse("in_flight", "Please wait..."))
	case errors.Is(err, login.ErrWrongStep), errors.Is(err, app.ErrNoLogin), errors.Is(err, inbox.ErrThreadClosed):
		return c.JSON(http.StatusConflict, NewErrorResponse("wrong_step", "This action is not available right now"))
	case errors.Is(err, app.ErrNotSignedIn):
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "Please log in"))
	case errors.Is(err, session.ErrUnknownCity):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_input", "Please select your city"))
	case errors.Is(err, service.ErrInvalidPrice), errors.Is(err, service.ErrEmptyProduct), errors.Is(err, service.ErrEmptyMessage):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_input", app.FailureMessage(err)))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", app.FailureMessage(err)))
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", app.FailureMessage(err)))
	case errors.Is(err, service.ErrCounterpartMissing):
		return c.JSON(http.StatusUnprocessableEntity, NewErrorResponse("counterpart_missing", app.FailureMessage(err)))
	}
	return c.JSON(http.StatusBadGateway, NewErrorResponse("upstream_error", "Something went wrong. Please try again."))
}
