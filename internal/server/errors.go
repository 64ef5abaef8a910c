package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/docquiz/internal/generation"
	"github.com/abhisek/docquiz/internal/scoring"
	"github.com/abhisek/docquiz/internal/session"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`

	// Raw carries the rejected model output on 502: verbatim when it is
	// valid JSON, as a JSON string otherwise.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// rawField makes untrusted model output safe to embed in errorBody.
func rawField(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		return raw
	}
	quoted, err := json.Marshal(string(raw))
	if err != nil {
		return nil
	}
	return quoted
}

var errNoSession = errors.New("no active quiz session")

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorBody{Error: msg})
}

// respondError maps a domain error onto an HTTP status.
func (s *Server) respondError(c *gin.Context, err error) {
	var genErr *generation.Error
	switch {
	case errors.Is(err, generation.ErrConfiguration):
		s.log.Error().Err(err).Msg("generation not configured")
		fail(c, http.StatusInternalServerError, "API key is not configured")
	case errors.As(err, &genErr) && genErr.Code == generation.CodeMalformedOutput:
		c.AbortWithStatusJSON(http.StatusBadGateway, errorBody{
			Error: "the model returned an invalid response: " + genErr.Err.Error(),
			Raw:   rawField(genErr.Raw),
		})
	case errors.Is(err, generation.ErrServiceUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusServiceUnavailable, "generation service is unavailable, please try again")
	case errors.Is(err, context.Canceled):
		fail(c, 499, "request canceled")
	case errors.Is(err, scoring.ErrInvalidTrace),
		errors.Is(err, session.ErrIndexOutOfRange),
		errors.Is(err, session.ErrInvalidQuestionSet):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrMissingSessionData), errors.Is(err, errNoSession):
		fail(c, http.StatusNotFound, errNoSession.Error())
	case errors.Is(err, session.ErrInvalidSessionData):
		fail(c, http.StatusConflict, session.ErrInvalidSessionData.Error())
	case errors.Is(err, session.ErrAlreadySubmitted),
		errors.Is(err, session.ErrNotOnLastQuestion),
		errors.Is(err, session.ErrClosed):
		fail(c, http.StatusConflict, err.Error())
	default:
		s.log.Error().Err(err).Str("request_id", c.GetString(contextKeyRequestID)).Msg("request failed")
		fail(c, http.StatusInternalServerError, "internal server error")
	}
}
