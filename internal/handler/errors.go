package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/response"
	"github.com/stemsi/exstem-adaptive/internal/service"
)

// serviceErrors maps specific service errors to response codes. The first
// match wins, so specific errors come before their taxonomy class.
var serviceErrors = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	{service.ErrSessionNotFound, http.StatusNotFound, response.ErrSessionNotFound},
	{service.ErrBankNotFound, http.StatusNotFound, response.ErrBankNotFound},
	{service.ErrBankExhausted, http.StatusNotFound, response.ErrBankExhausted},
	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},

	{service.ErrSessionCompleted, http.StatusConflict, response.ErrSessionCompleted},
	{service.ErrStaleQuestion, http.StatusConflict, response.ErrStaleQuestion},
	{service.ErrSubmissionInFlight, http.StatusConflict, response.ErrSubmissionInFlight},
	{service.ErrConflict, http.StatusConflict, response.ErrConflict},

	{service.ErrAnswerTypeMismatch, http.StatusBadRequest, response.ErrAnswerTypeMismatch},
	{service.ErrValidation, http.StatusBadRequest, response.ErrValidation},
}

// failService writes the response for an error returned by a service.
// Unclassified errors are logged and reported as internal errors.
func failService(c *gin.Context, log zerolog.Logger, err error) {
	for _, m := range serviceErrors {
		if !errors.Is(err, m.err) {
			continue
		}
		if m.status == http.StatusBadRequest {
			response.FailWithFields(c, m.status, m.code, map[string]string{"detail": err.Error()})
			return
		}
		response.Fail(c, m.status, m.code)
		return
	}

	log.Error().
		Err(err).
		Str("path", c.FullPath()).
		Str("request_id", response.RequestIDFrom(c)).
		Msg("Unhandled service error")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}
