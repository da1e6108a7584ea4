package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/response"
	"github.com/stemsi/leave-assessment/internal/service"
)

// serviceErrors maps service sentinels to HTTP status and error code.
var serviceErrors = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	{service.ErrAttemptNotFound, http.StatusNotFound, response.ErrAttemptNotFound},
	{service.ErrLeaveNotFound, http.StatusNotFound, response.ErrLeaveNotFound},
	{service.ErrForbidden, http.StatusForbidden, response.ErrForbidden},
	{service.ErrAttemptClosed, http.StatusConflict, response.ErrAttemptClosed},
	{service.ErrDuplicateAnswer, http.StatusConflict, response.ErrDuplicateAnswer},
	{service.ErrConflict, http.StatusConflict, response.ErrConflict},
	{service.ErrUnknownQuestion, http.StatusBadRequest, response.ErrUnknownQuestion},
	{service.ErrRoundLocked, http.StatusBadRequest, response.ErrRoundLocked},
}

// writeServiceError renders err as an API error. Unknown errors are logged
// and reported as internal errors.
func writeServiceError(c *gin.Context, log zerolog.Logger, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, verr.Fields)
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			response.Fail(c, m.status, m.code)
			return
		}
	}

	log.Error().Err(err).
		Str("path", c.FullPath()).
		Str("request_id", response.RequestID(c)).
		Msg("Request failed")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

// parseIDParam parses the uuid route parameter name, writing an error
// response when it is malformed.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
