package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/taskwire/taskwire-server/internal/core"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeServiceError maps a domain error to an HTTP response. Internal errors
// are logged and hidden behind a generic message.
func writeServiceError(c *gin.Context, logger *zerolog.Logger, err error) {
	code := core.CodeOf(err)
	status := statusOf(code)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(status, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func statusOf(code string) int {
	switch code {
	case core.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case core.ErrCodeForbidden:
		return http.StatusForbidden
	case core.ErrCodeNotFound:
		return http.StatusNotFound
	case core.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case core.ErrCodeAlreadyMember:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
