package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jensmemes/memeserver/internal/common"
)

const msgInternal = "Internal Server Error"

// respond writes the {status, error, <key>} envelope for a success.
func respond(c *gin.Context, status int, key string, payload any) {
	c.JSON(status, gin.H{"status": status, "error": nil, key: payload})
}

// statusFor maps an error to its HTTP status and the message clients see.
// Internal errors never expose their text.
func statusFor(err error) (int, string) {
	msg, _ := common.ClientMessage(err)

	switch common.KindOf(err) {
	case common.ErrorNotFound:
		return http.StatusNotFound, msg
	case common.ErrorBadRequest:
		return http.StatusBadRequest, msg
	case common.ErrorUnauthorized:
		return http.StatusUnauthorized, msg
	case common.ErrorForbidden:
		return http.StatusForbidden, msg
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// fail writes the error envelope with a null payload under key.
func (h *Handler) fail(c *gin.Context, key string, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"status": status, "error": msg, key: nil})
}

func badRequest(msg string) error {
	return common.NewRequestError(common.ErrorBadRequest, msg)
}
