package response

import (
	"errors"
	"net/http"
	"time"

	"wallet-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// Envelope is the uniform JSON body for every API response.
type Envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ErrorBody carries the stable error code and a human-readable message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success writes a 2xx envelope around data.
func Success(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{
		Success:   true,
		Data:      data,
		RequestID: requestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// Error maps err to its envelope. AppErrors carry their own status and
// code; anything else is surfaced as an opaque internal error so
// storage details never leak to clients.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.InternalError(err)
	}

	c.JSON(appErr.HTTPStatus, Envelope{
		Success: false,
		Error: &ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
		},
		RequestID: requestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// ValidationError is a shortcut for malformed request bodies.
func ValidationError(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Envelope{
		Success: false,
		Error: &ErrorBody{
			Code:    "VAL_001",
			Message: msg,
		},
		RequestID: requestID(c),
		Timestamp: time.Now().UTC(),
	})
}

func requestID(c *gin.Context) string {
	if id, ok := c.Get("request_id"); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
