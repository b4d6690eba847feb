package httpkit

import (
	"net/http"

	"hirelocal_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// HandleError maps domain errors to HTTP responses. Detail fields of an
// *apperr.Error are also lifted to the top level of the body so clients can
// branch on flags such as needsSubscription or errorType directly.
// Returns true if an error was written.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	domainErr, ok := apperr.As(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		_ = c.Error(err)
		return true
	}

	status := domainErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, ErrorResponse{Error: "internal server error"})
		return true
	}

	body := gin.H{"error": domainErr.Message}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
		for k, v := range domainErr.Details {
			if _, taken := body[k]; !taken {
				body[k] = v
			}
		}
	}
	c.JSON(status, body)
	return true
}
