package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Exception is the failure response body
type Exception struct {
	Status  int    `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// Success writes data with 200
func Success(c *gin.Context, data any) {
	WithStatusCode(c, http.StatusOK, data)
}

// WithStatusCode writes data with a custom status code
func WithStatusCode(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// Fail writes a failure response
func Fail(c *gin.Context, e *Exception) {
	if e == nil {
		e = &Exception{Status: http.StatusInternalServerError, Message: "server error"}
	}
	if e.Status == 0 {
		e.Status = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(e.Status, e)
}

// BadRequest builds a 400 exception
func BadRequest(message string, errs ...any) *Exception {
	e := &Exception{Status: http.StatusBadRequest, Message: message}
	if len(errs) > 0 {
		e.Errors = errs[0]
	}
	return e
}

// InternalServer builds a 500 exception
func InternalServer(message string) *Exception {
	return &Exception{Status: http.StatusInternalServerError, Message: message}
}
