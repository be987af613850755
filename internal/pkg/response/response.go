package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON envelope for every failed request.
type ErrorBody struct {
	Error string `json:"error"`
}

// OK sends a 200 response. Slices are written as bare JSON arrays.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error aborts the request with status and a {error: message} body.
func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: message})
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Not Found")
}

// MethodNotAllowed sends a 405 error response.
func MethodNotAllowed(c *gin.Context) {
	Error(c, http.StatusMethodNotAllowed, "Method Not Allowed")
}

// TooManyRequests sends a 429 error response.
func TooManyRequests(c *gin.Context) {
	c.Header("Retry-After", "1")
	Error(c, http.StatusTooManyRequests, "Too many requests, slow down")
}

// InternalError sends a 500 error response with a caller-facing message.
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}
