package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Error   any  `json:"error,omitempty"`
}

// RespondSuccess sends a success response
func RespondSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondError sends an error response. err may be a string or a raw JSON
// payload passed through from the authority.
func RespondError(c *gin.Context, statusCode int, err any) {
	c.JSON(statusCode, Response{
		Success: false,
		Error:   err,
	})
}
