// Package api implements the HTTP surface: search and click endpoints,
// crawl administration and monitoring, health, and metrics exposition.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the structured error payload for all endpoints.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}

// parseLimit parses the limit query param, clamping to [1, maxLimit].
func parseLimit(c *gin.Context, defaultLimit, maxLimit int) int {
	limitStr := c.DefaultQuery("limit", strconv.Itoa(defaultLimit))

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		return defaultLimit
	}

	if limit > maxLimit {
		return maxLimit
	}

	return limit
}

// respondError sends a structured JSON error response.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Timestamp: time.Now(),
	})
}

// respondBadRequest sends a 400 with message.
func respondBadRequest(c *gin.Context, code, message string) {
	respondError(c, http.StatusBadRequest, code, message)
}

// respondInternalError sends a 500 with message.
func respondInternalError(c *gin.Context, code, message string) {
	respondError(c, http.StatusInternalServerError, code, message)
}
