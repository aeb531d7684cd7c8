package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Obel-arg/catch-influencer-sub003/internal/session"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// sessionErrorStatus maps store errors onto HTTP statuses.
func sessionErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "Session not found"
	case errors.Is(err, session.ErrConflict):
		return http.StatusConflict, "Session was modified concurrently, retry"
	default:
		return http.StatusInternalServerError, "Session store error"
	}
}

// upstreamErrorStatus maps collaborator failures onto HTTP statuses.
func upstreamErrorStatus(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
