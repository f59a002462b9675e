package handlers

import (
	"errors"
	"net/http"

	"devsecops_api/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidBody       = "Invalid request body"
	errUserExists        = "User already exists"
	errInvalidCredential = "Invalid credentials"
	errUserNotFound      = "User not found"

	errRegistration  = "Registration failed"
	errLogin         = "Login failed"
	errFetchProfile  = "Failed to fetch profile"
	errUpdateProfile = "Failed to update profile"
	errFetchUsers    = "Failed to fetch users"
	errFetchActivity = "Failed to fetch activity"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err, "request_id", c.GetString(ctxRequestID)}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// respondServiceError maps domain errors to their status; anything else is
// logged under logKey and answered with the route's generic 500 message.
func (h *Handler) respondServiceError(c *gin.Context, err error, fallback, logKey string, kv ...interface{}) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Reason})
	case errors.Is(err, service.ErrUserExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": errUserExists})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidCredential})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, fallback, logKey, err, kv...)
	}
}

// bindJSONOrBadRequest tries to bind the request body into dst and writes a
// 400 (or 413 for an oversize body) on failure.
// Returns false if the request was already handled (aborted), true otherwise.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": errBodyTooLarge})
			return false
		}
		if h.log != nil {
			h.log.Infow("bad_request_body", "path", c.Request.URL.Path, "err", err)
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return false
	}
	return true
}
