package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"devsecops_api/internal/models"
	"devsecops_api/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// ActivityResponse lists the caller's security events.
type ActivityResponse struct {
	Count  int            `json:"count" example:"1"`
	Events []models.Event `json:"events"`
}

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      Current user's security activity
// @Description  Filter by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). A date-only 'to' covers that whole day.
// @Tags         profile
// @Produce      json
// @Param        from  query     string  false  "Start of range"  example(2025-08-01)
// @Param        to    query     string  false  "End of range; date-only means end of day"  example(2025-08-31)
// @Param        type  query     string  false  "Event type"  Enums(REGISTER,LOGIN,PROFILE_UPDATE)
// @Success      200   {object}  ActivityResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/activity [get]
// @Security     BearerAuth
func (h *Handler) listActivity(c *gin.Context) {
	var (
		filter service.ActivityFilter
		err    error
	)
	filter.Type = c.Query("type")

	if qs := c.Query("from"); qs != "" {
		filter.From, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return
		}
	}
	if qs := c.Query("to"); qs != "" {
		filter.To, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return
		}
		if isDateOnly(qs) {
			filter.To = filter.To.Add(24*time.Hour - time.Nanosecond)
		}
	}

	userID := currentUserID(c)
	events, err := h.services.Activity.List(c.Request.Context(), userID, filter)
	if err != nil {
		h.respondServiceError(c, err, errFetchActivity, "activity_list_failed", "user_id", userID)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	c.JSON(http.StatusOK, ActivityResponse{Count: len(events), Events: events})
}

// recordActivity appends to the user's trail. Failures are logged and never
// fail the request that triggered them.
func (h *Handler) recordActivity(c *gin.Context, userID int64, typ, description string) {
	if h.services.Activity == nil {
		return
	}
	meta := map[string]any{
		"ip":         c.ClientIP(),
		"request_id": c.GetString(ctxRequestID),
	}
	if ua := c.Request.UserAgent(); ua != "" {
		meta["user_agent"] = ua
	}
	if err := h.services.Activity.Record(c.Request.Context(), userID, typ, description, meta); err != nil && h.log != nil {
		h.log.Warnw("activity_record_failed", "user_id", userID, "type", typ, "err", err)
	}
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
