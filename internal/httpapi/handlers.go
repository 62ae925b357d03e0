package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"leadline-platform/internal/conversation"
	"leadline-platform/internal/leads"
	"leadline-platform/internal/metrics"
	"leadline-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Metrics  *metrics.Recorder
	Leads    leads.Repository
	Sessions *conversation.Registry

	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// --- Analytics ---

// GetAnalytics serves the operational dashboard. The type query parameter
// selects one view; omitting it returns the overview with all of them.
func (h Handlers) GetAnalytics(c *gin.Context) {
	if h.Metrics == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "metrics not configured"})
		return
	}

	tr, ok := parseTimeRange(c)
	if !ok {
		return
	}

	switch c.Query("type") {
	case "performance":
		c.JSON(http.StatusOK, h.Metrics.GetPerformanceStats(tr))
	case "users":
		c.JSON(http.StatusOK, h.Metrics.GetUserStats())
	case "system":
		c.JSON(http.StatusOK, h.Metrics.GetSystemHealth())
	case "calls":
		userID := c.Query("user_id")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id required for type=calls"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"calls": h.Metrics.GetCallMetrics(userID, tr)})
	case "":
		c.JSON(http.StatusOK, gin.H{
			"performance":  h.Metrics.GetPerformanceStats(tr),
			"users":        h.Metrics.GetUserStats(),
			"system":       h.Metrics.GetSystemHealth(),
			"recent_calls": h.Metrics.RecentCalls(10),
		})
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown analytics type"})
	}
}

// parseTimeRange reads optional RFC 3339 from/to query parameters. A nil
// range means unbounded. Replies 400 itself and returns ok=false on bad
// input.
func parseTimeRange(c *gin.Context) (*metrics.TimeRange, bool) {
	fromRaw, toRaw := c.Query("from"), c.Query("to")
	if fromRaw == "" && toRaw == "" {
		return nil, true
	}

	var tr metrics.TimeRange
	if fromRaw != "" {
		from, err := time.Parse(time.RFC3339, fromRaw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp"})
			return nil, false
		}
		tr.From = from
	}
	if toRaw != "" {
		to, err := time.Parse(time.RFC3339, toRaw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp"})
			return nil, false
		}
		tr.To = to
	}
	return &tr, true
}

// --- Leads ---

func (h Handlers) GetRecentLeads(c *gin.Context) {
	if h.Leads == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lead archive not configured"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be 1-200"})
			return
		}
		limit = n
	}

	recent, err := h.Leads.ListRecent(c.Request.Context(), limit)
	if err != nil {
		logger.FromGin(c).Error("lead listing failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lead lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": recent})
}

// --- Live calls ---

func (h Handlers) GetCall(c *gin.Context) {
	if h.Sessions == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "sessions not configured"})
		return
	}

	callSid := c.Param("call_sid")
	sess, err := h.Sessions.Get(callSid)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown call"})
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot(h.now()))
}
