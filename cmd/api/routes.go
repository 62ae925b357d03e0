package main

import (
	"database/sql"
	"net/http"
	"time"

	"leadline-platform/internal/config"
	"leadline-platform/internal/conversation"
	"leadline-platform/internal/httpapi"
	"leadline-platform/internal/leads"
	"leadline-platform/internal/metrics"
	"leadline-platform/internal/notify"
	"leadline-platform/internal/telephony"
	"leadline-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	cfg          config.Config
	db           *sql.DB
	conversation *conversation.Service
	registry     *conversation.Registry
	availability notify.AvailabilityStore
	recorder     *metrics.Recorder
	archive      leads.Repository
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, deps routeDeps) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), deps.db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider webhooks (public).
	// NOTE: These endpoints should be protected by Twilio signature validation in production.
	webhooks := telephony.WebhookHandlers{
		Conversation:    deps.conversation,
		Registry:        deps.registry,
		Availability:    deps.availability,
		SpeechActionURL: "/webhooks/voice/speech",
		OperatorNumber:  deps.cfg.Business.OperatorNumber,
	}
	voice := r.Group("/webhooks/voice")
	{
		voice.POST("/inbound", webhooks.HandleVoiceInbound)
		voice.POST("/speech", webhooks.HandleSpeech)
		voice.POST("/status", webhooks.HandleStatusCallback)
	}
	r.POST("/webhooks/sms/inbound", webhooks.HandleInboundSMS)

	// Operational API. Served on the internal network; no tenant auth, this
	// deployment answers for a single business.
	api := httpapi.Handlers{
		Metrics:  deps.recorder,
		Leads:    deps.archive,
		Sessions: deps.registry,
	}
	v1 := r.Group("/v1")
	{
		v1.GET("/analytics", api.GetAnalytics)
		v1.GET("/leads/recent", api.GetRecentLeads)
		v1.GET("/calls/:call_sid", api.GetCall)
	}
}
