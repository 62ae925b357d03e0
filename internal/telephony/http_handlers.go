package telephony

import (
	"errors"
	"net/http"

	"leadline-platform/internal/conversation"
	"leadline-platform/internal/notify"
	"leadline-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookHandlers converts Twilio webhooks to conversation events and
// writes TwiML. No conversation logic here.

type WebhookHandlers struct {
	Conversation *conversation.Service
	Registry     *conversation.Registry

	// Availability gates operator transfers. Nil means always available.
	Availability notify.AvailabilityStore

	SpeechActionURL    string
	OperatorNumber     string
	DialTimeoutSeconds int
}

func (h WebhookHandlers) renderConfig(c *gin.Context) RenderConfig {
	available := true
	if h.Availability != nil {
		ok, err := h.Availability.Available(c.Request.Context())
		if err != nil {
			// A broken store must not strand a caller mid-transfer.
			logger.FromGin(c).Warn("availability lookup failed, assuming available", "err", err)
		} else {
			available = ok
		}
	}
	return RenderConfig{
		SpeechActionURL:    h.SpeechActionURL,
		OperatorNumber:     h.OperatorNumber,
		OperatorAvailable:  available,
		DialTimeoutSeconds: h.DialTimeoutSeconds,
	}
}

// HandleVoiceInbound answers a new call with the greeting.
func (h WebhookHandlers) HandleVoiceInbound(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseVoiceInbound(c.Request)
	if err != nil {
		log.Warn("voice webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if form.CallSid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "CallSid required"})
		return
	}

	reply, err := h.Conversation.StartCall(c.Request.Context(), form.CallSid, form.From, form.To)
	if err != nil {
		log.Error("start call failed", "call_sid", form.CallSid, "err", err)
		h.writeFailure(c)
		return
	}
	h.writeReply(c, reply)
}

// HandleSpeech advances the conversation with a recognized utterance. A
// gather that timed out posts an empty SpeechResult; the caller is handed
// to the operator rather than looped forever.
func (h WebhookHandlers) HandleSpeech(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseSpeechResult(c.Request)
	if err != nil {
		log.Warn("speech webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if form.CallSid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "CallSid required"})
		return
	}

	if form.SpeechResult == "" {
		log.Info("no speech recognized", "call_sid", form.CallSid)
		h.writeFailure(c)
		return
	}

	reply, err := h.Conversation.HandleSpeech(c.Request.Context(), form.CallSid, form.SpeechResult, form.Confidence)
	if errors.Is(err, conversation.ErrSessionNotFound) {
		log.Warn("speech for unknown call", "call_sid", form.CallSid)
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown call"})
		return
	}
	if err != nil {
		log.Error("speech handling failed", "call_sid", form.CallSid, "err", err)
		h.writeFailure(c)
		return
	}
	h.writeReply(c, reply)
}

// HandleStatusCallback drops the session once Twilio reports a final call
// status.
func (h WebhookHandlers) HandleStatusCallback(c *gin.Context) {
	form, err := ParseVoiceInbound(c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if form.CallSid != "" && IsFinalCallStatus(form.CallStatus) {
		h.Registry.Remove(form.CallSid)
		logger.FromGin(c).Info("call ended", "call_sid", form.CallSid, "status", form.CallStatus)
	}
	c.Status(http.StatusNoContent)
}

// HandleInboundSMS serves the operator's availability commands.
func (h WebhookHandlers) HandleInboundSMS(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseSMSInbound(c.Request)
	if err != nil {
		log.Warn("sms webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	reply := notify.HandleStatusCommand(c.Request.Context(), h.Availability, form.From, form.Body)
	twiml, err := RenderMessage(reply)
	if err != nil {
		log.Error("message twiml render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}
	h.writeXML(c, twiml)
}

func (h WebhookHandlers) writeReply(c *gin.Context, reply conversation.Reply) {
	twiml, err := RenderReply(reply, h.renderConfig(c))
	if err != nil {
		logger.FromGin(c).Error("twiml render failed", "err", err)
		h.writeFailure(c)
		return
	}
	h.writeXML(c, twiml)
}

// writeFailure always answers 200 with spoken TwiML: a non-2xx response
// would make Twilio play its own error message to the caller.
func (h WebhookHandlers) writeFailure(c *gin.Context) {
	h.writeXML(c, RenderTechnicalFailure(h.renderConfig(c)))
}

func (h WebhookHandlers) writeXML(c *gin.Context, twiml string) {
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}
