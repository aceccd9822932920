package ivr

import (
	"net/http"

	"results-hotline/internal/callflow"
	"results-hotline/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TurnWebhookHandler converts the Twilio voice webhook to a turn, delegates
// advancement to the call flow machine, and writes TwiML.
//
// No business logic here.

type TurnWebhookHandler struct {
	Machine *callflow.Machine

	// ActionPath is where the rendered Gather posts the next turn,
	// e.g. "/webhooks/twilio/turn".
	ActionPath string
}

func (h TurnWebhookHandler) HandleTurn(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Machine == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call flow not configured"})
		return
	}

	form, err := ParseTwilioTurn(c.Request)
	if err != nil {
		log.Warn("twilio webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if form.CallSid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "CallSid required"})
		return
	}

	reply, err := h.Machine.Turn(c.Request.Context(), callflow.TurnInput{
		CallID: form.CallSid,
		Digits: form.Digits,
		Prompt: c.Query("prompt"),
	})
	if err != nil {
		log.Error("turn failed", "call_sid", form.CallSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "turn failed"})
		return
	}

	twiml, err := RenderTurn(reply, h.ActionPath)
	if err != nil {
		log.Error("twiml render failed", "call_sid", form.CallSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}

	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}
