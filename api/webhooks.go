package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/SwiftFiat/NexaWallet-Backend/api/apistrings"
	models "github.com/SwiftFiat/NexaWallet-Backend/api/models"
	"github.com/SwiftFiat/NexaWallet-Backend/middleware"
	basemodels "github.com/SwiftFiat/NexaWallet-Backend/models"
	"github.com/SwiftFiat/NexaWallet-Backend/providers/payscribe"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxWebhookBody = 1 << 20

type Webhooks struct {
	server *Server
}

func (h Webhooks) router(server *Server) {
	h.server = server

	// Authenticated by signature, not by token
	server.router.POST(middleware.WebhookPath, h.payscribe)
}

func (h *Webhooks) payscribe(ctx *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, basemodels.NewCodedError("INVALID_REQUEST", apistrings.InvalidWebhookPayload))
		return
	}

	if !payscribe.VerifySignature(h.server.config.WebhookSecret, body, ctx.GetHeader(payscribe.SignatureHeader)) {
		h.server.logger.WithField("ip", ctx.ClientIP()).Warn("webhook signature rejected")
		ctx.JSON(http.StatusForbidden, basemodels.NewCodedError("FORBIDDEN", apistrings.InvalidSignature))
		return
	}

	var payload payscribe.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		ctx.JSON(http.StatusBadRequest, basemodels.NewCodedError("INVALID_REQUEST", apistrings.InvalidWebhookPayload, err.Error()))
		return
	}

	ev, err := payload.ToEvent(body)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, basemodels.NewCodedError("INVALID_REQUEST", apistrings.InvalidWebhookPayload, err.Error()))
		return
	}
	ctx.Set(middleware.EntityKey, ev.Reference)

	outcome, err := h.server.reconciler.HandleEvent(ctx.Request.Context(), ev)
	if err != nil {
		h.server.respondError(ctx, err)
		return
	}

	h.server.logger.WithFields(logrus.Fields{
		"event_id":  ev.EventID,
		"reference": outcome.TransactionReference,
		"note":      outcome.Note,
	}).Info("webhook processed")
	ctx.JSON(http.StatusOK, basemodels.NewSuccess("Event Processed", models.ToWebhookAckResponse(outcome)))
}
