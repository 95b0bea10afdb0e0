package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/k-tong-dev/v0-elearning-sub007/apperrors"
	"github.com/k-tong-dev/v0-elearning-sub007/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// WebhookParser verifies and decodes an incoming provider notification.
type WebhookParser interface {
	ParseWebhook(r *http.Request) (stripe.Event, error)
}

// FulfillmentHandler applies the side effects for each event kind.
type FulfillmentHandler interface {
	HandleChargeSucceeded(ctx context.Context, txnID uuid.UUID, chargeRef string, meta map[string]string, rawEvent []byte) error
	HandleChargeFailed(ctx context.Context, txnID uuid.UUID, rawEvent []byte) error
	HandleChargeRefunded(ctx context.Context, txnID uuid.UUID, rawEvent []byte) error
}

type WebhookController struct {
	Stripe  WebhookParser
	Fulfill FulfillmentHandler
	Logger  *zap.Logger
}

// eventObject is the slice of the event payload we care about: the provider
// object's id and the metadata stamped on it at checkout.
type eventObject struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// StripeWebhook receives and dispatches Stripe webhook events. Deliveries are
// at-least-once: every path through here either acknowledges (duplicate,
// no-op, unprocessable) or fails the request so the provider redelivers.
func (wc *WebhookController) StripeWebhook(c *gin.Context) {
	event, err := wc.Stripe.ParseWebhook(c.Request)
	if err != nil {
		wc.Logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	kind := models.ParseEventKind(string(event.Type))
	wc.Logger.Info("Processing Stripe webhook",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
		zap.String("kind", string(kind)),
	)

	if kind == models.EventUnknown {
		wc.Logger.Warn("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	var obj eventObject
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		wc.Logger.Error("Failed to unmarshal event object", zap.String("event_id", event.ID), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	txnID, err := transactionIDFrom(obj.Metadata)
	if err != nil {
		// no way to locate the record this event refers to; retrying cannot help
		wc.Logger.Warn("Unprocessable webhook event, no transaction reference",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	rawEvent, _ := json.Marshal(event)
	ctx := c.Request.Context()

	switch kind {
	case models.EventChargeSucceeded:
		err = wc.Fulfill.HandleChargeSucceeded(ctx, txnID, obj.ID, obj.Metadata, rawEvent)
	case models.EventChargeFailed:
		err = wc.Fulfill.HandleChargeFailed(ctx, txnID, rawEvent)
	case models.EventChargeRefunded:
		err = wc.Fulfill.HandleChargeRefunded(ctx, txnID, rawEvent)
	}

	if err != nil {
		var partial *apperrors.PartialFulfillmentError
		if errors.As(err, &partial) {
			// the transaction is durably completed; acknowledging stops the
			// provider from re-sending an event whose principal effect already
			// happened. The failed steps are recovered out of band.
			wc.Logger.Error("Acknowledging webhook despite partial fulfillment",
				zap.String("transaction_id", partial.TransactionID),
				zap.Int("failed_steps", len(partial.Failures)),
			)
			c.JSON(http.StatusOK, gin.H{"status": "received"})
			return
		}

		wc.Logger.Error("Webhook processing failed, requesting redelivery",
			zap.String("event_id", event.ID),
			zap.String("transaction_id", txnID.String()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func transactionIDFrom(metadata map[string]string) (uuid.UUID, error) {
	ref := metadata["transaction_id"]
	if ref == "" {
		return uuid.Nil, apperrors.ErrUnprocessableEvent
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return uuid.Nil, apperrors.ErrUnprocessableEvent.With(err)
	}
	return id, nil
}
