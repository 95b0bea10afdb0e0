package controllers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/k-tong-dev/v0-elearning-sub007/apperrors"
	"github.com/k-tong-dev/v0-elearning-sub007/controllers"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// ---- fakes ----

type fakeParser struct {
	event stripe.Event
	err   error
}

func (f *fakeParser) ParseWebhook(_ *http.Request) (stripe.Event, error) {
	return f.event, f.err
}

type fakeFulfill struct {
	succeededCalls int
	failedCalls    int
	refundedCalls  int
	lastTxnID      uuid.UUID
	lastChargeRef  string
	succeededErr   error
	refundedErr    error
}

func (f *fakeFulfill) HandleChargeSucceeded(_ context.Context, txnID uuid.UUID, chargeRef string, _ map[string]string, _ []byte) error {
	f.succeededCalls++
	f.lastTxnID = txnID
	f.lastChargeRef = chargeRef
	return f.succeededErr
}

func (f *fakeFulfill) HandleChargeFailed(_ context.Context, txnID uuid.UUID, _ []byte) error {
	f.failedCalls++
	f.lastTxnID = txnID
	return nil
}

func (f *fakeFulfill) HandleChargeRefunded(_ context.Context, txnID uuid.UUID, _ []byte) error {
	f.refundedCalls++
	f.lastTxnID = txnID
	return f.refundedErr
}

// ---- helpers ----

func stripeEvent(eventType, objectID string, metadata map[string]string) stripe.Event {
	obj := map[string]interface{}{"id": objectID, "metadata": metadata}
	raw, _ := json.Marshal(obj)
	return stripe.Event{
		ID:   "evt_test",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func postWebhook(parser *fakeParser, fulfill *fakeFulfill) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	wc := &controllers.WebhookController{
		Stripe:  parser,
		Fulfill: fulfill,
		Logger:  zap.NewNop(),
	}
	r.POST("/stripe/webhook", wc.StripeWebhook)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", strings.NewReader("{}"))
	r.ServeHTTP(w, req)
	return w
}

// ---- tests ----

func TestWebhook_InvalidSignatureRejected(t *testing.T) {
	parser := &fakeParser{err: fmt.Errorf("signature verification failed")}
	fulfill := &fakeFulfill{}

	w := postWebhook(parser, fulfill)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, fulfill.succeededCalls)
	assert.Zero(t, fulfill.failedCalls)
	assert.Zero(t, fulfill.refundedCalls)
}

func TestWebhook_UnknownEventKindAcknowledged(t *testing.T) {
	parser := &fakeParser{event: stripeEvent("customer.created", "cus_1", nil)}
	fulfill := &fakeFulfill{}

	w := postWebhook(parser, fulfill)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
	assert.Zero(t, fulfill.succeededCalls)
}

func TestWebhook_MissingTransactionRefAcknowledged(t *testing.T) {
	parser := &fakeParser{event: stripeEvent("payment_intent.succeeded", "pi_1", map[string]string{})}
	fulfill := &fakeFulfill{}

	w := postWebhook(parser, fulfill)

	// unprocessable, not retryable: there is no record to locate
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
	assert.Zero(t, fulfill.succeededCalls)
}

func TestWebhook_MalformedTransactionRefAcknowledged(t *testing.T) {
	parser := &fakeParser{event: stripeEvent("payment_intent.succeeded", "pi_1", map[string]string{"transaction_id": "not-a-uuid"})}
	fulfill := &fakeFulfill{}

	w := postWebhook(parser, fulfill)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, fulfill.succeededCalls)
}

func TestWebhook_ChargeSucceededDispatched(t *testing.T) {
	txnID := uuid.New()
	parser := &fakeParser{event: stripeEvent("payment_intent.succeeded", "pi_1", map[string]string{"transaction_id": txnID.String()})}
	fulfill := &fakeFulfill{}

	w := postWebhook(parser, fulfill)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, fulfill.succeededCalls)
	assert.Equal(t, txnID, fulfill.lastTxnID)
	assert.Equal(t, "pi_1", fulfill.lastChargeRef)
}

func TestWebhook_ChargeFailedDispatched(t *testing.T) {
	txnID := uuid.New()
	parser := &fakeParser{event: stripeEvent("payment_intent.payment_failed", "pi_1", map[string]string{"transaction_id": txnID.String()})}
	fulfill := &fakeFulfill{}

	w := postWebhook(parser, fulfill)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, fulfill.failedCalls)
}

func TestWebhook_ChargeRefundedDispatched(t *testing.T) {
	txnID := uuid.New()
	parser := &fakeParser{event: stripeEvent("charge.refunded", "ch_1", map[string]string{"transaction_id": txnID.String()})}
	fulfill := &fakeFulfill{}

	w := postWebhook(parser, fulfill)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, fulfill.refundedCalls)
}

func TestWebhook_PartialFulfillmentStillAcknowledged(t *testing.T) {
	txnID := uuid.New()
	parser := &fakeParser{event: stripeEvent("payment_intent.succeeded", "pi_1", map[string]string{"transaction_id": txnID.String()})}
	fulfill := &fakeFulfill{
		succeededErr: &apperrors.PartialFulfillmentError{
			TransactionID: txnID.String(),
			Failures:      []apperrors.StepFailure{{Step: "payout", Err: errors.New("down")}},
		},
	}

	w := postWebhook(parser, fulfill)

	// the transaction is completed; acknowledging prevents redelivery
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "received")
}

func TestWebhook_CriticalFailureRequestsRedelivery(t *testing.T) {
	txnID := uuid.New()
	parser := &fakeParser{event: stripeEvent("payment_intent.succeeded", "pi_1", map[string]string{"transaction_id": txnID.String()})}
	fulfill := &fakeFulfill{succeededErr: apperrors.ErrPersistence}

	w := postWebhook(parser, fulfill)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
