package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextState(t *testing.T) {
	cases := []struct {
		name  string
		state TransactionState
		kind  EventKind
		want  TransactionState
		ok    bool
	}{
		{"pending succeeds", TransactionPending, EventChargeSucceeded, TransactionCompleted, true},
		{"pending fails", TransactionPending, EventChargeFailed, TransactionFailed, true},
		{"completed refunds", TransactionCompleted, EventChargeRefunded, TransactionRefunded, true},
		{"pending refund is noop", TransactionPending, EventChargeRefunded, TransactionPending, false},
		{"failed cannot complete", TransactionFailed, EventChargeSucceeded, TransactionFailed, false},
		{"refunded cannot complete", TransactionRefunded, EventChargeSucceeded, TransactionRefunded, false},
		{"completed replay is noop", TransactionCompleted, EventChargeSucceeded, TransactionCompleted, false},
		{"completed cannot fail", TransactionCompleted, EventChargeFailed, TransactionCompleted, false},
		{"refunded replay is noop", TransactionRefunded, EventChargeRefunded, TransactionRefunded, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			txn := &Transaction{State: tc.state}
			next, ok := txn.NextState(tc.kind)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, next)
		})
	}
}

func TestParseEventKind(t *testing.T) {
	assert.Equal(t, EventChargeSucceeded, ParseEventKind("payment_intent.succeeded"))
	assert.Equal(t, EventChargeFailed, ParseEventKind("payment_intent.payment_failed"))
	assert.Equal(t, EventChargeRefunded, ParseEventKind("charge.refunded"))
	assert.Equal(t, EventUnknown, ParseEventKind("customer.created"))
	assert.Equal(t, EventUnknown, ParseEventKind(""))
}
