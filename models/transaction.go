package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionState is the lifecycle state of a purchase.
type TransactionState string

const (
	TransactionPending   TransactionState = "pending"
	TransactionCompleted TransactionState = "completed"
	TransactionFailed    TransactionState = "failed"
	TransactionRefunded  TransactionState = "refunded"
)

// EventKind is the closed set of payment provider events we consume.
type EventKind string

const (
	EventChargeSucceeded EventKind = "charge_succeeded"
	EventChargeFailed    EventKind = "charge_failed"
	EventChargeRefunded  EventKind = "charge_refunded"
	EventUnknown         EventKind = "unknown"
)

// ParseEventKind maps a Stripe event type onto our event kinds. Anything not
// listed is EventUnknown and is acknowledged without processing.
func ParseEventKind(stripeType string) EventKind {
	switch stripeType {
	case "payment_intent.succeeded":
		return EventChargeSucceeded
	case "payment_intent.payment_failed":
		return EventChargeFailed
	case "charge.refunded":
		return EventChargeRefunded
	default:
		return EventUnknown
	}
}

// Transaction is the durable record of one purchase attempt. Created by the
// checkout flow in pending state and mutated only by the fulfillment pipeline.
type Transaction struct {
	TransactionID      uuid.UUID        `gorm:"type:uuid;primaryKey"`
	UserID             string           `gorm:"type:varchar(64);index;not null"`
	CourseID           string           `gorm:"type:varchar(64);index;not null"`
	InstructorID       string           `gorm:"type:varchar(64)"`
	Amount             float64          `gorm:"not null"`
	Currency           string           `gorm:"type:varchar(10);not null"`
	State              TransactionState `gorm:"type:varchar(20);not null"`
	ProviderChargeRef  *string          `gorm:"type:varchar(255);index"`
	ProviderEventBlob  *string          `gorm:"type:jsonb"` // last applied event, for audit
	CompletedAt        *time.Time
	RefundedAt         *time.Time
	FailedAt           *time.Time
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

// NextState returns the state the transaction would move to for the given
// event kind. ok is false when the event is a no-op from the current state,
// which is what makes redelivered or out-of-order events safe to acknowledge.
func (t *Transaction) NextState(kind EventKind) (TransactionState, bool) {
	switch {
	case t.State == TransactionPending && kind == EventChargeSucceeded:
		return TransactionCompleted, true
	case t.State == TransactionPending && kind == EventChargeFailed:
		return TransactionFailed, true
	case t.State == TransactionCompleted && kind == EventChargeRefunded:
		return TransactionRefunded, true
	}
	return t.State, false
}

// IsPending returns true while the purchase has no terminal outcome yet.
func (t *Transaction) IsPending() bool { return t.State == TransactionPending }

// IsCompleted returns true once the charge succeeded and side effects ran.
func (t *Transaction) IsCompleted() bool { return t.State == TransactionCompleted }
