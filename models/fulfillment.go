package models

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment grants a user access to a course. The unique index on
// (user_id, course_id) is the central idempotency guard of the pipeline:
// replayed or concurrent fulfillment can never grant access twice.
type Enrollment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     string    `gorm:"type:varchar(64);uniqueIndex:idx_enroll_user_course;not null"`
	CourseID   string    `gorm:"type:varchar(64);uniqueIndex:idx_enroll_user_course;not null"`
	GrantedVia string    `gorm:"type:varchar(32);not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// PayoutState is the lifecycle of an instructor payout. Only pending is
// created here; settlement is a separate operational process.
type PayoutState string

const PayoutPending PayoutState = "pending"

// RevenuePayout records the instructor's share of one completed transaction.
// Best effort: a missing payout is an auditable gap, never a reason to fail
// the payment acknowledgment.
type RevenuePayout struct {
	ID                  uuid.UUID   `gorm:"type:uuid;primaryKey"`
	InstructorID        string      `gorm:"type:varchar(64);index;not null"`
	Amount              float64     `gorm:"not null"`
	Currency            string      `gorm:"type:varchar(10);not null"`
	State               PayoutState `gorm:"type:varchar(20);not null"`
	SourceTransactionID uuid.UUID   `gorm:"type:uuid;uniqueIndex;not null"`
	CreatedAt           time.Time   `gorm:"autoCreateTime"`
}

// CourseStats aggregates purchases and revenue per course.
type CourseStats struct {
	CourseID  string    `gorm:"type:varchar(64);primaryKey"`
	Purchases int64     `gorm:"not null"`
	Revenue   float64   `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// FulfillmentEvent is the message published to SNS after fulfillment steps
// run, mirroring the transaction the event belongs to.
type FulfillmentEvent struct {
	Type          string    `json:"type"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	CourseID      string    `json:"course_id"`
	InstructorID  string    `json:"instructor_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
}
