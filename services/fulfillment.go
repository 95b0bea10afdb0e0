package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/k-tong-dev/v0-elearning-sub007/apperrors"
	"github.com/k-tong-dev/v0-elearning-sub007/awsx"
	"github.com/k-tong-dev/v0-elearning-sub007/models"
	"github.com/k-tong-dev/v0-elearning-sub007/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FulfillmentService applies the side effects of a transaction's lifecycle
// events. Marking the transaction is the critical step: failing it makes the
// event redeliverable. Everything after it is best effort and never rolled
// back, with one exception in severity: a missed enrollment is alert-worthy,
// a missed payout is an auditable gap.
type FulfillmentService struct {
	txns       repository.TransactionRepository
	enrolls    repository.EnrollmentRepository
	payouts    repository.PayoutRepository
	stats      repository.CourseStatsRepository
	events     awsx.SNSPublisher
	topicARN   string
	feePercent float64
	logger     *zap.Logger
}

func NewFulfillmentService(
	txns repository.TransactionRepository,
	enrolls repository.EnrollmentRepository,
	payouts repository.PayoutRepository,
	stats repository.CourseStatsRepository,
	events awsx.SNSPublisher,
	topicARN string,
	feePercent float64,
	logger *zap.Logger,
) *FulfillmentService {
	return &FulfillmentService{
		txns:       txns,
		enrolls:    enrolls,
		payouts:    payouts,
		stats:      stats,
		events:     events,
		topicARN:   topicARN,
		feePercent: feePercent,
		logger:     logger,
	}
}

func (s *FulfillmentService) loadTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	txn, err := s.txns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound.With(err)
		}
		return nil, apperrors.ErrPersistence.With(err)
	}
	return txn, nil
}

// HandleChargeSucceeded drives the pending -> completed transition and the
// fulfillment that hangs off it. A transaction already past pending makes the
// whole call a no-op, which is what lets the provider redeliver freely.
func (s *FulfillmentService) HandleChargeSucceeded(ctx context.Context, txnID uuid.UUID, chargeRef string, meta map[string]string, rawEvent []byte) error {
	txn, err := s.loadTransaction(ctx, txnID)
	if err != nil {
		return err
	}

	if _, ok := txn.NextState(models.EventChargeSucceeded); !ok {
		s.logger.Info("Skipping charge-succeeded for non-pending transaction",
			zap.String("transaction_id", txnID.String()),
			zap.String("state", string(txn.State)),
		)
		return nil
	}

	now := time.Now()
	rows, err := s.txns.MarkCompleted(ctx, txnID, chargeRef, string(rawEvent), now)
	if err != nil {
		return apperrors.ErrPersistence.With(err)
	}
	if rows == 0 {
		// a concurrent delivery won the transition
		s.logger.Info("Transaction already completed by concurrent delivery",
			zap.String("transaction_id", txnID.String()),
		)
		return nil
	}

	var failures []apperrors.StepFailure

	userID := fallback(txn.UserID, meta["user_id"])
	courseID := fallback(txn.CourseID, meta["course_id"])
	instructorID := fallback(txn.InstructorID, meta["instructor_id"])

	if userID == "" || courseID == "" {
		s.logger.Warn("Skipping enrollment, user or course unknown",
			zap.String("transaction_id", txnID.String()),
		)
	} else if err := s.ensureEnrollment(ctx, userID, courseID); err != nil {
		// access grant is the one post-completion step that must not stay missing
		s.logger.Error("Enrollment grant failed, needs retry",
			zap.String("transaction_id", txnID.String()),
			zap.String("user_id", userID),
			zap.String("course_id", courseID),
			zap.Error(err),
		)
		failures = append(failures, apperrors.StepFailure{Step: "enrollment", Err: err})
	}

	if courseID != "" {
		if err := s.stats.IncrementPurchase(ctx, courseID, txn.Amount); err != nil {
			s.logger.Warn("Course stats update failed",
				zap.String("transaction_id", txnID.String()),
				zap.Error(err),
			)
			failures = append(failures, apperrors.StepFailure{Step: "course_stats", Err: err})
		}
	}

	if instructorID == "" {
		s.logger.Warn("Skipping payout, instructor unknown",
			zap.String("transaction_id", txnID.String()),
		)
	} else {
		payout := &models.RevenuePayout{
			InstructorID:        instructorID,
			Amount:              txn.Amount * (1 - s.feePercent/100),
			Currency:            txn.Currency,
			State:               models.PayoutPending,
			SourceTransactionID: txnID,
		}
		if err := s.payouts.Create(ctx, payout); err != nil {
			s.logger.Warn("Payout record creation failed",
				zap.String("transaction_id", txnID.String()),
				zap.Error(err),
			)
			failures = append(failures, apperrors.StepFailure{Step: "payout", Err: err})
		}
	}

	s.publishEvent(ctx, "payment_succeeded", txn, userID, courseID, instructorID, now)

	if len(failures) > 0 {
		perr := &apperrors.PartialFulfillmentError{TransactionID: txnID.String(), Failures: failures}
		s.logger.Error("Fulfillment completed with partial failures",
			zap.String("transaction_id", txnID.String()),
			zap.Int("failed_steps", len(failures)),
		)
		return perr
	}
	return nil
}

// HandleChargeFailed records a failed charge for a still-pending transaction.
func (s *FulfillmentService) HandleChargeFailed(ctx context.Context, txnID uuid.UUID, rawEvent []byte) error {
	txn, err := s.loadTransaction(ctx, txnID)
	if err != nil {
		return err
	}

	if _, ok := txn.NextState(models.EventChargeFailed); !ok {
		s.logger.Info("Skipping charge-failed for non-pending transaction",
			zap.String("transaction_id", txnID.String()),
			zap.String("state", string(txn.State)),
		)
		return nil
	}

	now := time.Now()
	if _, err := s.txns.MarkFailed(ctx, txnID, string(rawEvent), now); err != nil {
		return apperrors.ErrPersistence.With(err)
	}

	s.publishEvent(ctx, "payment_failed", txn, txn.UserID, txn.CourseID, txn.InstructorID, now)
	return nil
}

// HandleChargeRefunded records the refund timestamp on a completed
// transaction. Enrollment is deliberately not revoked here: pulling access
// after a refund is an administrative decision.
func (s *FulfillmentService) HandleChargeRefunded(ctx context.Context, txnID uuid.UUID, rawEvent []byte) error {
	txn, err := s.loadTransaction(ctx, txnID)
	if err != nil {
		return err
	}

	if _, ok := txn.NextState(models.EventChargeRefunded); !ok {
		s.logger.Info("Skipping refund for transaction not in completed state",
			zap.String("transaction_id", txnID.String()),
			zap.String("state", string(txn.State)),
		)
		return nil
	}

	now := time.Now()
	if _, err := s.txns.MarkRefunded(ctx, txnID, string(rawEvent), now); err != nil {
		return apperrors.ErrPersistence.With(err)
	}

	s.publishEvent(ctx, "payment_refunded", txn, txn.UserID, txn.CourseID, txn.InstructorID, now)
	return nil
}

func (s *FulfillmentService) ensureEnrollment(ctx context.Context, userID, courseID string) error {
	// the course may already be owned through another path, e.g. an earlier
	// purchase under a different transaction
	exists, err := s.enrolls.Exists(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Info("Enrollment already present, skipping grant",
			zap.String("user_id", userID),
			zap.String("course_id", courseID),
		)
		return nil
	}

	return s.enrolls.Create(ctx, &models.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		GrantedVia: "purchase",
	})
}

func (s *FulfillmentService) publishEvent(ctx context.Context, eventType string, txn *models.Transaction, userID, courseID, instructorID string, at time.Time) {
	if s.events == nil || s.topicARN == "" {
		return
	}

	msg, err := json.Marshal(models.FulfillmentEvent{
		Type:          eventType,
		TransactionID: txn.TransactionID.String(),
		UserID:        userID,
		CourseID:      courseID,
		InstructorID:  instructorID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Timestamp:     at.UTC(),
	})
	if err != nil {
		return
	}

	if err := s.events.Publish(ctx, s.topicARN, msg); err != nil {
		s.logger.Warn("Failed to publish fulfillment event",
			zap.String("transaction_id", txn.TransactionID.String()),
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}

func fallback(primary, secondary string) string {
	if primary != "" {
		return primary
	}
	return secondary
}
