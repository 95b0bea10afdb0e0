package repository

import (
	"context"
	"time"

	"github.com/k-tong-dev/v0-elearning-sub007/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	// MarkCompleted moves a pending transaction to completed and returns the
	// number of rows changed. Zero rows means another delivery got there
	// first; the caller treats that as a no-op.
	MarkCompleted(ctx context.Context, id uuid.UUID, chargeRef string, eventBlob string, at time.Time) (int64, error)
	MarkFailed(ctx context.Context, id uuid.UUID, eventBlob string, at time.Time) (int64, error)
	MarkRefunded(ctx context.Context, id uuid.UUID, eventBlob string, at time.Time) (int64, error)
}

type gormTransactionRepo struct {
	db *gorm.DB
}

func NewGormTransactionRepo(db *gorm.DB) TransactionRepository {
	return &gormTransactionRepo{db: db}
}

func (r *gormTransactionRepo) Create(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *gormTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", id).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *gormTransactionRepo) MarkCompleted(ctx context.Context, id uuid.UUID, chargeRef string, eventBlob string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ? AND state = ?", id, models.TransactionPending).
		Updates(map[string]interface{}{
			"state":               models.TransactionCompleted,
			"provider_charge_ref": &chargeRef,
			"provider_event_blob": &eventBlob,
			"completed_at":        &at,
		})
	return res.RowsAffected, res.Error
}

func (r *gormTransactionRepo) MarkFailed(ctx context.Context, id uuid.UUID, eventBlob string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ? AND state = ?", id, models.TransactionPending).
		Updates(map[string]interface{}{
			"state":               models.TransactionFailed,
			"provider_event_blob": &eventBlob,
			"failed_at":           &at,
		})
	return res.RowsAffected, res.Error
}

func (r *gormTransactionRepo) MarkRefunded(ctx context.Context, id uuid.UUID, eventBlob string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ? AND state = ?", id, models.TransactionCompleted).
		Updates(map[string]interface{}{
			"state":               models.TransactionRefunded,
			"provider_event_blob": &eventBlob,
			"refunded_at":         &at,
		})
	return res.RowsAffected, res.Error
}
