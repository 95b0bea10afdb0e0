package repository

import (
	"context"

	"github.com/k-tong-dev/v0-elearning-sub007/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PayoutRepository interface {
	// Create inserts a pending payout. The unique index on
	// source_transaction_id makes a replayed insert a no-op.
	Create(ctx context.Context, payout *models.RevenuePayout) error
}

type gormPayoutRepo struct {
	db *gorm.DB
}

func NewGormPayoutRepo(db *gorm.DB) PayoutRepository {
	return &gormPayoutRepo{db: db}
}

func (r *gormPayoutRepo) Create(ctx context.Context, payout *models.RevenuePayout) error {
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_transaction_id"}},
			DoNothing: true,
		}).
		Create(payout).Error
}
