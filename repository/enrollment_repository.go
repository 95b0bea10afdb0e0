package repository

import (
	"context"

	"github.com/k-tong-dev/v0-elearning-sub007/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentRepository interface {
	Exists(ctx context.Context, userID, courseID string) (bool, error)
	// Create inserts an enrollment; a concurrent insert for the same
	// (user, course) pair is silently a no-op thanks to the unique index.
	Create(ctx context.Context, enrollment *models.Enrollment) error
}

type gormEnrollmentRepo struct {
	db *gorm.DB
}

func NewGormEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &gormEnrollmentRepo{db: db}
}

func (r *gormEnrollmentRepo) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	return count > 0, err
}

func (r *gormEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == uuid.Nil {
		enrollment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(enrollment).Error
}
