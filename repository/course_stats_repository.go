package repository

import (
	"context"

	"github.com/k-tong-dev/v0-elearning-sub007/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseStatsRepository interface {
	// IncrementPurchase bumps the course's purchase count by one and its
	// revenue total by amount, creating the row on first purchase.
	IncrementPurchase(ctx context.Context, courseID string, amount float64) error
}

type gormCourseStatsRepo struct {
	db *gorm.DB
}

func NewGormCourseStatsRepo(db *gorm.DB) CourseStatsRepository {
	return &gormCourseStatsRepo{db: db}
}

func (r *gormCourseStatsRepo) IncrementPurchase(ctx context.Context, courseID string, amount float64) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "course_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"purchases": gorm.Expr("course_stats.purchases + 1"),
				"revenue":   gorm.Expr("course_stats.revenue + ?", amount),
			}),
		}).
		Create(&models.CourseStats{CourseID: courseID, Purchases: 1, Revenue: amount}).Error
}
