package repository

import (
	"context"
	"time"

	"github.com/k-tong-dev/v0-elearning-sub007/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserCartRepository stores cart rows for authenticated users in Postgres,
// one row per (user, course). Available from any device.
type UserCartRepository struct {
	db *gorm.DB
}

func NewUserCartRepository(db *gorm.DB) *UserCartRepository {
	return &UserCartRepository{db: db}
}

func (r *UserCartRepository) List(ctx context.Context, ownerID string) ([]models.CartItem, error) {
	var rows []models.UserCartItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("added_at asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]models.CartItem, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].Item())
	}
	return items, nil
}

// Add inserts a cart row. A conflicting (user, course) row is left untouched
// so an already-present course keeps its originally captured price.
func (r *UserCartRepository) Add(ctx context.Context, ownerID string, item models.CartItem) error {
	addedAt := item.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}

	row := models.UserCartItem{
		ID:         uuid.New(),
		UserID:     ownerID,
		CourseKey:  item.CourseKey,
		CourseID:   item.CourseID,
		CourseName: item.CourseName,
		UnitPrice:  item.UnitPrice,
		AddedAt:    addedAt,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_key"}},
			DoNothing: true,
		}).
		Create(&row).Error
}

func (r *UserCartRepository) Remove(ctx context.Context, ownerID string, courseKey string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND course_key = ?", ownerID, courseKey).
		Delete(&models.UserCartItem{}).Error
}

func (r *UserCartRepository) Clear(ctx context.Context, ownerID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Delete(&models.UserCartItem{}).Error
}
