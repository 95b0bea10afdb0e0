package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is a single course held in a cart. UnitPrice is captured when the
// item is added and never re-read from the catalog afterwards.
type CartItem struct {
	EntryID    string    `json:"entry_id"`
	CourseID   string    `json:"course_id"`
	CourseKey  string    `json:"course_key"` // stable across catalog edits
	CourseName string    `json:"course_name"`
	UnitPrice  float64   `json:"unit_price"`
	AddedAt    time.Time `json:"added_at"`
}

// Cart is the guest cart document stored in Redis, one per device.
type Cart struct {
	OwnerID   string     `json:"owner_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// UserCartItem is a cart row owned by an authenticated user. The unique index
// on (user_id, course_key) enforces at most one entry per course.
type UserCartItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     string    `gorm:"type:varchar(64);uniqueIndex:idx_user_course;not null"`
	CourseKey  string    `gorm:"type:varchar(64);uniqueIndex:idx_user_course;not null"`
	CourseID   string    `gorm:"type:varchar(64);not null"`
	CourseName string    `gorm:"type:varchar(255)"`
	UnitPrice  float64   `gorm:"not null"`
	AddedAt    time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// Item converts a stored row back to the wire representation.
func (r *UserCartItem) Item() CartItem {
	return CartItem{
		EntryID:    r.ID.String(),
		CourseID:   r.CourseID,
		CourseKey:  r.CourseKey,
		CourseName: r.CourseName,
		UnitPrice:  r.UnitPrice,
		AddedAt:    r.AddedAt,
	}
}
