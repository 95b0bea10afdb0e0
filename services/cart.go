package services

import (
	"context"
	"time"

	"github.com/k-tong-dev/v0-elearning-sub007/apperrors"
	"github.com/k-tong-dev/v0-elearning-sub007/models"
	"github.com/k-tong-dev/v0-elearning-sub007/repository"

	"github.com/google/uuid"
)

// CartStore is the authoritative in-memory view of one session's cart.
// Every mutation persists through the backend before the in-memory view is
// committed; a failed write leaves memory untouched, so the view never gets
// ahead of storage. Callers serialize mutations per session.
type CartStore struct {
	backend repository.CartBackend
	ownerID string
	items   []models.CartItem
	loaded  bool
}

func NewCartStore(backend repository.CartBackend, ownerID string) *CartStore {
	return &CartStore{backend: backend, ownerID: ownerID}
}

func (s *CartStore) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	items, err := s.backend.List(ctx, s.ownerID)
	if err != nil {
		return apperrors.ErrPersistence.With(err)
	}
	s.items = items
	s.loaded = true
	return nil
}

// Items returns the current cart contents.
func (s *CartStore) Items(ctx context.Context) ([]models.CartItem, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s.items, nil
}

// Contains reports whether the course is already in the cart.
func (s *CartStore) Contains(ctx context.Context, courseKey string) (bool, error) {
	if err := s.load(ctx); err != nil {
		return false, err
	}
	for _, item := range s.items {
		if item.CourseKey == courseKey {
			return true, nil
		}
	}
	return false, nil
}

// Add appends the course with its price captured now. Adding a course that
// is already present returns ErrDuplicateItem; the caller reports it as a
// warning, not a failure.
func (s *CartStore) Add(ctx context.Context, course *Course) (*models.CartItem, error) {
	present, err := s.Contains(ctx, course.CourseKey)
	if err != nil {
		return nil, err
	}
	if present {
		return nil, apperrors.ErrDuplicateItem
	}

	item := models.CartItem{
		EntryID:    uuid.NewString(),
		CourseID:   course.ID,
		CourseKey:  course.CourseKey,
		CourseName: course.Name,
		UnitPrice:  course.Price,
		AddedAt:    time.Now(),
	}

	if err := s.backend.Add(ctx, s.ownerID, item); err != nil {
		return nil, apperrors.ErrPersistence.With(err)
	}

	s.items = append(s.items, item)
	return &item, nil
}

// Remove drops the course from the cart. Removing an absent course is a no-op.
func (s *CartStore) Remove(ctx context.Context, courseKey string) error {
	present, err := s.Contains(ctx, courseKey)
	if err != nil {
		return err
	}
	if !present {
		return nil
	}

	if err := s.backend.Remove(ctx, s.ownerID, courseKey); err != nil {
		return apperrors.ErrPersistence.With(err)
	}

	kept := s.items[:0]
	for _, item := range s.items {
		if item.CourseKey != courseKey {
			kept = append(kept, item)
		}
	}
	s.items = kept
	return nil
}

// Clear empties the cart.
func (s *CartStore) Clear(ctx context.Context) error {
	if err := s.load(ctx); err != nil {
		return err
	}

	if err := s.backend.Clear(ctx, s.ownerID); err != nil {
		return apperrors.ErrPersistence.With(err)
	}

	s.items = nil
	return nil
}

// Total sums the captured per-item prices. Zero for an empty cart.
func (s *CartStore) Total(ctx context.Context) (float64, error) {
	if err := s.load(ctx); err != nil {
		return 0, err
	}

	var total float64
	for _, item := range s.items {
		total += item.UnitPrice
	}
	return total, nil
}
