package repository

import (
	"context"

	"github.com/k-tong-dev/v0-elearning-sub007/models"
)

// CartBackend abstracts where a cart lives. The guest variant is device
// scoped (Redis, TTL); the user variant is identity scoped (Postgres rows).
// The cart store depends only on this interface, never on which variant is
// active.
type CartBackend interface {
	List(ctx context.Context, ownerID string) ([]models.CartItem, error)
	Add(ctx context.Context, ownerID string, item models.CartItem) error
	Remove(ctx context.Context, ownerID string, courseKey string) error
	Clear(ctx context.Context, ownerID string) error
}
