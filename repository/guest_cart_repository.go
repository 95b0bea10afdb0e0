package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/k-tong-dev/v0-elearning-sub007/models"

	"github.com/redis/go-redis/v9"
)

// GuestCartRepository stores one cart document per device in Redis. Carts
// expire after the configured TTL; an expired guest cart is simply gone.
type GuestCartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGuestCartRepository(client *redis.Client, ttl time.Duration) *GuestCartRepository {
	return &GuestCartRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *GuestCartRepository) getKey(ownerID string) string {
	return fmt.Sprintf("cart:guest:%s", ownerID)
}

func (r *GuestCartRepository) getCart(ctx context.Context, ownerID string) (*models.Cart, error) {
	data, err := r.client.Get(ctx, r.getKey(ownerID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GuestCartRepository) saveCart(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now()

	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, r.getKey(cart.OwnerID), data, r.ttl).Err()
}

func (r *GuestCartRepository) List(ctx context.Context, ownerID string) ([]models.CartItem, error) {
	cart, err := r.getCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return []models.CartItem{}, nil
	}
	return cart.Items, nil
}

// Add appends an item to the guest cart document. The cart subsystem is
// single writer per session, so read-modify-write is safe here.
func (r *GuestCartRepository) Add(ctx context.Context, ownerID string, item models.CartItem) error {
	cart, err := r.getCart(ctx, ownerID)
	if err != nil {
		return err
	}
	if cart == nil {
		cart = &models.Cart{OwnerID: ownerID, Items: []models.CartItem{}}
	}

	cart.Items = append(cart.Items, item)
	return r.saveCart(ctx, cart)
}

func (r *GuestCartRepository) Remove(ctx context.Context, ownerID string, courseKey string) error {
	cart, err := r.getCart(ctx, ownerID)
	if err != nil {
		return err
	}
	if cart == nil {
		return nil
	}

	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.CourseKey != courseKey {
			kept = append(kept, item)
		}
	}
	cart.Items = kept
	return r.saveCart(ctx, cart)
}

func (r *GuestCartRepository) Clear(ctx context.Context, ownerID string) error {
	return r.client.Del(ctx, r.getKey(ownerID)).Err()
}
