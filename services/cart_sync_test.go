package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/k-tong-dev/v0-elearning-sub007/apperrors"
	"github.com/k-tong-dev/v0-elearning-sub007/models"
	"github.com/k-tong-dev/v0-elearning-sub007/services"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func seedItem(backend *fakeCartBackend, ownerID, courseKey string, price float64) {
	backend.items[ownerID] = append(backend.items[ownerID], models.CartItem{
		EntryID:   courseKey + "-entry",
		CourseID:  "c-" + courseKey,
		CourseKey: courseKey,
		UnitPrice: price,
		AddedAt:   time.Now(),
	})
}

func TestSync_MergePreservesRemotePrice(t *testing.T) {
	guest := newFakeCartBackend()
	remote := newFakeCartBackend()
	seedItem(guest, "guest-1", "a", 9.99)
	seedItem(guest, "guest-1", "b", 19.99)
	seedItem(remote, "user-1", "b", 14.99)

	engine := services.NewCartSyncEngine(guest, remote, zap.NewNop())
	err := engine.Sync(context.Background(), "guest-1", "user-1")
	assert.NoError(t, err)

	merged := remote.items["user-1"]
	assert.Len(t, merged, 2)

	prices := map[string]float64{}
	for _, item := range merged {
		prices[item.CourseKey] = item.UnitPrice
	}
	assert.Equal(t, 9.99, prices["a"])
	// B keeps its original remote price, not the guest one
	assert.Equal(t, 14.99, prices["b"])

	// the guest cart is discarded after a full merge
	assert.Empty(t, guest.items["guest-1"])
}

func TestSync_EmptyLocalIsNoOp(t *testing.T) {
	guest := newFakeCartBackend()
	remote := newFakeCartBackend()
	seedItem(remote, "user-1", "b", 14.99)

	engine := services.NewCartSyncEngine(guest, remote, zap.NewNop())
	assert.NoError(t, engine.Sync(context.Background(), "guest-1", "user-1"))
	assert.Len(t, remote.items["user-1"], 1)
}

func TestSync_PartialFailureKeepsLocalAndIsRetryable(t *testing.T) {
	guest := newFakeCartBackend()
	remote := newFakeCartBackend()
	seedItem(guest, "guest-1", "a", 9.99)
	seedItem(guest, "guest-1", "b", 19.99)
	seedItem(remote, "user-1", "b", 14.99)
	remote.addErr = errors.New("postgres down")

	engine := services.NewCartSyncEngine(guest, remote, zap.NewNop())
	err := engine.Sync(context.Background(), "guest-1", "user-1")

	var partial *apperrors.PartialSyncError
	assert.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{"a"}, partial.PendingCourses)

	// local cart untouched, safe to re-invoke
	assert.Len(t, guest.items["guest-1"], 2)

	// backend recovers, the retry completes and does not duplicate b
	remote.addErr = nil
	assert.NoError(t, engine.Sync(context.Background(), "guest-1", "user-1"))
	assert.Len(t, remote.items["user-1"], 2)
	assert.Empty(t, guest.items["guest-1"])
}

func TestSync_OverlappingRunRejected(t *testing.T) {
	guest := newFakeCartBackend()
	remote := newFakeCartBackend()
	seedItem(guest, "guest-1", "a", 9.99)

	remote.addGate = make(chan struct{})
	remote.addStarted = make(chan struct{}, 1)

	engine := services.NewCartSyncEngine(guest, remote, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		done <- engine.Sync(context.Background(), "guest-1", "user-1")
	}()

	<-remote.addStarted // first run is now mid-merge

	err := engine.Sync(context.Background(), "guest-1", "user-1")
	assert.ErrorIs(t, err, apperrors.ErrSyncInFlight)

	close(remote.addGate)
	assert.NoError(t, <-done)
}
