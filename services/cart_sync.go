package services

import (
	"context"
	"sync"

	"github.com/k-tong-dev/v0-elearning-sub007/apperrors"
	"github.com/k-tong-dev/v0-elearning-sub007/repository"

	"go.uber.org/zap"
)

// CartSyncEngine merges a guest cart into a user's remote cart at sign-in.
// Merge resolution is by course identity only: a course already in the
// remote cart wins, keeping its originally captured price. There is no
// "newer" cart entry to prefer because a course is either bought or not.
type CartSyncEngine struct {
	guest    repository.CartBackend
	remote   repository.CartBackend
	inFlight sync.Map // userID -> struct{}
	logger   *zap.Logger
}

func NewCartSyncEngine(guest, remote repository.CartBackend, logger *zap.Logger) *CartSyncEngine {
	return &CartSyncEngine{
		guest:  guest,
		remote: remote,
		logger: logger,
	}
}

// Sync moves every guest item whose course is not yet in the remote cart
// over to it, then discards the guest cart. On partial failure the guest
// cart is kept and a PartialSyncError names the courses still pending; the
// whole operation is idempotent and safe to re-run. An overlapping sync for
// the same user is rejected with ErrSyncInFlight.
func (e *CartSyncEngine) Sync(ctx context.Context, guestID, userID string) error {
	if _, running := e.inFlight.LoadOrStore(userID, struct{}{}); running {
		return apperrors.ErrSyncInFlight
	}
	defer e.inFlight.Delete(userID)

	local, err := e.guest.List(ctx, guestID)
	if err != nil {
		return apperrors.ErrPersistence.With(err)
	}
	if len(local) == 0 {
		return nil
	}

	remote, err := e.remote.List(ctx, userID)
	if err != nil {
		return apperrors.ErrPersistence.With(err)
	}

	present := make(map[string]bool, len(remote))
	for _, item := range remote {
		present[item.CourseKey] = true
	}

	var pending []string
	for _, item := range local {
		if present[item.CourseKey] {
			// already owned remotely, drop silently with its remote price intact
			continue
		}
		if err := e.remote.Add(ctx, userID, item); err != nil {
			e.logger.Warn("Failed to merge cart item",
				zap.String("user_id", userID),
				zap.String("course_key", item.CourseKey),
				zap.Error(err),
			)
			pending = append(pending, item.CourseKey)
		}
	}

	if len(pending) > 0 {
		return &apperrors.PartialSyncError{PendingCourses: pending}
	}

	if err := e.guest.Clear(ctx, guestID); err != nil {
		// items are all remote already; a re-run will skip them as present
		return apperrors.ErrPersistence.With(err)
	}

	e.logger.Info("Guest cart merged",
		zap.String("user_id", userID),
		zap.Int("items", len(local)),
	)
	return nil
}
