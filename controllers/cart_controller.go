package controllers

import (
	"errors"
	"net/http"

	"github.com/k-tong-dev/v0-elearning-sub007/apperrors"
	"github.com/k-tong-dev/v0-elearning-sub007/middleware"
	"github.com/k-tong-dev/v0-elearning-sub007/repository"
	"github.com/k-tong-dev/v0-elearning-sub007/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CartController struct {
	Guest   repository.CartBackend
	User    repository.CartBackend
	Catalog *services.CatalogClient
	Sync    *services.CartSyncEngine
	Logger  *zap.Logger
}

func NewCartController(guest, user repository.CartBackend, catalog *services.CatalogClient, sync *services.CartSyncEngine, logger *zap.Logger) *CartController {
	return &CartController{
		Guest:   guest,
		User:    user,
		Catalog: catalog,
		Sync:    sync,
		Logger:  logger,
	}
}

// storeFor builds the cart store for the caller's identity, guest or user.
// The store itself never knows which backend it got.
func (cc *CartController) storeFor(c *gin.Context) *services.CartStore {
	if userID, ok := middleware.CurrentUser(c); ok {
		return services.NewCartStore(cc.User, userID)
	}
	guestID, _ := middleware.CurrentGuest(c)
	return services.NewCartStore(cc.Guest, guestID)
}

func (cc *CartController) respondCart(c *gin.Context, store *services.CartStore) {
	ctx := c.Request.Context()

	items, err := store.Items(ctx)
	if err != nil {
		cc.Logger.Error("Failed to load cart", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cart"})
		return
	}
	total, err := store.Total(ctx)
	if err != nil {
		cc.Logger.Error("Failed to total cart", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

// GetCart returns the current cart with captured prices.
func (cc *CartController) GetCart(c *gin.Context) {
	cc.respondCart(c, cc.storeFor(c))
}

// AddItem adds a course to the cart, capturing the catalog price at add time.
func (cc *CartController) AddItem(c *gin.Context) {
	var req struct {
		CourseKey string `json:"course_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ctx := c.Request.Context()

	course, err := cc.Catalog.FetchCourseByKey(ctx, req.CourseKey)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
			return
		}
		cc.Logger.Error("Catalog lookup failed", zap.String("course_key", req.CourseKey), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "catalog unavailable"})
		return
	}

	store := cc.storeFor(c)
	item, err := store.Add(ctx, course)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateItem) {
			// non-fatal: the course is already there, report and move on
			cc.Logger.Warn("Course already in cart", zap.String("course_key", req.CourseKey))
			c.JSON(http.StatusOK, gin.H{"warning": "course already in cart"})
			return
		}
		cc.Logger.Error("Failed to add cart item", zap.String("course_key", req.CourseKey), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

// RemoveItem removes a course from the cart. Absent courses are a no-op.
func (cc *CartController) RemoveItem(c *gin.Context) {
	courseKey := c.Param("course_key")

	store := cc.storeFor(c)
	if err := store.Remove(c.Request.Context(), courseKey); err != nil {
		cc.Logger.Error("Failed to remove cart item", zap.String("course_key", courseKey), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update cart"})
		return
	}

	cc.respondCart(c, store)
}

// ClearCart removes all items from the cart.
func (cc *CartController) ClearCart(c *gin.Context) {
	store := cc.storeFor(c)
	if err := store.Clear(c.Request.Context()); err != nil {
		cc.Logger.Error("Failed to clear cart", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}

// SyncCart merges the guest cart named by X-Guest-ID into the signed-in
// user's cart. The auth flow calls this once, right after sign-in.
func (cc *CartController) SyncCart(c *gin.Context) {
	userID, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "sign-in required"})
		return
	}
	guestID := c.GetHeader("X-Guest-ID")
	if guestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing guest cart id"})
		return
	}

	err := cc.Sync.Sync(c.Request.Context(), guestID, userID)
	if err != nil {
		var partial *apperrors.PartialSyncError
		if errors.As(err, &partial) {
			// local cart kept, caller should retry the sync
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":           "cart sync incomplete",
				"pending_courses": partial.PendingCourses,
			})
			return
		}
		if errors.Is(err, apperrors.ErrSyncInFlight) {
			c.JSON(http.StatusConflict, gin.H{"error": "sync already in progress"})
			return
		}
		cc.Logger.Error("Cart sync failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cart sync failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "synced"})
}
