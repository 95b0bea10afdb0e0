package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/k-tong-dev/v0-elearning-sub007/apperrors"
	"github.com/k-tong-dev/v0-elearning-sub007/middleware"
	"github.com/k-tong-dev/v0-elearning-sub007/models"
	"github.com/k-tong-dev/v0-elearning-sub007/repository"
	"github.com/k-tong-dev/v0-elearning-sub007/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CheckoutController struct {
	Txns    repository.TransactionRepository
	Stripe  *services.StripeService
	Catalog *services.CatalogClient
	Logger  *zap.Logger
}

// Checkout creates the pending transaction for one course and a Stripe
// PaymentIntent whose metadata carries the transaction id back to us on
// every webhook delivery.
func (kc *CheckoutController) Checkout(c *gin.Context) {
	userID, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "sign-in required"})
		return
	}

	var req struct {
		CourseKey string `json:"course_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ctx := c.Request.Context()

	course, err := kc.Catalog.FetchCourseByKey(ctx, req.CourseKey)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
			return
		}
		kc.Logger.Error("Catalog lookup failed", zap.String("course_key", req.CourseKey), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "catalog unavailable"})
		return
	}

	txnID := uuid.New()
	currency := strings.ToLower(course.Currency)
	if currency == "" {
		currency = "usd"
	}

	pi, err := kc.Stripe.CreatePaymentIntent(course.Price, currency, map[string]string{
		"transaction_id": txnID.String(),
		"course_id":      course.ID,
		"user_id":        userID,
		"instructor_id":  course.InstructorID,
	})
	if err != nil {
		kc.Logger.Error("Failed to create payment intent", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment initiation failed"})
		return
	}

	txn := &models.Transaction{
		TransactionID: txnID,
		UserID:        userID,
		CourseID:      course.ID,
		InstructorID:  course.InstructorID,
		Amount:        course.Price,
		Currency:      currency,
		State:         models.TransactionPending,
	}
	if err := kc.Txns.Create(ctx, txn); err != nil {
		kc.Logger.Error("Failed to save transaction",
			zap.String("transaction_id", txnID.String()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_id": txnID.String(),
		"client_secret":  pi.ClientSecret,
	})
}
