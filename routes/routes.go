package routes

import (
	"github.com/k-tong-dev/v0-elearning-sub007/controllers"
	"github.com/k-tong-dev/v0-elearning-sub007/middleware"

	"github.com/gin-gonic/gin"
)

func Register(r *gin.Engine, cc *controllers.CartController, kc *controllers.CheckoutController, wc *controllers.WebhookController, jwtSecret string) {
	cart := r.Group("/cart")
	cart.Use(middleware.IdentityMiddleware(jwtSecret))
	cart.GET("", cc.GetCart)
	cart.POST("/items", cc.AddItem)
	cart.DELETE("/items/:course_key", cc.RemoveItem)
	cart.DELETE("", cc.ClearCart)
	cart.POST("/sync", cc.SyncCart)

	checkout := r.Group("/checkout")
	checkout.Use(middleware.IdentityMiddleware(jwtSecret))
	checkout.POST("", kc.Checkout)

	// Stripe webhook (signature-verified, no auth middleware)
	r.POST("/stripe/webhook", wc.StripeWebhook)
}
