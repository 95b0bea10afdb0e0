package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const (
	UserKey  = "userID"
	GuestKey = "guestID"
)

// IdentityMiddleware resolves the caller's identity. A bearer token yields an
// authenticated user; the X-Guest-ID header yields a device-scoped guest.
// Requests with neither are rejected.
func IdentityMiddleware(jwtSecret string) gin.HandlerFunc {
	secret := []byte(jwtSecret)
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			userID, err := parseUserID(tokenStr, secret)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.Set(UserKey, userID)
			c.Next()
			return
		}

		if guestID := c.GetHeader("X-Guest-ID"); guestID != "" {
			c.Set(GuestKey, guestID)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}

func parseUserID(tokenStr string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return "", fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("token missing subject")
	}
	return sub, nil
}

// CurrentUser returns the authenticated user id, if any.
func CurrentUser(c *gin.Context) (string, bool) {
	if val, exists := c.Get(UserKey); exists {
		return val.(string), true
	}
	return "", false
}

// CurrentGuest returns the guest device id, if any.
func CurrentGuest(c *gin.Context) (string, bool) {
	if val, exists := c.Get(GuestKey); exists {
		return val.(string), true
	}
	return "", false
}
