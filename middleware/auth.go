package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayutane/daylink/cache"
	"github.com/ayutane/daylink/config"
	"github.com/ayutane/daylink/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	UserIDKey = "user_id"
	UserKey   = "current_user"
)

func unauthorized(ctx *gin.Context, message string) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
		"error":   "unauthorized",
	})
}

// Auth validates the Bearer JWT, checks the session cache, and loads the
// calling user onto the request context.
func Auth(sec config.SecurityConfig, c cache.Cache, db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			unauthorized(ctx, "missing authentication token")
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			unauthorized(ctx, "invalid or expired token")
			return
		}

		// Session must still be live: logout invalidates tokens before expiry.
		sessionKey := "session:" + tokenStr
		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		exists, err := c.Exists(cacheCtx, sessionKey)
		if err != nil || !exists {
			unauthorized(ctx, "session expired")
			return
		}

		var user model.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				unauthorized(ctx, "user not found")
				return
			}
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "internal server error",
				"error":   "internal",
			})
			return
		}

		ctx.Set(UserIDKey, user.ID)
		ctx.Set(UserKey, &user)
		ctx.Next()
	}
}

// GetUserID retrieves the authenticated user ID from the Gin context.
func GetUserID(c *gin.Context) int64 {
	if v, exists := c.Get(UserIDKey); exists {
		return v.(int64)
	}
	return 0
}

// GetUser retrieves the authenticated user from the Gin context.
func GetUser(c *gin.Context) *model.User {
	if v, exists := c.Get(UserKey); exists {
		return v.(*model.User)
	}
	return nil
}
