package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/shared/response"
	"github.com/vidgo/server/internal/utils/requestctx"
)

// Gin context keys set by RequireAuth.
const (
	UserIDKey   = "user_id"
	UserTierKey = "user_tier"
)

const bearerPrefix = "Bearer "

// DefaultTier is assumed when a token carries no tier claim.
const DefaultTier = "starter"

// RequireAuth validates the Bearer token and stores the caller's identity
// in both gin keys and the request context.
func RequireAuth(manager *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			response.AbortError(c, apperrors.Unauthorized("authorization header required"))
			return
		}

		claims, err := manager.Validate(token)
		if err != nil {
			response.AbortError(c, apperrors.Unauthorized("invalid or expired token"))
			return
		}

		tier := claims.Tier
		if tier == "" {
			tier = DefaultTier
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserTierKey, tier)

		ctx := requestctx.WithUserID(c.Request.Context(), claims.UserID)
		ctx = requestctx.WithUserTier(ctx, tier)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimPrefix(header, bearerPrefix)
	}
	return ""
}
