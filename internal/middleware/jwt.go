package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rewear-app/rewear-api/internal/service"
	appErrors "github.com/rewear-app/rewear-api/pkg/errors"
	"github.com/rewear-app/rewear-api/pkg/response"
)

// ContextUserKey is the gin context key under which the authenticated
// user's claims are stored. Handlers read it via claimsFromContext.
const ContextUserKey = "currentUser"

const bearerScheme = "Bearer"

// JWT rejects requests without a valid access token and stores the
// token's claims on the request context for downstream handlers.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or malformed authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerScheme) || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
