package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/framecast/render-gateway/internal/auth"
	"github.com/framecast/render-gateway/pkg/response"
)

// AuthMiddleware validates HMAC-signed bearer tokens. With an empty secret
// the gateway runs open (local development, trusted networks).
type AuthMiddleware struct {
	secret string
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: secret}
}

// Authenticate validates the token from the Authorization header.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.secret == "" {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "Missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return response.Unauthorized(c, "Invalid authorization header format")
		}

		claims, err := auth.ValidateToken(parts[1], m.secret)
		if err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}

		c.Locals("callerId", claims.CallerID)
		return c.Next()
	}
}

// GetCallerID extracts the caller identity from context.
func GetCallerID(c *fiber.Ctx) string {
	if callerID, ok := c.Locals("callerId").(string); ok {
		return callerID
	}
	return ""
}
