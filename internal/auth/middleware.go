package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/support-assistant/pkg/util"
)

const sessionIDKey = "session_id"

// SessionMiddleware validates the bearer session token on chat routes.
type SessionMiddleware struct {
	tokens *TokenManager
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(tokens *TokenManager) *SessionMiddleware {
	return &SessionMiddleware{tokens: tokens}
}

// Handle enforces a valid session token and stores the session id for
// downstream handlers.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid session token")
	}

	c.Locals(sessionIDKey, claims.SessionID)
	return c.Next()
}

// SessionIDFromContext retrieves the authenticated session id.
func SessionIDFromContext(c *fiber.Ctx) (string, bool) {
	id, ok := c.Locals(sessionIDKey).(string)
	return id, ok && id != ""
}
