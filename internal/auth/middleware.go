package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/domain"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

const sessionKey = "auth_session"

type sessionCtxKey struct{}

// AuthMiddleware validates bearer tokens and attaches the caller session.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("not authorized, no token")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return apperrors.NewUnauthorized("not authorized, no token")
	}

	session, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("not authorized, token failed")
	}

	c.Locals(sessionKey, session)
	c.SetUserContext(WithSession(c.UserContext(), session))
	return c.Next()
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session *domain.Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, session)
}

// SessionFromContext retrieves the authenticated caller from ctx.
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	session, ok := ctx.Value(sessionCtxKey{}).(*domain.Session)
	return session, ok && session != nil
}

// SessionFromFiber retrieves the authenticated caller stored by Handle.
func SessionFromFiber(c *fiber.Ctx) (*domain.Session, bool) {
	session, ok := c.Locals(sessionKey).(*domain.Session)
	return session, ok && session != nil
}
