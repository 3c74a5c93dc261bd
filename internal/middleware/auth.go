package middleware

import (
	"context"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
)

const (
	HeaderUserID = "X-User-ID"
	GuestUID     = "guest"
)

// TokenVerifier is the part of the firebase auth client the middleware uses.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware verifies firebase ID tokens when projectID is set.
// Without a project the shopper identity comes from the X-User-ID header.
func NewAuthMiddleware(ctx context.Context, projectID string) (*AuthMiddleware, error) {
	if projectID == "" {
		return &AuthMiddleware{}, nil
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &AuthMiddleware{verifier: client}, nil
}

func NewAuthMiddlewareWithVerifier(v TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: v}
}

// OptionalAuth sets "uid" for every request. A bearer token must be valid
// when present; anonymous shoppers fall back to the header or guest.
func (m *AuthMiddleware) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authz := c.Request().Header.Get("Authorization")
		if m.verifier != nil && strings.HasPrefix(authz, "Bearer ") {
			tokenStr := strings.TrimPrefix(authz, "Bearer ")
			token, err := m.verifier.VerifyIDToken(c.Request().Context(), tokenStr)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
			}
			c.Set("uid", token.UID)
			return next(c)
		}
		uid := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
		if uid == "" || m.verifier != nil {
			uid = GuestUID
		}
		c.Set("uid", uid)
		return next(c)
	}
}
