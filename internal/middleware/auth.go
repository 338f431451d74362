package middleware

import (
	"context"
	"errors"
	"strings"

	"whereismypet/internal/models"
	"whereismypet/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is what the authentication provider asserts about the caller.
type Identity struct {
	UserID        string
	Email         string
	EmailVerified bool
}

// AuthConfig carries the token verification settings.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// Authenticator verifies bearer tokens minted by the authentication provider.
type Authenticator struct {
	cfg AuthConfig
}

// NewAuthenticator builds an Authenticator for the given settings.
func NewAuthenticator(cfg AuthConfig) *Authenticator {
	return &Authenticator{cfg: cfg}
}

var (
	errMissingToken = errors.New("authorization header required")
	errBadFormat    = errors.New("invalid authorization header format")
)

// Required is a middleware that enforces authentication for protected routes.
func (a *Authenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := a.identify(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(err.Error()))
		}
		attach(c, id)
		return c.Next()
	}
}

// Optional attaches the identity when a valid token is present and lets
// anonymous requests through. A present but invalid token is still rejected.
func (a *Authenticator) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := a.identify(c)
		if errors.Is(err, errMissingToken) {
			return c.Next()
		}
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(err.Error()))
		}
		attach(c, id)
		return c.Next()
	}
}

func attach(c *fiber.Ctx, id Identity) {
	c.Locals("userID", id.UserID)
	c.Locals("identity", id)
	c.SetUserContext(context.WithValue(c.UserContext(), observability.UserIDKey, id.UserID))
}

// CurrentIdentity returns the identity attached by Required or Optional.
func CurrentIdentity(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals("identity").(Identity)
	return id, ok
}

func (a *Authenticator) identify(c *fiber.Ctx) (Identity, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return Identity{}, errMissingToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return Identity{}, errBadFormat
	}

	return a.ParseToken(parts[1])
}

// ParseToken validates a raw token and extracts the caller's identity.
func (a *Authenticator) ParseToken(tokenString string) (Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(a.cfg.Secret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return Identity{}, errors.New("invalid or expired token")
	}

	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return Identity{}, errors.New("invalid token structure - missing subject")
	}

	id := Identity{UserID: sub}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if verified, ok := claims["email_verified"].(bool); ok {
		id.EmailVerified = verified
	}
	return id, nil
}
