package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"backend-routeshare/internal/shared/apperr"
)

const (
	userIDKey    = "user_id"
	userEmailKey = "user_email"
)

// JWTMiddleware validates bearer tokens through the provider and stores the
// user in locals. A non-empty allowedDomains restricts accepted email domains.
func JWTMiddleware(provider Provider, allowedDomains []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return apperr.Unauthorized("missing bearer token")
		}

		user, err := provider.Verify(c.UserContext(), token)
		if err != nil {
			return err
		}
		if !domainAllowed(user.Email, allowedDomains) {
			return apperr.Forbidden("email domain not allowed")
		}

		SetUser(c, user)
		return c.Next()
	}
}

// SetUser stores the authenticated user on the request.
func SetUser(c *fiber.Ctx, user User) {
	c.Locals(userIDKey, user.ID)
	c.Locals(userEmailKey, user.Email)
}

// UserID returns the authenticated user id, or "" outside JWTMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}

func UserEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(userEmailKey).(string)
	return email
}

func domainAllowed(email string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range allowed {
		if domain == d {
			return true
		}
	}
	return false
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
