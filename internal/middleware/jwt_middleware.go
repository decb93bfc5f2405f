package middleware

import (
	"strings"

	"ovostore/internal/models"
	"ovostore/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TokenCookie carries the JWT for browser clients.
const TokenCookie = "ovo_token"

const localsSession = "auth_session"

// TokenFromRequest returns the bearer token of the request, falling back to the
// token cookie. It returns an error message when the Authorization header is malformed.
func TokenFromRequest(c *fiber.Ctx) (string, string) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return c.Cookies(TokenCookie), ""
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		return "", "Authorization header format must be 'Bearer <token>'"
	}
	return parts[1], ""
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, problem := TokenFromRequest(c)
		if problem != "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": problem,
			})
		}
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		session, err := authService.ValidateToken(c.UserContext(), tokenString)
		if err != nil {
			zap.S().Debugf("JWT validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		c.Locals(localsSession, session)
		return c.Next()
	}
}

// AdminRequired rejects signed-in users outside the admin list. It must run after AuthRequired.
func AdminRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !authService.IsAdmin(Session(c)) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Admin access required",
			})
		}
		return c.Next()
	}
}

// OptionalAuth attaches the session of a valid token and lets every request through.
func OptionalAuth(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenString, _ := TokenFromRequest(c); tokenString != "" {
			if session, err := authService.ValidateToken(c.UserContext(), tokenString); err == nil {
				c.Locals(localsSession, session)
			}
		}
		return c.Next()
	}
}

// AdminPage sends visitors without an admin session to the sign-in page.
func AdminPage(authService *services.AuthService, loginPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !authService.IsAdmin(Session(c)) {
			return c.Redirect(loginPath, fiber.StatusSeeOther)
		}
		return c.Next()
	}
}

// Session returns the auth session attached to the request, or nil.
func Session(c *fiber.Ctx) *models.Session {
	session, _ := c.Locals(localsSession).(*models.Session)
	return session
}
