package handlers

import (
	"errors"
	"time"

	"ovostore/internal/middleware"
	"ovostore/internal/models"
	"ovostore/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const oauthStateKey = "oauth_state"

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	// where the browser lands after federated sign-in, and after a failed one
	afterSignIn string
	signInPage  string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, afterSignIn, signInPage string) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		afterSignIn: afterSignIn,
		signInPage:  signInPage,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/signup", h.HandleSignUp)
	authRoutes.Post("/signin", h.HandleSignIn)
	authRoutes.Post("/signout", middleware.AuthRequired(h.authService), h.HandleSignOut)
	authRoutes.Get("/session", middleware.OptionalAuth(h.authService), h.HandleSession)
	authRoutes.Get("/google", h.HandleGoogle)
	authRoutes.Get("/google/callback", h.HandleGoogleCallback)
}

func setTokenCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearTokenCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func authFailureStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrFederatedDisabled):
		return fiber.StatusNotImplemented
	default:
		return fiber.StatusInternalServerError
	}
}

// HandleSignUp registers a new account and signs it in.
func (h *AuthHandler) HandleSignUp(c *fiber.Ctx) error {
	var req models.Credentials
	if handled, err := parseAndValidate(c, &req); handled {
		return err
	}

	result, err := h.authService.SignUp(c.UserContext(), req.Email, req.Password)
	if err != nil {
		zap.S().Infof("Error registering user %s: %v", req.Email, err)
		return respond(c, authFailureStatus(err), fiber.Map{
			"message": "Registration failed",
			"error":   err.Error(),
		})
	}

	setTokenCookie(c, result.Token, result.Session.ExpiresAt)
	return respond(c, fiber.StatusCreated, fiber.Map{
		"message": "User registered successfully",
		"token":   result.Token,
		"session": result.Session,
	})
}

// HandleSignIn authenticates with email and password and issues a JWT token.
func (h *AuthHandler) HandleSignIn(c *fiber.Ctx) error {
	var req models.Credentials
	if handled, err := parseAndValidate(c, &req); handled {
		return err
	}

	result, err := h.authService.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		zap.S().Infof("Error during sign in for %s: %v", req.Email, err)
		return respond(c, authFailureStatus(err), fiber.Map{
			"message": "Authentication failed",
			"error":   err.Error(),
		})
	}

	setTokenCookie(c, result.Token, result.Session.ExpiresAt)
	return respond(c, fiber.StatusOK, fiber.Map{
		"message": "Login successful",
		"token":   result.Token,
		"session": result.Session,
	})
}

// HandleSignOut closes the current session. It always succeeds for a valid token.
func (h *AuthHandler) HandleSignOut(c *fiber.Ctx) error {
	h.authService.SignOut(c.UserContext(), middleware.Session(c).ID)
	clearTokenCookie(c)
	return respond(c, fiber.StatusOK, fiber.Map{
		"message": "Signed out",
	})
}

// HandleSession reports the current auth session, if any.
func (h *AuthHandler) HandleSession(c *fiber.Ctx) error {
	session := middleware.Session(c)
	return c.JSON(fiber.Map{
		"signed_in": session != nil,
		"admin":     h.authService.IsAdmin(session),
		"session":   session,
	})
}

// HandleGoogle redirects the browser to the Google consent page.
func (h *AuthHandler) HandleGoogle(c *fiber.Ctx) error {
	state := uuid.New().String()
	authURL, err := h.authService.GoogleAuthURL(state)
	if err != nil {
		return c.Status(authFailureStatus(err)).JSON(fiber.Map{
			"message": "Google sign in failed",
			"error":   err.Error(),
		})
	}
	middleware.SetVisitorValue(c, oauthStateKey, state)
	return c.Redirect(authURL, fiber.StatusFound)
}

// HandleGoogleCallback completes Google sign-in and sends the browser on to the admin area.
func (h *AuthHandler) HandleGoogleCallback(c *fiber.Ctx) error {
	expected := middleware.VisitorValue(c, oauthStateKey)
	middleware.SetVisitorValue(c, oauthStateKey, "")
	if expected == "" || c.Query("state") != expected {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Google sign in failed",
			"error":   "state mismatch",
		})
	}
	if errParam := c.Query("error"); errParam != "" {
		return c.Redirect(h.signInPage, fiber.StatusSeeOther)
	}

	result, err := h.authService.SignInWithGoogle(c.UserContext(), c.Query("code"))
	if err != nil {
		zap.S().Infof("Error during Google sign in: %v", err)
		return c.Redirect(h.signInPage, fiber.StatusSeeOther)
	}
	setTokenCookie(c, result.Token, result.Session.ExpiresAt)
	return c.Redirect(h.afterSignIn, fiber.StatusSeeOther)
}
