package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ovostore/internal/events"
	"ovostore/internal/models"
	"ovostore/internal/notify"
	"ovostore/internal/repositories"

	"github.com/asaskevich/EventBus"
	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// ErrInvalidToken is returned by ValidateToken for any unusable token.
var ErrInvalidToken = errors.New("invalid token")

// AuthOptions configures token signing and the admin gate.
type AuthOptions struct {
	JWTSecret   string
	TokenTTL    time.Duration
	AdminEmails []string // empty admits every signed-in user
}

// AuthResult is returned by a successful sign-in or sign-up.
type AuthResult struct {
	Token   string         `json:"token"`
	Session models.Session `json:"session"`
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	identity   IdentityProvider
	federated  FederatedIdentityProvider
	sessions   repositories.SessionRepository
	bus        EventBus.Bus
	jwtSecret  []byte
	tokenDurat time.Duration
	admins     map[string]bool
}

// NewAuthService creates a new AuthService. federated may be nil when Google sign-in
// is not configured.
func NewAuthService(identity IdentityProvider, federated FederatedIdentityProvider, sessions repositories.SessionRepository, bus EventBus.Bus, opts AuthOptions) *AuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	admins := make(map[string]bool, len(opts.AdminEmails))
	for _, email := range opts.AdminEmails {
		admins[normalizeEmail(email)] = true
	}
	return &AuthService{
		identity:   identity,
		federated:  federated,
		sessions:   sessions,
		bus:        bus,
		jwtSecret:  []byte(opts.JWTSecret),
		tokenDurat: opts.TokenTTL,
		admins:     admins,
	}
}

// SignIn authenticates with email and password.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		return nil, s.fail(ctx, "Sign in failed", err)
	}
	return s.open(ctx, user, notify.Success("Welcome back!", "Successfully signed in."))
}

// SignUp registers a new account and signs it in.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.identity.SignUp(ctx, email, password)
	if err != nil {
		return nil, s.fail(ctx, "Sign up failed", err)
	}
	return s.open(ctx, user, notify.Success("Account created!", "Welcome to the platform."))
}

// GoogleAuthURL returns where to send the browser to start Google sign-in.
func (s *AuthService) GoogleAuthURL(state string) (string, error) {
	if s.federated == nil {
		return "", ErrFederatedDisabled
	}
	return s.federated.AuthCodeURL(state), nil
}

// SignInWithGoogle completes Google sign-in with the authorization code.
func (s *AuthService) SignInWithGoogle(ctx context.Context, code string) (*AuthResult, error) {
	if s.federated == nil {
		return nil, s.fail(ctx, "Google sign in failed", ErrFederatedDisabled)
	}
	user, err := s.federated.Exchange(ctx, code)
	if err != nil {
		return nil, s.fail(ctx, "Google sign in failed", err)
	}
	return s.open(ctx, user, notify.Success("Welcome!", "Successfully signed in with Google."))
}

// SignOut closes the session. Failures are logged and notified, never returned.
func (s *AuthService) SignOut(ctx context.Context, sessionID string) {
	session, _ := s.sessions.Get(ctx, sessionID)
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		zap.S().Errorf("Sign out error: %v", err)
		notify.Push(ctx, notify.Failure("Sign out failed", err.Error()))
		return
	}
	notify.Push(ctx, notify.Success("Signed out", "Successfully signed out."))

	state := events.AuthState{SignedIn: false, SessionID: sessionID}
	if session != nil {
		state.Email = session.Email
	}
	s.publish(state)
}

// ValidateToken parses and validates a JWT token and returns the open session it names.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		zap.S().Debugf("Token validation error: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	sessionID := cast.ToString(claims["sid"])
	if sessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrInvalidToken)
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if session.Expired(time.Now()) {
		return nil, fmt.Errorf("%w: session expired", ErrInvalidToken)
	}
	if session.UserID != cast.ToString(claims["user_id"]) {
		return nil, fmt.Errorf("%w: session mismatch", ErrInvalidToken)
	}
	return session, nil
}

// IsAdmin reports whether the session may use the admin area.
func (s *AuthService) IsAdmin(session *models.Session) bool {
	if session == nil {
		return false
	}
	if len(s.admins) == 0 {
		return true
	}
	return s.admins[strings.ToLower(session.Email)]
}

// OnStateChange registers fn for every sign-in and sign-out. fn runs asynchronously.
func (s *AuthService) OnStateChange(fn func(events.AuthState)) error {
	return s.bus.SubscribeAsync(events.TopicAuthState, fn, false)
}

// PurgeExpiredSessions drops every session past its expiry.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int, error) {
	return s.sessions.PurgeExpired(ctx, time.Now())
}

func (s *AuthService) open(ctx context.Context, user *models.User, welcome notify.Notification) (*AuthResult, error) {
	now := time.Now()
	session := models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Email:     user.Email,
		Provider:  user.Provider,
		ExpiresAt: now.Add(s.tokenDurat),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid":     session.ID,
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     session.ExpiresAt.Unix(),
		"iat":     now.Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, s.fail(ctx, "Sign in failed", fmt.Errorf("failed to generate token: %w", err))
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, s.fail(ctx, "Sign in failed", fmt.Errorf("failed to open session: %w", err))
	}

	notify.Push(ctx, welcome)
	s.publish(events.AuthState{SignedIn: true, Email: user.Email, SessionID: session.ID})
	return &AuthResult{Token: tokenString, Session: session}, nil
}

func (s *AuthService) fail(ctx context.Context, title string, err error) error {
	zap.S().Warnf("%s: %v", title, err)
	notify.Push(ctx, notify.Failure(title, err.Error()))
	return err
}

func (s *AuthService) publish(state events.AuthState) {
	if s.bus != nil {
		s.bus.Publish(events.TopicAuthState, state)
	}
}
