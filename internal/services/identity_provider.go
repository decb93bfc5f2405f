package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ovostore/internal/config"
	"ovostore/internal/models"
	"ovostore/internal/repositories"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when signing up with a registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrFederatedDisabled is returned when no federated provider is configured.
	ErrFederatedDisabled = errors.New("google sign in is not configured")
)

// IdentityProvider authenticates email/password users.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*models.User, error)
	SignUp(ctx context.Context, email, password string) (*models.User, error)
}

// FederatedIdentityProvider authenticates users through an OAuth2 authorization code flow.
type FederatedIdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*models.User, error)
}

// PasswordIdentityProvider keeps bcrypt password hashes in the user repository.
type PasswordIdentityProvider struct {
	users repositories.UserRepository
}

// NewPasswordIdentityProvider creates a new PasswordIdentityProvider.
func NewPasswordIdentityProvider(users repositories.UserRepository) *PasswordIdentityProvider {
	return &PasswordIdentityProvider{users: users}
}

// SignUp registers a new user, hashes their password, and saves them.
func (p *PasswordIdentityProvider) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	existing, err := p.users.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, fmt.Errorf("email '%s': %w", email, ErrEmailTaken)
	}
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		ID:       uuid.New().String(),
		Email:    email,
		Password: string(hashedPassword),
		Provider: models.ProviderPassword,
	}
	if err := p.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

// SignIn checks the password against the stored hash.
func (p *PasswordIdentityProvider) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	user, err := p.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GoogleIdentityProvider signs users in with their Google account. Unknown emails
// get a federated user record on first sign-in.
type GoogleIdentityProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	users       repositories.UserRepository
}

// NewGoogleIdentityProvider creates a new GoogleIdentityProvider.
func NewGoogleIdentityProvider(cfg config.GoogleConfig, users repositories.UserRepository) *GoogleIdentityProvider {
	return &GoogleIdentityProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		users:       users,
	}
}

// AuthCodeURL returns the consent page URL carrying state.
func (p *GoogleIdentityProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// Exchange trades the authorization code for a token and resolves the account email.
func (p *GoogleIdentityProvider) Exchange(ctx context.Context, code string) (*models.User, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch user info: status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if info.Email == "" || !info.EmailVerified {
		return nil, fmt.Errorf("google account has no verified email: %w", ErrInvalidCredentials)
	}

	email := normalizeEmail(info.Email)
	user, err := p.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, err
	}
	user = &models.User{
		ID:       uuid.New().String(),
		Email:    email,
		Provider: models.ProviderGoogle,
	}
	if err := p.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
