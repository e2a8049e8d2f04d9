package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fairyhunter13/talentfinder/internal/adapter/observability"
	"github.com/fairyhunter13/talentfinder/internal/domain"
)

// Credentials is the single accessor for the stored bearer token. The API
// client reads tokens through it; AuthSession writes them.
type Credentials struct {
	store domain.TokenStore
	now   func() time.Time
}

var _ domain.TokenSource = (*Credentials)(nil)

func NewCredentials(store domain.TokenStore) *Credentials {
	return &Credentials{store: store, now: time.Now}
}

// Token returns the stored token, or "" when none is stored or the token is
// a JWT whose exp claim has passed. Opaque tokens are returned as is.
func (c *Credentials) Token(ctx context.Context) (string, error) {
	tok, err := c.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("op=usecase.Credentials.Token: %w", err)
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", nil
	}
	if c.expired(tok) {
		observability.LoggerFromContext(ctx).Info("stored token expired; treating as logged out")
		return "", nil
	}
	return tok, nil
}

// expired checks the exp claim without verifying the signature; the
// backend remains the authority on validity.
func (c *Credentials) expired(tok string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !c.now().Before(exp.Time)
}

func (c *Credentials) save(ctx context.Context, tok string) error {
	return c.store.Save(ctx, tok)
}

func (c *Credentials) clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// LoginRequest carries the login form fields.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthSession logs users in and out.
type AuthSession struct {
	api   domain.AuthAPI
	creds *Credentials
}

func NewAuthSession(api domain.AuthAPI, creds *Credentials) *AuthSession {
	return &AuthSession{api: api, creds: creds}
}

// Login exchanges credentials for a token and stores it.
func (a *AuthSession) Login(ctx context.Context, email, password string) error {
	req := LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := validateStruct(req); err != nil {
		return fmt.Errorf("op=usecase.Login: %w", err)
	}
	tok, err := a.api.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fmt.Errorf("op=usecase.Login: %w", err)
	}
	if err := a.creds.save(ctx, tok); err != nil {
		return fmt.Errorf("op=usecase.Login: store token: %w", err)
	}
	observability.LoggerFromContext(ctx).Info("logged in", slog.String("email", req.Email))
	return nil
}

// Signup registers a user and stores the returned token.
func (a *AuthSession) Signup(ctx context.Context, req domain.SignupRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Number = strings.TrimSpace(req.Number)
	if err := validateStruct(req); err != nil {
		return fmt.Errorf("op=usecase.Signup: %w", err)
	}
	tok, err := a.api.Signup(ctx, req)
	if err != nil {
		return fmt.Errorf("op=usecase.Signup: %w", err)
	}
	if err := a.creds.save(ctx, tok); err != nil {
		return fmt.Errorf("op=usecase.Signup: store token: %w", err)
	}
	observability.LoggerFromContext(ctx).Info("signed up", slog.String("email", req.Email))
	return nil
}

// Logout forgets the stored token.
func (a *AuthSession) Logout(ctx context.Context) error {
	if err := a.creds.clear(ctx); err != nil {
		return fmt.Errorf("op=usecase.Logout: %w", err)
	}
	return nil
}

// Token returns the current bearer token, "" when logged out.
func (a *AuthSession) Token(ctx context.Context) (string, error) {
	return a.creds.Token(ctx)
}

// Me returns the logged-in user.
func (a *AuthSession) Me(ctx context.Context) (domain.AuthUser, error) {
	tok, err := a.creds.Token(ctx)
	if err != nil {
		return domain.AuthUser{}, fmt.Errorf("op=usecase.Me: %w", err)
	}
	if tok == "" {
		return domain.AuthUser{}, fmt.Errorf("op=usecase.Me: %w: not logged in", domain.ErrUnauthorized)
	}
	u, err := a.api.Me(ctx, tok)
	if err != nil {
		return domain.AuthUser{}, fmt.Errorf("op=usecase.Me: %w", err)
	}
	return u, nil
}
