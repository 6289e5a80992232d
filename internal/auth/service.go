// Package auth issues and checks access tokens for local accounts and for
// accounts bound to an external login provider.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lehmann314159/folio/internal/models"
	"github.com/lehmann314159/folio/internal/repository"
	"github.com/lehmann314159/folio/internal/validate"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUserNotFound     = errors.New("user not found")
	ErrConflict         = errors.New("username or email already exists")
	ErrProviderConflict = errors.New("email is already registered with a different login method")
)

const ProviderLocal = "local"

// UserStore is the persistence the service needs.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error)
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type ProviderLoginRequest struct {
	Provider    string `json:"provider" validate:"required,oneof=google github"`
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"max=64"`
	Avatar      string `json:"avatar" validate:"omitempty,url"`
}

type Service struct {
	users     UserStore
	tokens    *Tokens
	validator *validate.Validator
	cost      int
	now       func() time.Time
}

type Option func(*Service)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(users UserStore, tokens *Tokens, opts ...Option) *Service {
	s := &Service{
		users:     users,
		tokens:    tokens,
		validator: validate.New(),
		cost:      bcrypt.DefaultCost,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrUnauthorized
	}
	return s.session(u)
}

// Logout revokes the presented token. Other tokens of the same user stay valid.
func (s *Service) Logout(ctx context.Context, token string) error {
	c, err := s.tokens.Verify(token)
	if err != nil {
		return err
	}
	if err := s.users.RevokeToken(ctx, c.TokenID, c.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Me resolves a bearer token to its user.
func (s *Service) Me(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	c, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.users.IsTokenRevoked(ctx, c.TokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token: %w", err)
	}
	if revoked {
		return nil, ErrUnauthorized
	}

	u, err := s.users.GetUser(ctx, c.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	taken, err := s.users.UsernameOrEmailTaken(ctx, req.Username, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if taken {
		return nil, ErrConflict
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Avatar:       placeholderAvatar(req.Username),
		Role:         models.RoleUser,
		Provider:     ProviderLocal,
		CreatedAt:    s.now().UTC(),
	}
	u.ID, err = s.users.CreateUser(ctx, u)
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent registration.
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// ProviderLogin signs in a user whose identity an external provider has
// already confirmed, creating the account on first use.
func (s *Service) ProviderLogin(ctx context.Context, req ProviderLoginRequest) (*Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	u, err := s.users.GetUserByEmail(ctx, req.Email)
	switch {
	case err == nil:
		if u.Provider != req.Provider {
			return nil, ErrProviderConflict
		}
		return s.session(u)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	name := req.DisplayName
	if name == "" {
		name, _, _ = strings.Cut(req.Email, "@")
	}
	avatar := req.Avatar
	if avatar == "" {
		avatar = placeholderAvatar(name)
	}

	u = &models.User{
		Username:  req.Provider + ":" + req.Email,
		Email:     req.Email,
		Avatar:    avatar,
		Role:      models.RoleUser,
		Provider:  req.Provider,
		CreatedAt: s.now().UTC(),
	}
	if u.ID, err = s.users.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return s.session(u)
}

// SeedDefaultUsers creates the demo admin and user accounts when missing.
func (s *Service) SeedDefaultUsers(ctx context.Context) error {
	defaults := []models.User{
		{Username: "admin", Email: "admin@example.com", Role: models.RoleAdmin,
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Username: "user", Email: "user@example.com", Role: models.RoleUser,
			CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}

	for _, d := range defaults {
		taken, err := s.users.UsernameOrEmailTaken(ctx, d.Username, d.Email)
		if err != nil {
			return err
		}
		if taken {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte("123456"), s.cost)
		if err != nil {
			return err
		}
		u := d
		u.PasswordHash = string(hash)
		u.Avatar = placeholderAvatar(capitalize(d.Username))
		u.Provider = ProviderLocal
		if _, err := s.users.CreateUser(ctx, &u); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", d.Username, err)
		}
		slog.InfoContext(ctx, "seeded default user", "username", d.Username)
	}
	return nil
}

func (s *Service) session(u *models.User) (*Session, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Session{Token: token, User: u}, nil
}

func placeholderAvatar(text string) string {
	return "https://via.placeholder.com/100x100?text=" + url.QueryEscape(text)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
