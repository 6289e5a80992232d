package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lehmann314159/folio/internal/models"
)

// TokenConfig holds JWT signing settings.
type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Claims is the verified content of an access token.
type Claims struct {
	UserID    int64
	Role      models.Role
	TokenID   string
	ExpiresAt time.Time
}

type Tokens struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokens(cfg TokenConfig) *Tokens {
	if cfg.Issuer == "" {
		cfg.Issuer = "folio"
	}
	return &Tokens{cfg: cfg, now: time.Now}
}

// Issue signs an HS256 token for u with a fresh token id.
func (t *Tokens) Issue(u *models.User) (string, error) {
	now := t.now()
	c := claims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.cfg.Issuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(t.cfg.Secret))
}

// Verify checks signature, issuer and expiry.
func (t *Tokens) Verify(token string) (*Claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(tok *jwt.Token) (any, error) {
		return []byte(t.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || c.ID == "" {
		return nil, fmt.Errorf("%w: malformed claims", ErrUnauthorized)
	}

	return &Claims{
		UserID:    id,
		Role:      models.Role(c.Role),
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
