package apiauth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const RoleAdmin = "admin"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("api auth is not configured")
)

// Service guards the ops API. The operator exchanges the shared admin secret
// for a short-lived HS256 token; every other endpoint validates that token.
// Tokens are stateless, revocation is the TTL.
type Service struct {
	jwtSecret   []byte
	adminSecret string
	accessTTL   time.Duration
	now         func() time.Time
}

type Claims struct {
	TokenID   string
	Role      string
	ExpiresAt time.Time
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func NewService(jwtSecret, adminSecret string, accessTTL time.Duration) *Service {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}

	return &Service{
		jwtSecret:   []byte(strings.TrimSpace(jwtSecret)),
		adminSecret: strings.TrimSpace(adminSecret),
		accessTTL:   accessTTL,
		now:         time.Now,
	}
}

func (s *Service) IsConfigured() bool {
	return s != nil && len(s.jwtSecret) > 0 && s.adminSecret != ""
}

// Exchange trades the shared admin secret for an access token. The compare is
// constant time so the endpoint leaks nothing about the secret.
func (s *Service) Exchange(secret string) (string, time.Time, error) {
	if !s.IsConfigured() {
		return "", time.Time{}, ErrUnavailable
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(secret)), []byte(s.adminSecret)) != 1 {
		return "", time.Time{}, ErrUnauthorized
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.accessTTL)
	claims := tokenClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   RoleAdmin,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}

	return signed, expiresAt, nil
}

func (s *Service) Parse(raw string) (Claims, error) {
	if !s.IsConfigured() {
		return Claims{}, ErrUnavailable
	}
	if strings.TrimSpace(raw) == "" {
		return Claims{}, ErrUnauthorized
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil || token == nil || !token.Valid {
		return Claims{}, ErrUnauthorized
	}

	if claims.Role != RoleAdmin {
		return Claims{}, ErrUnauthorized
	}
	if strings.TrimSpace(claims.ID) == "" || claims.ExpiresAt == nil {
		return Claims{}, ErrUnauthorized
	}

	return Claims{
		TokenID:   claims.ID,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
