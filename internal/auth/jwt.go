package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

type Claims struct {
	UserID   int      `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Subject is the identity a token is issued for.
type Subject struct {
	UserID   int
	Username string
	Roles    []string
}

// TokenService issues and verifies HS256 access tokens.
type TokenService struct {
	secret   []byte
	lifespan time.Duration
	grace    time.Duration
	now      func() time.Time
}

type TokenServiceInterface interface {
	Issue(sub Subject) (string, time.Time, error)
	Validate(tokenString string) (*Claims, error)
	Refresh(tokenString string) (string, time.Time, error)
}

// NewTokenService creates a token service. grace is how long after expiry a
// token may still be exchanged through Refresh.
func NewTokenService(secret string, lifespan, grace time.Duration) *TokenService {
	return &TokenService{
		secret:   []byte(secret),
		lifespan: lifespan,
		grace:    grace,
		now:      time.Now,
	}
}

// Issue signs a new token for sub that expires after the configured lifespan.
func (s *TokenService) Issue(sub Subject) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.lifespan)
	claims := Claims{
		UserID:   sub.UserID,
		Username: sub.Username,
		Roles:    sub.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprintf("%d", sub.UserID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses tokenString and checks its signature and expiry.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	return s.parse(tokenString, 0)
}

// Refresh exchanges a valid token for a new one with the same identity and a
// fresh expiry. Tokens expired for less than the grace period are accepted.
func (s *TokenService) Refresh(tokenString string) (string, time.Time, error) {
	claims, err := s.parse(tokenString, s.grace)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.Issue(Subject{
		UserID:   claims.UserID,
		Username: claims.Username,
		Roles:    claims.Roles,
	})
}

func (s *TokenService) parse(tokenString string, leeway time.Duration) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if leeway > 0 {
		opts = append(opts, jwt.WithLeeway(leeway))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
