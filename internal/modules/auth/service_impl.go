package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "printa-catalog"

// Config holds the admin credentials and signing key.
type Config struct {
	Secret            []byte
	AdminEmail        string
	AdminPasswordHash string
	TokenTTL          time.Duration
	Now               func() time.Time
}

type service struct {
	cfg Config
}

// NewService creates a new auth service.
func NewService(cfg Config) Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &service{cfg: cfg}
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	if s.cfg.AdminEmail == "" || s.cfg.AdminPasswordHash == "" {
		return "", ErrInvalidCredentials
	}
	given := strings.ToLower(strings.TrimSpace(email))
	want := strings.ToLower(s.cfg.AdminEmail)
	if subtle.ConstantTimeCompare([]byte(given), []byte(want)) != 1 {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := s.cfg.Now()
	claims := &jwt.StandardClaims{
		Subject:   want,
		Issuer:    issuer,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.cfg.TokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

func (s *service) Verify(tokenString string) (string, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.cfg.Secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.ExpiresAt <= s.cfg.Now().Unix() || claims.Issuer != issuer {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
