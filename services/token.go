package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quicklearner/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenPurpose string

const (
	PurposeAccess        TokenPurpose = "access"
	PurposeVerifyEmail   TokenPurpose = "verify_email"
	PurposeResetPassword TokenPurpose = "reset_password"
)

type Claims struct {
	Purpose TokenPurpose `json:"purpose"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string {
	return c.Subject
}

type TokenService struct {
	secret    []byte
	accessTTL time.Duration
	emailTTL  time.Duration
	store     TokenStore
	log       *logger.Logger
	now       func() time.Time
}

func NewTokenService(secret string, accessTTL, emailTTL time.Duration, store TokenStore, log *logger.Logger) *TokenService {
	return &TokenService{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		emailTTL:  emailTTL,
		store:     store,
		log:       log.With("service", "TokenService"),
		now:       time.Now,
	}
}

func (s *TokenService) Issue(userID string, purpose TokenPurpose) (string, error) {
	ttl := s.accessTTL
	if purpose != PurposeAccess {
		ttl = s.emailTTL
	}
	now := s.now()
	claims := &Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, expiry and purpose of a token.
func (s *TokenService) Verify(tokenString string, purpose TokenPurpose) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, unauthorized("Token expired")
		}
		return nil, unauthorized("Invalid token")
	}
	if !token.Valid || claims.Subject == "" {
		return nil, unauthorized("Invalid token")
	}
	if claims.Purpose != purpose {
		return nil, unauthorized("Token not valid for this action")
	}
	return claims, nil
}

// Consume verifies an email token and marks it used. A second call with the
// same token fails.
func (s *TokenService) Consume(ctx context.Context, tokenString string, purpose TokenPurpose) (*Claims, error) {
	claims, err := s.Verify(tokenString, purpose)
	if err != nil {
		return nil, err
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		ttl = time.Second
	}
	first, err := s.store.MarkUsed(ctx, claims.ID, ttl)
	if err != nil {
		return nil, fmt.Errorf("mark token used: %w", err)
	}
	if !first {
		s.log.Warn("Token replay rejected", "jti", claims.ID, "purpose", purpose)
		return nil, unauthorized("Token already used")
	}
	return claims, nil
}
