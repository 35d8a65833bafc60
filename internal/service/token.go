package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/msomdec/client-registry/internal/domain"
)

// JWTTokenService issues HS256 access tokens with a fixed lifetime.
type JWTTokenService struct {
	secret []byte
	ttl    time.Duration
}

var _ domain.TokenService = (*JWTTokenService)(nil)

func NewJWTTokenService(secret string, ttl time.Duration) *JWTTokenService {
	return &JWTTokenService{secret: []byte(secret), ttl: ttl}
}

func (s *JWTTokenService) TTL() time.Duration { return s.ttl }

// Issue signs claims. A zero ExpiresAt is set to now plus the service TTL.
func (s *JWTTokenService) Issue(claims domain.TokenClaims) (string, error) {
	now := time.Now()
	if claims.ExpiresAt.IsZero() {
		claims.ExpiresAt = now.Add(s.ttl)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      claims.UserID,
		"username": claims.Username,
		"email":    claims.Email,
		"iat":      now.Unix(),
		"exp":      claims.ExpiresAt.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", domain.ErrExternalService, err)
	}
	return signed, nil
}

// Verify parses and validates a token string. Any failure is ErrInvalidToken.
func (s *JWTTokenService) Verify(tokenString string) (*domain.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, domain.ErrInvalidToken
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, domain.ErrInvalidToken
	}

	username, _ := claims["username"].(string)
	email, _ := claims["email"].(string)
	return &domain.TokenClaims{
		UserID:    sub,
		Username:  username,
		Email:     email,
		ExpiresAt: exp.Time,
	}, nil
}
