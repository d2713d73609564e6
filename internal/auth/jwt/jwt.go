// Package jwt implements access token issuance and validation using signed
// JSON Web Tokens.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nkoval/backoffice/internal/auth"
	"github.com/nkoval/backoffice/internal/domain"
)

// Config contains JWT authenticator configuration.
type Config struct {
	SecretKey           string
	AccessTokenDuration time.Duration
}

// UserGetter resolves users during token validation. The role is looked up
// on every request rather than embedded in the token, so a role change takes
// effect without waiting for token expiry.
type UserGetter interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
}

// Claims are the access token claims.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator issues and validates HS256 access tokens.
type Authenticator struct {
	config Config
	users  UserGetter
	now    func() time.Time
}

// NewAuthenticator creates a JWT authenticator.
func NewAuthenticator(config Config, users UserGetter) *Authenticator {
	return &Authenticator{
		config: config,
		users:  users,
		now:    time.Now,
	}
}

// GenerateToken signs an access token embedding the user id and email.
func (a *Authenticator) GenerateToken(_ context.Context, user *domain.User) (string, error) {
	now := a.now()
	claims := Claims{
		Username: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.config.AccessTokenDuration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.config.SecretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies the token, then resolves the user's
// current role.
func (a *Authenticator) ValidateToken(ctx context.Context, tokenString string) (int64, domain.RoleName, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(a.config.SecretKey), nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return 0, "", auth.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", auth.ErrInvalidToken
	}

	user, err := a.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return 0, "", auth.ErrInvalidToken
		}
		return 0, "", fmt.Errorf("resolve token user: %w", err)
	}

	return user.ID, user.RoleName(), nil
}
