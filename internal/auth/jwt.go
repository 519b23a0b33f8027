package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gosuda/taskhub/internal/domain"
)

// Claims holds the JWT token payload. The actor's roles and department ride
// in the token so request authorization needs no user lookup.
type Claims struct {
	jwt.RegisteredClaims
	UserID       string   `json:"uid"`
	Roles        []string `json:"roles"`
	DepartmentID string   `json:"dept,omitempty"`
	TokenType    string   `json:"typ"` // "access" or "refresh"
}

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

const issuer = "taskhub"

// ErrInvalidToken is returned when a JWT cannot be parsed or has expired.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// IssueAccessToken creates a signed JWT access token for the actor.
func IssueAccessToken(secret string, actor domain.Actor, ttl time.Duration) (string, error) {
	return issueToken(secret, actor, tokenTypeAccess, ttl)
}

// IssueRefreshToken creates a signed JWT refresh token for the actor.
func IssueRefreshToken(secret string, actor domain.Actor, ttl time.Duration) (string, error) {
	return issueToken(secret, actor, tokenTypeRefresh, ttl)
}

func issueToken(secret string, actor domain.Actor, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
			Subject:   actor.ID.String(),
		},
		UserID:    actor.ID.String(),
		Roles:     make([]string, 0, len(actor.Roles)),
		TokenType: tokenType,
	}
	for _, r := range actor.Roles {
		claims.Roles = append(claims.Roles, string(r))
	}
	if actor.DepartmentID != nil {
		claims.DepartmentID = actor.DepartmentID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth.issueToken: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and validates a JWT token string. Returns the embedded claims.
func ValidateToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	if !token.Valid {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	return claims, nil
}

// ValidateAccessToken is ValidateToken that also rejects refresh tokens.
func ValidateAccessToken(secret, tokenString string) (*Claims, error) {
	claims, err := ValidateToken(secret, tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, fmt.Errorf("auth.ValidateAccessToken: %w", ErrInvalidToken)
	}
	return claims, nil
}

// Actor rebuilds the authorization snapshot carried by the token. Unknown
// roles and malformed ids make the token invalid.
func (c *Claims) Actor() (domain.Actor, error) {
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("auth.Claims.Actor: user id: %w", ErrInvalidToken)
	}

	roles := make([]domain.Role, 0, len(c.Roles))
	for _, r := range c.Roles {
		role := domain.Role(r)
		if !domain.ValidateRole(role) {
			return domain.Actor{}, fmt.Errorf("auth.Claims.Actor: role %q: %w", r, ErrInvalidToken)
		}
		roles = append(roles, role)
	}

	var dept *uuid.UUID
	if c.DepartmentID != "" {
		id, err := uuid.Parse(c.DepartmentID)
		if err != nil {
			return domain.Actor{}, fmt.Errorf("auth.Claims.Actor: department id: %w", ErrInvalidToken)
		}
		dept = &id
	}

	return domain.NewActor(userID, roles, dept), nil
}
