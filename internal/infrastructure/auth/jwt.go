package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/identity"
	"github.com/stockledger/backend/internal/infrastructure/config"
)

// TokenType represents the type of JWT token
type TokenType string

// TokenTypeAccess is the only token type accepted by the ledger API
const TokenTypeAccess TokenType = "access"

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingTenantID  = errors.New("missing tenant_id in claims")
	ErrMissingActor     = errors.New("missing user_id and device_id in claims")
)

// Claims represents the access token claims issued by the identity service.
// A token carries a user, a device, or both.
type Claims struct {
	jwt.RegisteredClaims
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id,omitempty"`
	DeviceID    string    `json:"device_id,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	TokenType   TokenType `json:"token_type"`
}

// JWTService validates access tokens. Tokens are minted elsewhere.
type JWTService struct {
	secret []byte
	issuer string
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
	}
}

// ValidateAccessToken validates an access token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
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
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrInvalidTokenType
	}
	if claims.TenantID == "" {
		return nil, ErrMissingTenantID
	}
	if claims.UserID == "" && claims.DeviceID == "" {
		return nil, ErrMissingActor
	}

	return claims, nil
}

// GetTenantUUID extracts and parses the tenant ID from claims
func (c *Claims) GetTenantUUID() (uuid.UUID, error) {
	return identity.ParseTenantID(c.TenantID)
}

// Actor builds the ledger actor from the user and device claims
func (c *Claims) Actor() (identity.Actor, error) {
	var actor identity.Actor
	if c.UserID != "" {
		id, err := uuid.Parse(c.UserID)
		if err != nil {
			return identity.Actor{}, ErrInvalidClaims
		}
		actor.UserID = &id
	}
	if c.DeviceID != "" {
		id, err := uuid.Parse(c.DeviceID)
		if err != nil {
			return identity.Actor{}, ErrInvalidClaims
		}
		actor.DeviceID = &id
	}
	actor = actor.Normalized()
	if err := actor.Validate(); err != nil {
		return identity.Actor{}, ErrMissingActor
	}
	return actor, nil
}

// PermissionSet parses the permission claims. Unknown codes invalidate the token.
func (c *Claims) PermissionSet() (identity.PermissionSet, error) {
	set, err := identity.ParsePermissionSet(c.Permissions)
	if err != nil {
		return identity.PermissionSet{}, ErrInvalidClaims
	}
	return set, nil
}
