// Package auth verifies bearer tokens minted by the identity provider and
// carries the caller's identity through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleStaff    Role = "staff"
	RoleReseller Role = "reseller"
	RoleCustomer Role = "customer"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID     string `json:"user_id"`
	Role       Role   `json:"role"`
	ResellerID *int64 `json:"reseller_id,omitempty"`
	Email      string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller.
type Identity struct {
	UserID     string
	Role       Role
	ResellerID *int64
	Email      string
}

type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

func (m *Manager) Issue(id Identity, now time.Time) (string, error) {
	claims := Claims{
		UserID:     id.UserID,
		Role:       id.Role,
		ResellerID: id.ResellerID,
		Email:      id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (m *Manager) Parse(token string) (*Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	switch claims.Role {
	case RoleStaff, RoleReseller, RoleCustomer:
	default:
		return nil, ErrInvalidToken
	}
	if claims.Role == RoleReseller && claims.ResellerID == nil {
		return nil, ErrInvalidToken
	}

	return &Identity{
		UserID:     claims.UserID,
		Role:       claims.Role,
		ResellerID: claims.ResellerID,
		Email:      claims.Email,
	}, nil
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the caller, or nil for anonymous requests.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(contextKey{}).(*Identity)
	return id
}

// CanManageReseller reports whether id may change pricing for resellerID:
// staff always, a reseller only for its own profile.
func CanManageReseller(id *Identity, resellerID int64) bool {
	if id == nil {
		return false
	}
	switch id.Role {
	case RoleStaff:
		return true
	case RoleReseller:
		return id.ResellerID != nil && *id.ResellerID == resellerID
	default:
		return false
	}
}
