package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// Token roles.
const (
	RoleBridge = "bridge"
	RoleAdmin  = "admin"
)

var ErrTokenRole = errors.New("token role not allowed")

// Claims identify the caller of the bridge, webhook and admin endpoints.
type Claims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

type Manager struct {
	signingKey string
}

func NewManager(signingKey string) (*Manager, error) {
	if signingKey == "" {
		return nil, errors.New("empty signing key")
	}

	return &Manager{signingKey: signingKey}, nil
}

// NewJWT issues a token for subject with the given role. A zero ttl gives a
// token without expiry, used for the long-lived gateway credential.
func (m *Manager) NewJWT(subject, role string, ttl time.Duration) (string, error) {
	claims := Claims{
		Role: role,
		StandardClaims: jwt.StandardClaims{
			IssuedAt: time.Now().Unix(),
			Subject:  subject,
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = time.Now().Add(ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(m.signingKey))
}

// Parse validates the token signature and expiry and returns its claims.
func (m *Manager) Parse(accessToken string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.signingKey), nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Authorize parses the token and checks its role is one of roles.
func (m *Manager) Authorize(accessToken string, roles ...string) (*Claims, error) {
	claims, err := m.Parse(accessToken)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if claims.Role == r {
			return claims, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrTokenRole, claims.Role)
}
