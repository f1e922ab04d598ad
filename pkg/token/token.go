package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gigbridge-platform/pkg/config"
	"gigbridge-platform/pkg/errutil"
)

const (
	AccessCookie  = "gb_access"
	RefreshCookie = "gb_refresh"

	kindAccess  = "access"
	kindRefresh = "refresh"
)

// Claims carried by both the access and refresh token. Role is baked into the
// token so the authorization middleware never hits the database.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		secret:     []byte(cfg.Auth.Secret),
		accessTTL:  cfg.Auth.AccessTokenTTL,
		refreshTTL: cfg.Auth.RefreshTokenTTL,
	}
}

// Pair issues the access/refresh token pair for a user.
func (m *Manager) Pair(userID, role string) (access string, refresh string, err error) {
	access, err = m.sign(userID, role, kindAccess, m.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = m.sign(userID, role, kindRefresh, m.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (m *Manager) sign(userID, role, kind string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "gigbridge",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// VerifyAccess validates an access token and returns its claims.
func (m *Manager) VerifyAccess(raw string) (*Claims, error) {
	return m.verify(raw, kindAccess)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (m *Manager) VerifyRefresh(raw string) (*Claims, error) {
	return m.verify(raw, kindRefresh)
}

func (m *Manager) verify(raw, kind string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errutil.Unauthorized("invalid or expired token", errutil.WithErr(err))
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Kind != kind {
		return nil, errutil.Unauthorized("invalid token claims")
	}
	return claims, nil
}

// AccessTTL exposes the access token lifetime for cookie max-age.
func (m *Manager) AccessTTL() time.Duration { return m.accessTTL }

// RefreshTTL exposes the refresh token lifetime for cookie max-age.
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }
