package utils

import (
	"errors"
	"testing"
	"time"
)

func TestManagerRoundTrip(t *testing.T) {
	m, err := NewManager("secret")
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := m.NewJWT("gateway-1", RoleBridge, 0)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := m.Authorize(token, RoleBridge)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if claims.Subject != "gateway-1" || claims.Role != RoleBridge {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if _, err := m.Authorize(token, RoleAdmin); !errors.Is(err, ErrTokenRole) {
		t.Fatalf("bridge token must not pass admin check, got %v", err)
	}
}

func TestManagerExpiry(t *testing.T) {
	m, _ := NewManager("secret")
	other, _ := NewManager("other")

	token, _ := other.NewJWT("x", RoleAdmin, time.Hour)
	if _, err := m.Parse(token); err == nil {
		t.Fatalf("token signed with another key must be rejected")
	}

	forever, _ := m.NewJWT("x", RoleAdmin, -time.Minute)
	if _, err := m.Parse(forever); err != nil {
		t.Fatalf("negative ttl means no expiry, got %v", err)
	}

	short, _ := m.NewJWT("x", RoleAdmin, time.Nanosecond)
	time.Sleep(1100 * time.Millisecond)
	if _, err := m.Parse(short); err == nil {
		t.Fatalf("expired token must be rejected")
	}
}

func TestNewManagerRequiresKey(t *testing.T) {
	if _, err := NewManager(""); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
