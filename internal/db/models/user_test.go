package models

import (
	"testing"
	"time"
)

func TestUserIsActive(t *testing.T) {
	u := &User{Status: UserStatusActive}
	if !u.IsActive() {
		t.Error("IsActive() = false for active user")
	}
	u.Status = UserStatusInactive
	if u.IsActive() {
		t.Error("IsActive() = true for inactive user")
	}
}

func TestUserIsLocked(t *testing.T) {
	now := time.Now()

	t.Run("nil locked_until", func(t *testing.T) {
		u := &User{}
		if u.IsLocked(now) {
			t.Error("IsLocked() = true with nil LockedUntil")
		}
	})

	t.Run("future locked_until", func(t *testing.T) {
		until := now.Add(10 * time.Minute)
		u := &User{LockedUntil: &until}
		if !u.IsLocked(now) {
			t.Error("IsLocked() = false with future LockedUntil")
		}
		remaining := u.LockRemaining(now)
		if remaining != 10*time.Minute {
			t.Errorf("LockRemaining() = %v, want 10m", remaining)
		}
	})

	t.Run("expired locked_until", func(t *testing.T) {
		until := now.Add(-time.Minute)
		u := &User{LockedUntil: &until}
		if u.IsLocked(now) {
			t.Error("IsLocked() = true with expired LockedUntil")
		}
		if u.LockRemaining(now) != 0 {
			t.Errorf("LockRemaining() = %v, want 0", u.LockRemaining(now))
		}
	})
}

func TestUserSanitized(t *testing.T) {
	u := &User{
		ID:           "abc",
		Email:        "maria@autoescolaideal.com",
		Name:         "Maria",
		PasswordHash: "$2a$12$secret",
		Unit:         "coop",
		Role:         "user",
		Status:       UserStatusActive,
	}

	out := u.Sanitized()

	if _, ok := out["password_hash"]; ok {
		t.Error("Sanitized() leaked password_hash")
	}
	if _, ok := out["passwordHash"]; ok {
		t.Error("Sanitized() leaked passwordHash")
	}
	if out["email"] != "maria@autoescolaideal.com" {
		t.Errorf("Sanitized() email = %v", out["email"])
	}
	if out["unidade"] != "coop" {
		t.Errorf("Sanitized() unidade = %v", out["unidade"])
	}
	perms, ok := out["permissions"].([]string)
	if !ok || perms == nil {
		t.Error("Sanitized() permissions should be a non-nil slice")
	}
	if len(perms) != 0 {
		t.Errorf("Sanitized() permissions = %v, want empty", perms)
	}
}
