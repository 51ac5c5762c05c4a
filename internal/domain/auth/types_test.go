package auth

import (
	"testing"
	"time"
)

func TestUser_HasAnyRole(t *testing.T) {
	u := &User{UserID: "u1", Roles: []Role{RoleClient, RoleAnalyst}}
	if !u.HasAnyRole(RoleAdmin, RoleAnalyst) {
		t.Fatalf("expected analyst membership")
	}
	if u.HasAnyRole(RoleAdmin) {
		t.Fatalf("did not expect admin")
	}
	var nilUser *User
	if nilUser.HasRole(RoleAdmin) {
		t.Fatalf("nil user holds no roles")
	}
}

func TestUser_CloneIsDeep(t *testing.T) {
	u := &User{UserID: "u1", Roles: []Role{RoleAdmin}}
	c := u.Clone()
	c.Roles[0] = RoleClient
	if u.Roles[0] != RoleAdmin {
		t.Fatalf("clone shares roles slice")
	}
}

func TestSessionState_Valid(t *testing.T) {
	tests := []struct {
		name  string
		state SessionState
		want  bool
	}{
		{name: "anonymous", state: AnonymousState(), want: true},
		{name: "authenticated without user", state: SessionState{IsAuthenticated: true, AccessToken: "a"}, want: false},
		{name: "authenticated without token", state: SessionState{IsAuthenticated: true, User: &User{}}, want: false},
		{name: "authenticated", state: SessionState{IsAuthenticated: true, User: &User{}, AccessToken: "a"}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Valid(); got != tt.want {
				t.Fatalf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenRecord_RemainingClampsAtZero(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	past := TokenRecord{ExpiresAt: now.Add(-time.Minute)}
	if got := past.Remaining(now); got != 0 {
		t.Fatalf("Remaining() = %v, want 0", got)
	}
	future := TokenRecord{ExpiresAt: now.Add(90 * time.Second)}
	if got := future.Remaining(now); got != 90*time.Second {
		t.Fatalf("Remaining() = %v, want 90s", got)
	}
}

func TestUser_DisplayName(t *testing.T) {
	if got := (&User{FirstName: "Ana", LastName: "Ruiz"}).DisplayName(); got != "Ana Ruiz" {
		t.Fatalf("DisplayName() = %q", got)
	}
	if got := (&User{Username: "aruiz"}).DisplayName(); got != "aruiz" {
		t.Fatalf("DisplayName() = %q", got)
	}
}
