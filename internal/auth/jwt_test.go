package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// newTestTokenService creates a TokenService with a fixed secret so tests are
// deterministic. Zero TTLs select the defaults.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", 0, 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short", 0, 0)
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_DefaultTTLs(t *testing.T) {
	ts := newTestTokenService(t)
	if ts.AccessTTL() != DefaultAccessTTL {
		t.Errorf("AccessTTL() = %v, want %v", ts.AccessTTL(), DefaultAccessTTL)
	}
	if ts.refreshTTL != DefaultRefreshTTL {
		t.Errorf("refreshTTL = %v, want %v", ts.refreshTTL, DefaultRefreshTTL)
	}
}

// =========================================================================
// GENERATE / VALIDATE TESTS
// =========================================================================

func TestGenerate_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("user-123")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// header.payload.signature
	if got := strings.Count(token, "."); got != 2 {
		t.Errorf("token has %d dots, want 2", got)
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("user-abc-123")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != "user-abc-123" {
		t.Errorf("Validate() userID = %q, want %q", got, "user-abc-123")
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.GenerateWithDuration("user-123", -time.Second)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}

	_, err = ts.Validate(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Validate() error = %v, want ErrTokenExpired", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	other, err := NewTokenService("wrong-secret-32-chars-long!!!!!!", 0, 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	good, _ := ts.Generate("user-123")
	foreign, _ := other.Generate("user-123")

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.jwt"},
		{name: "tampered signature", token: good[:len(good)-3] + "xxx"},
		{name: "signed with another secret", token: foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ts.Validate(tt.token); err == nil {
				t.Errorf("Validate(%q) should fail", tt.name)
			}
		})
	}
}

// =========================================================================
// TOKEN TYPE TESTS
// =========================================================================

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	ts := newTestTokenService(t)

	access, _ := ts.Generate("u1")
	refresh, _ := ts.GenerateRefresh("u1")
	state, _ := ts.GenerateState("u1")

	if _, err := ts.Validate(refresh); err == nil {
		t.Error("a refresh token must not validate as an access token")
	}
	if _, err := ts.Validate(state); err == nil {
		t.Error("a state token must not validate as an access token")
	}
	if _, err := ts.ValidateRefresh(access); err == nil {
		t.Error("an access token must not validate as a refresh token")
	}
	if _, err := ts.ValidateState(refresh); err == nil {
		t.Error("a refresh token must not validate as a state token")
	}

	if got, err := ts.ValidateRefresh(refresh); err != nil || got != "u1" {
		t.Errorf("ValidateRefresh() = %q, %v; want u1, nil", got, err)
	}
	if got, err := ts.ValidateState(state); err != nil || got != "u1" {
		t.Errorf("ValidateState() = %q, %v; want u1, nil", got, err)
	}
}
