package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/julianstephens/keeprun/internal/errors"
	"github.com/julianstephens/keeprun/internal/utils"
)

func newTestVerifier(t *testing.T, clock utils.Clock, opts Options) *Verifier {
	t.Helper()
	opts.Clock = clock
	v, err := NewVerifier("test-secret", opts)
	if err != nil {
		t.Fatalf("NewVerifier() failed: %v", err)
	}
	return v
}

func TestIssueAndVerify(t *testing.T) {
	clock := utils.NewFixedClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, clock, Options{Issuer: "keeprun-idp", Audience: "keeprun"})

	token, err := v.Issue(Identity{UserID: "u1", Email: "u1@example.com"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	id, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if id.UserID != "u1" || id.Email != "u1@example.com" {
		t.Errorf("Verify() = %+v", id)
	}

	clock.Advance(2 * time.Hour)
	if _, err := v.Verify(token); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Errorf("expired token: error = %v, want unauthorized", err)
	}
}

func TestVerifyRejects(t *testing.T) {
	clock := utils.NewFixedClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, clock, Options{Issuer: "keeprun-idp"})
	now := clock.Now()

	sign := func(method jwt.SigningMethod, key any, claims Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString() failed: %v", err)
		}
		return s
	}
	valid := jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    "keeprun-idp",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"
	noSubject := valid
	noSubject.Subject = ""
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong secret", token: sign(jwt.SigningMethodHS256, []byte("other"), Claims{RegisteredClaims: valid})},
		{name: "wrong algorithm", token: sign(jwt.SigningMethodHS512, []byte("test-secret"), Claims{RegisteredClaims: valid})},
		{name: "wrong issuer", token: sign(jwt.SigningMethodHS256, []byte("test-secret"), Claims{RegisteredClaims: wrongIssuer})},
		{name: "no subject", token: sign(jwt.SigningMethodHS256, []byte("test-secret"), Claims{RegisteredClaims: noSubject})},
		{name: "no expiry", token: sign(jwt.SigningMethodHS256, []byte("test-secret"), Claims{RegisteredClaims: noExpiry})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(tt.token); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
				t.Errorf("Verify() error = %v, want unauthorized", err)
			}
		})
	}
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	if _, err := NewVerifier("  ", Options{}); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":  "abc",
		"bearer abc":  "abc",
		"Basic abc":   "",
		"Bearer":      "",
		"":            "",
		"Bearer  xyz": "xyz",
	}
	for header, want := range tests {
		if got := BearerToken(header); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{UserID: "u1"})
	id, ok := FromContext(ctx)
	if !ok || id.UserID != "u1" {
		t.Errorf("FromContext() = %+v, %v", id, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context should have no identity")
	}
}
