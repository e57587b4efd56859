package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestVerifyRoundTrip(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)
	subject := uuid.New()

	token, err := m.GenerateAccessToken(subject, RoleStaff, "State Public Works")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	identity, err := m.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.Subject != subject {
		t.Fatalf("expected subject %s got %s", subject, identity.Subject)
	}
	if !identity.HasRole(RoleStaff) || identity.HasRole(RoleCitizen) {
		t.Fatalf("unexpected role %q", identity.Role)
	}
	if identity.Department != "State Public Works" {
		t.Fatalf("unexpected department %q", identity.Department)
	}
	if identity.ExpiresAt.IsZero() {
		t.Fatalf("expected expiry to be populated")
	}
}

func TestVerifyFailures(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)
	other := NewJWTManager("fedcba9876543210fedcba9876543210", time.Hour)

	foreign, _ := other.GenerateAccessToken(uuid.New(), RoleCitizen, "")

	expired := NewJWTManager(testSecret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _ := expired.GenerateAccessToken(uuid.New(), RoleCitizen, "")

	badRole, _ := m.GenerateAccessToken(uuid.New(), "admin", "")

	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: RoleCitizen,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             RoleCitizen,
		RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()},
	}).SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"blank", "   ", ErrMissingToken},
		{"garbage", "abc.def.ghi", ErrInvalidToken},
		{"wrong secret", foreign, ErrInvalidToken},
		{"expired", stale, ErrInvalidToken},
		{"unknown role", badRole, ErrInvalidToken},
		{"subject not uuid", badSubject, ErrInvalidToken},
		{"no expiry", noExpiry, ErrInvalidToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Verify(tc.token)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v got %v", tc.want, err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":  "abc",
		"bearer  xyz": "xyz",
		"Basic abc":   "",
		"abc":         "",
		"":            "",
	}
	for header, want := range tests {
		if got := BearerToken(header); got != want {
			t.Fatalf("BearerToken(%q) = %q want %q", header, got, want)
		}
	}
}
