package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestTokenIssuer_RoundTripThroughMiddleware(t *testing.T) {
	issuer := NewTokenIssuer(testSigningKey, "clinic", "clinic-api", 30*time.Minute)
	accountID := uuid.New()

	token, err := issuer.Issue(accountID, "ion@example.com", []string{RolePatient})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	var got Principal
	cfg := JWTConfig{SigningKey: testSigningKey, Issuer: "clinic", Audience: "clinic-api"}
	err = runJWT(t, cfg, "Bearer "+token, func(c echo.Context) error {
		got = PrincipalFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err != nil {
		t.Fatalf("middleware rejected issued token: %v", err)
	}
	if got.ID != accountID || got.Email != "ion@example.com" || !got.HasRole(RolePatient) {
		t.Errorf("unexpected principal: %+v", got)
	}
}

func TestTokenIssuer_Claims(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer(testSigningKey, "clinic", "clinic-api", time.Hour)
	issuer.now = func() time.Time { return fixed }

	token, err := issuer.Issue(uuid.New(), "a@b.c", []string{RoleAdmin})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return testSigningKey, nil
	}); err != nil {
		t.Fatalf("parse token: %v", err)
	}

	if !claims.ExpiresAt.Time.Equal(fixed.Add(time.Hour)) {
		t.Errorf("expected exp %s, got %s", fixed.Add(time.Hour), claims.ExpiresAt.Time)
	}
	if claims.ID == "" {
		t.Error("expected jti claim")
	}
	if claims.Issuer != "clinic" || len(claims.Audience) != 1 || claims.Audience[0] != "clinic-api" {
		t.Errorf("unexpected iss/aud: %s %v", claims.Issuer, claims.Audience)
	}
}

func TestTokenIssuer_UniqueJTI(t *testing.T) {
	issuer := NewTokenIssuer(testSigningKey, "", "", time.Minute)
	a, _ := issuer.Issue(uuid.New(), "x@y.z", nil)
	b, _ := issuer.Issue(uuid.New(), "x@y.z", nil)
	if a == b {
		t.Error("expected distinct tokens")
	}
}
