package jwt

import (
	"testing"
	"time"

	"ce_platform/internal/models"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

func TestNewTokenCarriesClaims(t *testing.T) {
	user := models.Profile{ID: 7, Email: "jane@example.com", IsAdmin: true}

	raw, err := NewToken(user, "secret", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	parsed, err := jwtlib.Parse(raw, func(*jwtlib.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok || !parsed.Valid {
		t.Fatal("token did not validate")
	}
	if claims["email"] != "jane@example.com" {
		t.Errorf("email claim = %v", claims["email"])
	}
	if claims["admin"] != true {
		t.Errorf("admin claim = %v", claims["admin"])
	}
	if int64(claims["sub"].(float64)) != 7 {
		t.Errorf("sub claim = %v", claims["sub"])
	}
}

func TestNewTokenRejectsWrongSecret(t *testing.T) {
	raw, err := NewToken(models.Profile{ID: 7}, "secret", time.Minute)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	_, err = jwtlib.Parse(raw, func(*jwtlib.Token) (interface{}, error) {
		return []byte("other"), nil
	})
	if err == nil {
		t.Fatal("token validated with the wrong secret")
	}
}

func TestNewRefreshTokenUnique(t *testing.T) {
	a, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	b, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if a == b {
		t.Error("refresh tokens must not repeat")
	}
	if len(a) < 40 {
		t.Errorf("refresh token too short: %d chars", len(a))
	}
}
