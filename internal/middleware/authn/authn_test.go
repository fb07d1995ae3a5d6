package authn

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ce_platform/internal/lib/jwt"
	"ce_platform/internal/models"
)

const secret = "test-secret"

func token(t *testing.T, isAdmin bool) string {
	t.Helper()

	raw, err := jwt.NewToken(models.Profile{ID: 7, Email: "jane@example.com", IsAdmin: isAdmin}, secret, time.Minute)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	return raw
}

func perform(mw func(http.Handler) http.Handler, authorization string) *httptest.ResponseRecorder {
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	return rec
}

func TestRequireRejectsMissingToken(t *testing.T) {
	rec := perform(Require(secret), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireRejectsMangledToken(t *testing.T) {
	for _, header := range []string{"Bearer ", "Bearer not-a-jwt", token(t, false)} {
		rec := perform(Require(secret), header)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestRequireRejectsWrongSecret(t *testing.T) {
	raw, err := jwt.NewToken(models.Profile{ID: 7}, "other-secret", time.Minute)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	rec := perform(Require(secret), "Bearer "+raw)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireRejectsExpiredToken(t *testing.T) {
	raw, err := jwt.NewToken(models.Profile{ID: 7}, secret, -time.Minute)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	rec := perform(Require(secret), "Bearer "+raw)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequirePassesValidToken(t *testing.T) {
	rec := perform(Require(secret), "Bearer "+token(t, false))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestRequireAdminRejectsNonAdmin(t *testing.T) {
	rec := perform(RequireAdmin(secret), "Bearer "+token(t, false))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRequireAdminPassesAdmin(t *testing.T) {
	rec := perform(RequireAdmin(secret), "Bearer "+token(t, true))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}
