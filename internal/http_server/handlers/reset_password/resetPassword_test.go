package resetPassword

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	resp "ce_platform/internal/lib/api/response"
	"ce_platform/internal/tokens"

	"github.com/go-playground/validator/v10"
)

type stubResetter struct {
	err   error
	calls int
}

func (s *stubResetter) RedeemPasswordReset(_ context.Context, _, _, _ string) error {
	s.calls++
	return s.err
}

func perform(t *testing.T, resetter *stubResetter, body string) *httptest.ResponseRecorder {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := New(log, validator.New(), resetter)

	req := httptest.NewRequest(http.MethodPost, "/auth/reset-password", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler(rec, req)

	return rec
}

func validBody() string {
	return `{"token":"secret-1","email":"jane@example.com","new_password":"new-password-1"}`
}

func TestResetPasswordSuccess(t *testing.T) {
	resetter := &stubResetter{}

	rec := perform(t, resetter, validBody())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resetter.calls != 1 {
		t.Errorf("service calls = %d, want 1", resetter.calls)
	}

	var body resp.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Status != resp.StatusOK {
		t.Errorf("response status = %q", body.Status)
	}
}

func TestResetPasswordFailureReasons(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		message string
	}{
		{"used token", tokens.ErrInvalidOrUsedToken, "Invalid or already used reset link"},
		{"expired token", tokens.ErrTokenExpired, "Reset link has expired, please request a new one"},
		{"email mismatch", tokens.ErrEmailMismatch, "Email does not match this reset link"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := perform(t, &stubResetter{err: tc.err}, validBody())

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}

			var body resp.Response
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal response: %v", err)
			}
			if body.Error != tc.message {
				t.Errorf("error = %q, want %q", body.Error, tc.message)
			}
		})
	}
}

func TestResetPasswordValidation(t *testing.T) {
	cases := []string{
		`{`,
		`{"token":"","email":"jane@example.com","new_password":"new-password-1"}`,
		`{"token":"secret-1","email":"broken","new_password":"new-password-1"}`,
		`{"token":"secret-1","email":"jane@example.com","new_password":"short"}`,
	}

	for _, body := range cases {
		resetter := &stubResetter{}
		rec := perform(t, resetter, body)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
		if resetter.calls != 0 {
			t.Errorf("body %s: service must not be called", body)
		}
	}
}
