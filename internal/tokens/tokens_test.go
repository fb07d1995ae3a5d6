package tokens

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"ce_platform/internal/config"
	"ce_platform/internal/models"
	"ce_platform/internal/storage"
)

type stubStore struct {
	upserts  int
	consumes int

	upsertFn  func(ownerID int64, secret string, purpose models.TokenPurpose, expiresAt time.Time) error
	tokenFn   func(secret string) (models.AuthToken, error)
	consumeFn func(secret string) (bool, error)
}

func (s *stubStore) UpsertAuthToken(_ context.Context, ownerID int64, secret string, purpose models.TokenPurpose, expiresAt time.Time) error {
	s.upserts++
	if s.upsertFn != nil {
		return s.upsertFn(ownerID, secret, purpose, expiresAt)
	}
	return nil
}

func (s *stubStore) AuthToken(_ context.Context, secret string) (models.AuthToken, error) {
	if s.tokenFn != nil {
		return s.tokenFn(secret)
	}
	return models.AuthToken{}, storage.ErrTokenNotFound
}

func (s *stubStore) ConsumeAuthToken(_ context.Context, secret string) (bool, error) {
	s.consumes++
	if s.consumeFn != nil {
		return s.consumeFn(secret)
	}
	return true, nil
}

type stubUsers struct {
	byEmail map[string]models.Profile
	byID    map[int64]models.Profile
}

func (s *stubUsers) User(_ context.Context, email string) (models.Profile, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return models.Profile{}, storage.ErrUserNotFound
	}
	return u, nil
}

func (s *stubUsers) UserByID(_ context.Context, id int64) (models.Profile, error) {
	u, ok := s.byID[id]
	if !ok {
		return models.Profile{}, storage.ErrUserNotFound
	}
	return u, nil
}

type dispatchCall struct {
	recipient string
	subject   string
	html      string
	category  string
}

type stubDispatcher struct {
	calls []dispatchCall
	err   error
}

func (s *stubDispatcher) Dispatch(_ context.Context, recipient, subject, html, _, category string) (string, error) {
	s.calls = append(s.calls, dispatchCall{recipient: recipient, subject: subject, html: html, category: category})
	if s.err != nil {
		return "", s.err
	}
	return "msg-1", nil
}

type stubAccounts struct {
	passwordUpdates int
	sessions        int

	updateErr  error
	sessionErr error

	lastUserID   int64
	lastPassword string
}

func (s *stubAccounts) UpdatePassword(_ context.Context, userID int64, newPassword string) error {
	s.passwordUpdates++
	s.lastUserID = userID
	s.lastPassword = newPassword
	return s.updateErr
}

func (s *stubAccounts) EstablishSession(_ context.Context, userID int64) (models.SessionPair, error) {
	s.sessions++
	s.lastUserID = userID
	if s.sessionErr != nil {
		return models.SessionPair{}, s.sessionErr
	}
	return models.SessionPair{AccessToken: "access", RefreshToken: "refresh"}, nil
}

type stubGuard struct {
	first  bool
	err    error
	marks  int
	clears int
}

func (g *stubGuard) MarkTokenRedeemed(_ context.Context, _ string, _ time.Duration) (bool, error) {
	g.marks++
	return g.first, g.err
}

func (g *stubGuard) ClearTokenRedeemed(_ context.Context, _ string) error {
	g.clears++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(store *stubStore, users *stubUsers, d *stubDispatcher, a *stubAccounts, g RedeemGuard) *Service {
	return New(
		discardLogger(), store, users, d, a, g,
		"https://realedu.example",
		time.Hour,
		config.Branding{SchoolName: "RealEdu", SupportEmail: "info@realedu.example"},
	)
}

func validToken(purpose models.TokenPurpose) models.AuthToken {
	return models.AuthToken{
		ID:        1,
		OwnerID:   7,
		Secret:    "secret-1",
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}
}

func TestIssueUnknownEmailMaskedAsSuccess(t *testing.T) {
	store := &stubStore{}
	dispatcher := &stubDispatcher{}
	svc := newService(store, &stubUsers{}, dispatcher, &stubAccounts{}, nil)

	err := svc.Issue(context.Background(), "nobody@example.com", models.PurposePasswordReset)
	if err != nil {
		t.Fatalf("expected masked success, got %v", err)
	}
	if store.upserts != 0 {
		t.Errorf("expected no token stored, got %d upserts", store.upserts)
	}
	if len(dispatcher.calls) != 0 {
		t.Errorf("expected no email sent, got %d dispatches", len(dispatcher.calls))
	}
}

func TestIssueRejectsMalformedEmail(t *testing.T) {
	svc := newService(&stubStore{}, &stubUsers{}, &stubDispatcher{}, &stubAccounts{}, nil)

	err := svc.Issue(context.Background(), "not-an-email", models.PurposePasswordReset)
	if !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestIssueStoresTokenAndDispatchesLink(t *testing.T) {
	var gotSecret string
	var gotExpiry time.Time

	store := &stubStore{
		upsertFn: func(ownerID int64, secret string, purpose models.TokenPurpose, expiresAt time.Time) error {
			if ownerID != 7 {
				t.Errorf("owner id = %d, want 7", ownerID)
			}
			if purpose != models.PurposePasswordReset {
				t.Errorf("purpose = %s, want password_reset", purpose)
			}
			gotSecret = secret
			gotExpiry = expiresAt
			return nil
		},
	}
	users := &stubUsers{byEmail: map[string]models.Profile{
		"jane@example.com": {ID: 7, Email: "jane@example.com"},
	}}
	dispatcher := &stubDispatcher{}

	svc := newService(store, users, dispatcher, &stubAccounts{}, nil)

	if err := svc.Issue(context.Background(), "Jane@Example.com", models.PurposePasswordReset); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if gotSecret == "" {
		t.Fatal("no secret stored")
	}

	wantExpiry := time.Now().Add(time.Hour)
	if gotExpiry.Before(wantExpiry.Add(-time.Minute)) || gotExpiry.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("expiry = %v, want about %v", gotExpiry, wantExpiry)
	}

	if len(dispatcher.calls) != 1 {
		t.Fatalf("dispatches = %d, want 1", len(dispatcher.calls))
	}
	call := dispatcher.calls[0]
	if call.category != "password-reset" {
		t.Errorf("category = %q", call.category)
	}
	if !strings.Contains(call.html, "/reset-password?token="+gotSecret) {
		t.Errorf("email body missing redemption link: %q", call.html)
	}
}

func TestIssueFailsWhenDispatchFails(t *testing.T) {
	users := &stubUsers{byEmail: map[string]models.Profile{
		"jane@example.com": {ID: 7, Email: "jane@example.com"},
	}}
	dispatcher := &stubDispatcher{err: errors.New("mailgun down")}

	svc := newService(&stubStore{}, users, dispatcher, &stubAccounts{}, nil)

	if err := svc.Issue(context.Background(), "jane@example.com", models.PurposeMagicLink); err == nil {
		t.Fatal("expected error when dispatch fails")
	}
}

func TestRedeemPasswordResetHappyPath(t *testing.T) {
	store := &stubStore{
		tokenFn: func(secret string) (models.AuthToken, error) {
			return validToken(models.PurposePasswordReset), nil
		},
	}
	users := &stubUsers{byID: map[int64]models.Profile{
		7: {ID: 7, Email: "jane@example.com"},
	}}
	accounts := &stubAccounts{}

	svc := newService(store, users, &stubDispatcher{}, accounts, nil)

	err := svc.RedeemPasswordReset(context.Background(), "secret-1", "jane@example.com", "new-password-1")
	if err != nil {
		t.Fatalf("RedeemPasswordReset: %v", err)
	}
	if accounts.passwordUpdates != 1 {
		t.Errorf("password updates = %d, want 1", accounts.passwordUpdates)
	}
	if accounts.lastUserID != 7 || accounts.lastPassword != "new-password-1" {
		t.Errorf("effect applied to wrong target: uid=%d pass=%q", accounts.lastUserID, accounts.lastPassword)
	}
	if store.consumes != 1 {
		t.Errorf("consumes = %d, want 1", store.consumes)
	}
}

func TestRedeemUnknownOrUsedToken(t *testing.T) {
	accounts := &stubAccounts{}
	svc := newService(&stubStore{}, &stubUsers{}, &stubDispatcher{}, accounts, nil)

	err := svc.RedeemPasswordReset(context.Background(), "gone", "jane@example.com", "new-password-1")
	if !errors.Is(err, ErrInvalidOrUsedToken) {
		t.Fatalf("expected ErrInvalidOrUsedToken, got %v", err)
	}
	if accounts.passwordUpdates != 0 {
		t.Error("effect must not run for an unknown token")
	}
}

func TestRedeemExpiredTokenLeftUnconsumed(t *testing.T) {
	store := &stubStore{
		tokenFn: func(string) (models.AuthToken, error) {
			tok := validToken(models.PurposePasswordReset)
			tok.ExpiresAt = time.Now().Add(-time.Minute)
			return tok, nil
		},
	}
	accounts := &stubAccounts{}

	svc := newService(store, &stubUsers{}, &stubDispatcher{}, accounts, nil)

	err := svc.RedeemPasswordReset(context.Background(), "secret-1", "jane@example.com", "new-password-1")
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if store.consumes != 0 {
		t.Error("expired token must stay unused")
	}
	if accounts.passwordUpdates != 0 {
		t.Error("effect must not run for an expired token")
	}
}

func TestRedeemPurposeMismatch(t *testing.T) {
	store := &stubStore{
		tokenFn: func(string) (models.AuthToken, error) {
			return validToken(models.PurposeMagicLink), nil
		},
	}

	svc := newService(store, &stubUsers{}, &stubDispatcher{}, &stubAccounts{}, nil)

	err := svc.RedeemPasswordReset(context.Background(), "secret-1", "jane@example.com", "new-password-1")
	if !errors.Is(err, ErrInvalidOrUsedToken) {
		t.Fatalf("expected ErrInvalidOrUsedToken for wrong purpose, got %v", err)
	}
}

func TestRedeemEmailMismatch(t *testing.T) {
	store := &stubStore{
		tokenFn: func(string) (models.AuthToken, error) {
			return validToken(models.PurposePasswordReset), nil
		},
	}
	users := &stubUsers{byID: map[int64]models.Profile{
		7: {ID: 7, Email: "jane@example.com"},
	}}
	accounts := &stubAccounts{}

	svc := newService(store, users, &stubDispatcher{}, accounts, nil)

	err := svc.RedeemPasswordReset(context.Background(), "secret-1", "mallory@example.com", "new-password-1")
	if !errors.Is(err, ErrEmailMismatch) {
		t.Fatalf("expected ErrEmailMismatch, got %v", err)
	}
	if accounts.passwordUpdates != 0 || store.consumes != 0 {
		t.Error("neither effect nor consume may run on email mismatch")
	}
}

func TestRedeemEffectFailureLeavesTokenRedeemable(t *testing.T) {
	store := &stubStore{
		tokenFn: func(string) (models.AuthToken, error) {
			return validToken(models.PurposePasswordReset), nil
		},
	}
	users := &stubUsers{byID: map[int64]models.Profile{
		7: {ID: 7, Email: "jane@example.com"},
	}}
	accounts := &stubAccounts{updateErr: errors.New("db down")}

	svc := newService(store, users, &stubDispatcher{}, accounts, nil)

	err := svc.RedeemPasswordReset(context.Background(), "secret-1", "jane@example.com", "new-password-1")
	if err == nil {
		t.Fatal("expected error when the effect fails")
	}
	if store.consumes != 0 {
		t.Error("token must stay unused when the effect fails")
	}
}

func TestRedeemConsumeFailureTolerated(t *testing.T) {
	store := &stubStore{
		tokenFn: func(string) (models.AuthToken, error) {
			return validToken(models.PurposePasswordReset), nil
		},
		consumeFn: func(string) (bool, error) {
			return false, errors.New("db down")
		},
	}
	users := &stubUsers{byID: map[int64]models.Profile{
		7: {ID: 7, Email: "jane@example.com"},
	}}

	svc := newService(store, users, &stubDispatcher{}, &stubAccounts{}, nil)

	// The password already changed; a failed consume is logged, not
	// surfaced.
	err := svc.RedeemPasswordReset(context.Background(), "secret-1", "jane@example.com", "new-password-1")
	if err != nil {
		t.Fatalf("expected success despite consume failure, got %v", err)
	}
}

func TestRedeemMagicLinkReturnsSession(t *testing.T) {
	store := &stubStore{
		tokenFn: func(string) (models.AuthToken, error) {
			return validToken(models.PurposeMagicLink), nil
		},
	}
	users := &stubUsers{byID: map[int64]models.Profile{
		7: {ID: 7, Email: "jane@example.com"},
	}}
	accounts := &stubAccounts{}

	svc := newService(store, users, &stubDispatcher{}, accounts, nil)

	pair, err := svc.RedeemMagicLink(context.Background(), "secret-1", "jane@example.com")
	if err != nil {
		t.Fatalf("RedeemMagicLink: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("expected a full session pair")
	}
	if store.consumes != 1 {
		t.Errorf("consumes = %d, want 1", store.consumes)
	}
}

func TestRedeemGuardBlocksSecondAttempt(t *testing.T) {
	store := &stubStore{
		tokenFn: func(string) (models.AuthToken, error) {
			t.Fatal("store must not be hit when the guard rejects")
			return models.AuthToken{}, nil
		},
	}
	guard := &stubGuard{first: false}

	svc := newService(store, &stubUsers{}, &stubDispatcher{}, &stubAccounts{}, guard)

	err := svc.RedeemPasswordReset(context.Background(), "secret-1", "jane@example.com", "new-password-1")
	if !errors.Is(err, ErrInvalidOrUsedToken) {
		t.Fatalf("expected ErrInvalidOrUsedToken, got %v", err)
	}
}

func TestRedeemGuardClearedOnValidationFailure(t *testing.T) {
	guard := &stubGuard{first: true}

	svc := newService(&stubStore{}, &stubUsers{}, &stubDispatcher{}, &stubAccounts{}, guard)

	_ = svc.RedeemPasswordReset(context.Background(), "gone", "jane@example.com", "new-password-1")
	if guard.clears != 1 {
		t.Errorf("guard clears = %d, want 1", guard.clears)
	}
}

func TestRedeemGuardErrorDoesNotBlock(t *testing.T) {
	store := &stubStore{
		tokenFn: func(string) (models.AuthToken, error) {
			return validToken(models.PurposePasswordReset), nil
		},
	}
	users := &stubUsers{byID: map[int64]models.Profile{
		7: {ID: 7, Email: "jane@example.com"},
	}}
	guard := &stubGuard{err: errors.New("redis down")}

	svc := newService(store, users, &stubDispatcher{}, &stubAccounts{}, guard)

	err := svc.RedeemPasswordReset(context.Background(), "secret-1", "jane@example.com", "new-password-1")
	if err != nil {
		t.Fatalf("guard failure must not block redemption, got %v", err)
	}
}
