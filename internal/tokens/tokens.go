// Package tokens implements the password-reset and magic-link lifecycle:
// single-use, time-limited secrets issued by email and redeemed for a
// password change or an authenticated session.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"ce_platform/internal/config"
	"ce_platform/internal/lib/emailaddr"
	sl "ce_platform/internal/lib/logger"
	"ce_platform/internal/models"
	"ce_platform/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidOrUsedToken covers unknown, already-consumed and
	// overwritten secrets; the three are indistinguishable by design.
	ErrInvalidOrUsedToken = errors.New("invalid or used token")
	ErrTokenExpired       = errors.New("token expired")
	ErrEmailMismatch      = errors.New("email does not match token owner")
)

type TokenStore interface {
	UpsertAuthToken(ctx context.Context, ownerID int64, secret string, purpose models.TokenPurpose, expiresAt time.Time) error
	AuthToken(ctx context.Context, secret string) (models.AuthToken, error)
	ConsumeAuthToken(ctx context.Context, secret string) (bool, error)
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.Profile, error)
	UserByID(ctx context.Context, id int64) (models.Profile, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, recipient, subject, html, text, category string) (string, error)
}

// AccountManager applies the redemption effect: a password change or a
// fresh session.
type AccountManager interface {
	UpdatePassword(ctx context.Context, userID int64, newPassword string) error
	EstablishSession(ctx context.Context, userID int64) (models.SessionPair, error)
}

// RedeemGuard is an optional fast-path in front of the database consume,
// backed by redis SETNX. Best-effort: guard errors never fail redemption.
type RedeemGuard interface {
	MarkTokenRedeemed(ctx context.Context, secret string, ttl time.Duration) (bool, error)
	ClearTokenRedeemed(ctx context.Context, secret string) error
}

type Service struct {
	log        *slog.Logger
	store      TokenStore
	users      UserProvider
	dispatcher Dispatcher
	accounts   AccountManager
	guard      RedeemGuard
	publicURL  string
	tokenTTL   time.Duration
	brand      config.Branding
}

func New(
	log *slog.Logger,
	store TokenStore,
	users UserProvider,
	dispatcher Dispatcher,
	accounts AccountManager,
	guard RedeemGuard,
	publicURL string,
	tokenTTL time.Duration,
	brand config.Branding,
) *Service {
	return &Service{
		log:        log,
		store:      store,
		users:      users,
		dispatcher: dispatcher,
		accounts:   accounts,
		guard:      guard,
		publicURL:  publicURL,
		tokenTTL:   tokenTTL,
		brand:      brand,
	}
}

// Issue creates a single-use token for the given purpose and mails the
// redemption link.
//
// When the email is not in the system, Issue still returns nil and does
// nothing: the caller must not be able to tell registered and unknown
// addresses apart. Do not "fix" this by surfacing the lookup failure.
func (s *Service) Issue(ctx context.Context, email string, purpose models.TokenPurpose) error {
	const op = "tokens.Service.Issue"

	log := s.log.With(slog.String("op", op), slog.String("purpose", string(purpose)))

	if !emailaddr.Valid(email) {
		return ErrInvalidEmail
	}

	user, err := s.users.User(ctx, emailaddr.Normalize(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// Anti-enumeration: report success, send nothing. The true
			// cause is visible only here in the logs.
			log.Info("token requested for unknown email, masking as success")
			return nil
		}

		log.Error("failed to look up user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	secret := uuid.NewString()
	expiresAt := time.Now().Add(s.tokenTTL)

	if err := s.store.UpsertAuthToken(ctx, user.ID, secret, purpose, expiresAt); err != nil {
		log.Error("failed to store token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	link := s.redemptionURL(secret, email, purpose)
	subject, html, text := renderTokenEmail(s.brand, purpose, link)

	if _, err := s.dispatcher.Dispatch(ctx, email, subject, html, text, category(purpose)); err != nil {
		log.Error("failed to dispatch token email", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("token issued", slog.Int64("owner_id", user.ID))

	return nil
}

// RedeemPasswordReset validates the token and sets the new password.
func (s *Service) RedeemPasswordReset(ctx context.Context, secret, email, newPassword string) error {
	const op = "tokens.Service.RedeemPasswordReset"

	tok, err := s.validate(ctx, secret, email, models.PurposePasswordReset)
	if err != nil {
		return err
	}

	// Effect before consume: a password that changed with a token left
	// unused beats a consumed token with an unchanged password.
	if err := s.accounts.UpdatePassword(ctx, tok.OwnerID, newPassword); err != nil {
		s.clearGuard(ctx, secret)
		return fmt.Errorf("%s: %w", op, err)
	}

	s.consume(ctx, secret)

	return nil
}

// RedeemMagicLink validates the token and establishes a session.
func (s *Service) RedeemMagicLink(ctx context.Context, secret, email string) (models.SessionPair, error) {
	const op = "tokens.Service.RedeemMagicLink"

	tok, err := s.validate(ctx, secret, email, models.PurposeMagicLink)
	if err != nil {
		return models.SessionPair{}, err
	}

	pair, err := s.accounts.EstablishSession(ctx, tok.OwnerID)
	if err != nil {
		s.clearGuard(ctx, secret)
		return models.SessionPair{}, fmt.Errorf("%s: %w", op, err)
	}

	s.consume(ctx, secret)

	return pair, nil
}

// validate runs the redemption checks in order: guard, lookup (unused
// only), expiry, purpose, owner email. An expired token is left unused
// for audit; time alone already makes it unredeemable.
func (s *Service) validate(
	ctx context.Context,
	secret, email string,
	purpose models.TokenPurpose,
) (models.AuthToken, error) {
	const op = "tokens.Service.validate"

	log := s.log.With(slog.String("op", op), slog.String("purpose", string(purpose)))

	if secret == "" || !emailaddr.Valid(email) {
		return models.AuthToken{}, ErrInvalidOrUsedToken
	}

	if s.guard != nil {
		first, err := s.guard.MarkTokenRedeemed(ctx, secret, s.tokenTTL)
		if err != nil {
			log.Warn("redeem guard unavailable", sl.Err(err))
		} else if !first {
			return models.AuthToken{}, ErrInvalidOrUsedToken
		}
	}

	fail := func(reason error) (models.AuthToken, error) {
		s.clearGuard(ctx, secret)
		return models.AuthToken{}, reason
	}

	tok, err := s.store.AuthToken(ctx, secret)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return fail(ErrInvalidOrUsedToken)
		}

		log.Error("failed to look up token", sl.Err(err))
		s.clearGuard(ctx, secret)
		return models.AuthToken{}, fmt.Errorf("%s: %w", op, err)
	}

	if tok.IsExpired() {
		return fail(ErrTokenExpired)
	}

	if tok.Purpose != purpose {
		return fail(ErrInvalidOrUsedToken)
	}

	owner, err := s.users.UserByID(ctx, tok.OwnerID)
	if err != nil {
		log.Error("failed to resolve token owner", sl.Err(err))
		s.clearGuard(ctx, secret)
		return models.AuthToken{}, fmt.Errorf("%s: %w", op, err)
	}

	// Defends against pairing a stolen secret with another account's
	// email.
	if emailaddr.Normalize(owner.Email) != emailaddr.Normalize(email) {
		return fail(ErrEmailMismatch)
	}

	return tok, nil
}

// consume marks the token used with a single conditional update. Failing
// here after the effect succeeded is tolerated: the token stays
// technically redeemable until expiry, which we log and accept rather
// than wrapping the effect and the flip in a transaction.
func (s *Service) consume(ctx context.Context, secret string) {
	const op = "tokens.Service.consume"

	consumed, err := s.store.ConsumeAuthToken(ctx, secret)
	if err != nil {
		s.log.Warn("failed to mark token used, token remains redeemable until expiry",
			slog.String("op", op), sl.Err(err))
		return
	}
	if !consumed {
		s.log.Warn("token was consumed concurrently", slog.String("op", op))
	}
}

func (s *Service) clearGuard(ctx context.Context, secret string) {
	if s.guard == nil {
		return
	}
	if err := s.guard.ClearTokenRedeemed(ctx, secret); err != nil {
		s.log.Warn("failed to clear redeem guard", sl.Err(err))
	}
}

func (s *Service) redemptionURL(secret, email string, purpose models.TokenPurpose) string {
	path := "/reset-password"
	if purpose == models.PurposeMagicLink {
		path = "/magic-login"
	}

	return fmt.Sprintf("%s%s?token=%s&email=%s", s.publicURL, path, secret, url.QueryEscape(email))
}

func category(purpose models.TokenPurpose) string {
	if purpose == models.PurposeMagicLink {
		return "magic-link"
	}
	return "password-reset"
}
