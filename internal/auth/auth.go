package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ce_platform/internal/lib/jwt"
	sl "ce_platform/internal/lib/logger"
	"ce_platform/internal/models"
	"ce_platform/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
)

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	jwtSecret   string
	tokenTTL    time.Duration
	refreshTTL  time.Duration
}

type UserSaver interface {
	SaveUser(ctx context.Context, email, firstName, lastName string, passHash []byte) (uid int64, err error)
	UpdatePassword(ctx context.Context, userID int64, passHash []byte) error

	SaveRefreshToken(ctx context.Context, userID int64, tokenHash []byte, expiresAt time.Time) error
	UpdateRefreshToken(ctx context.Context, userID int64, oldTokenHash, newTokenHash []byte, expiresAt time.Time) error
	DeleteRefreshToken(ctx context.Context, tokenHash []byte) error
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.Profile, error)
	UserByID(ctx context.Context, id int64) (models.Profile, error)
	GetRefreshToken(ctx context.Context, rawToken string) (models.RefreshToken, error)
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	jwtSecret string,
	tokenTTL, refreshTTL time.Duration,
) *Auth {
	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
		refreshTTL:  refreshTTL,
	}
}

// Login checks credentials and returns a JWT access token plus an opaque
// refresh token.
func (a *Auth) Login(
	ctx context.Context,
	email, password string,
) (models.SessionPair, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return models.SessionPair{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return models.SessionPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))
		return models.SessionPair{}, ErrInvalidCredentials
	}

	pair, err := a.EstablishSession(ctx, user.ID)
	if err != nil {
		return models.SessionPair{}, err
	}

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return pair, nil
}

// EstablishSession issues a fresh access/refresh pair for a known user.
// Also the effect behind magic-link redemption, which authenticates
// without a password.
func (a *Auth) EstablishSession(ctx context.Context, userID int64) (models.SessionPair, error) {
	const op = "auth.EstablishSession"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		log.Error("failed to load user", sl.Err(err))
		return models.SessionPair{}, fmt.Errorf("%s: %w", op, err)
	}

	accessToken, err := jwt.NewToken(user, a.jwtSecret, a.tokenTTL)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return models.SessionPair{}, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := jwt.NewRefreshToken()
	if err != nil {
		log.Error("failed to generate refresh token", sl.Err(err))
		return models.SessionPair{}, fmt.Errorf("%s: %w", op, err)
	}

	refreshHash, err := bcrypt.GenerateFromPassword([]byte(refreshToken), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to hash refresh token", sl.Err(err))
		return models.SessionPair{}, fmt.Errorf("%s: %w", op, err)
	}

	err = a.usrSaver.SaveRefreshToken(ctx, user.ID, refreshHash, time.Now().Add(a.refreshTTL))
	if err != nil {
		log.Error("failed to save refresh token", sl.Err(err))
		return models.SessionPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.SessionPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (a *Auth) RegisterNewUser(
	ctx context.Context,
	email, firstName, lastName, pass string,
) (int64, error) {
	const op = "auth.RegisterNewUser"

	log := a.log.With(slog.String("op", op))

	log.Info("Registering new user")

	passHash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.usrSaver.SaveUser(ctx, email, firstName, lastName, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("User already exists")

			return 0, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("Failed to save user", sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// UpdatePassword hashes and stores a new password. The effect behind
// password-reset redemption.
func (a *Auth) UpdatePassword(ctx context.Context, userID int64, newPassword string) error {
	const op = "auth.UpdatePassword"

	log := a.log.With(slog.String("op", op))

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.usrSaver.UpdatePassword(ctx, userID, passHash); err != nil {
		log.Error("failed to update password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password updated", slog.Int64("uid", userID))

	return nil
}

func (a *Auth) Refresh(
	ctx context.Context,
	refreshToken string,
) (models.SessionPair, error) {
	const op = "auth.Refresh"

	log := a.log.With(slog.String("op", op))

	rt, err := a.usrProvider.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		log.Warn("refresh token not found", sl.Err(err))
		return models.SessionPair{}, ErrInvalidCredentials
	}

	if time.Now().After(rt.ExpiresAt) {
		log.Warn("refresh token expired")

		return models.SessionPair{}, ErrInvalidCredentials
	}

	user, err := a.usrProvider.UserByID(ctx, rt.UserID)
	if err != nil {
		log.Error("failed to load user", sl.Err(err))
		return models.SessionPair{}, ErrInvalidCredentials
	}

	accessToken, err := jwt.NewToken(user, a.jwtSecret, a.tokenTTL)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return models.SessionPair{}, err
	}

	newRefresh, err := jwt.NewRefreshToken()
	if err != nil {
		log.Error("failed to generate refresh token", sl.Err(err))
		return models.SessionPair{}, err
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newRefresh), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to hash new refresh token", sl.Err(err))
		return models.SessionPair{}, err
	}

	err = a.usrSaver.UpdateRefreshToken(ctx, rt.UserID, rt.TokenHash, newHash, time.Now().Add(a.refreshTTL))
	if err != nil {
		log.Error("failed to update refresh token", sl.Err(err))
		return models.SessionPair{}, err
	}

	log.Info("refresh successful", slog.Int64("uid", user.ID))

	return models.SessionPair{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
	}, nil
}

func (a *Auth) Logout(
	ctx context.Context,
	rawRefreshToken string,
) error {
	const op = "auth.Logout"

	log := a.log.With(slog.String("op", op))

	rt, err := a.usrProvider.GetRefreshToken(ctx, rawRefreshToken)
	if err != nil {
		log.Warn("refresh token not found", sl.Err(err))
		return ErrInvalidCredentials
	}

	err = a.usrSaver.DeleteRefreshToken(ctx, rt.TokenHash)
	if err != nil {
		log.Error("failed to delete refresh token", sl.Err(err))
		return err
	}

	log.Info("logout successful")

	return nil
}
