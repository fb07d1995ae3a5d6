package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ce_platform/internal/config"
	"ce_platform/internal/models"
	"ce_platform/internal/storage"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

func (r *PostgresRepo) SaveUser(ctx context.Context, email, firstName, lastName string, passHash []byte) (int64, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO profiles (email, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query, email, firstName, lastName, string(passHash)).Scan(&id)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return 0, storage.ErrUserExists
		}

		return 0, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) User(ctx context.Context, email string) (models.Profile, error) {
	query := `
		SELECT id, email, first_name, last_name, password_hash, is_admin, created_at
		FROM profiles
		WHERE email = $1;
	`

	row := r.pool.QueryRow(ctx, query, email)

	var u models.Profile
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.PassHash,
		&u.IsAdmin,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, storage.ErrUserNotFound
		}

		return models.Profile{}, err
	}

	return u, nil
}

func (r *PostgresRepo) UserByID(ctx context.Context, id int64) (models.Profile, error) {
	query := `
		SELECT id, email, first_name, last_name, password_hash, is_admin, created_at
		FROM profiles
		WHERE id = $1;
	`

	row := r.pool.QueryRow(ctx, query, id)

	var u models.Profile
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.PassHash,
		&u.IsAdmin,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Profile{}, storage.ErrUserNotFound
	}

	return u, err
}

func (r *PostgresRepo) UpdatePassword(ctx context.Context, userID int64, passHash []byte) error {
	const op = "storage.postgres.UpdatePassword"

	query := `UPDATE profiles SET password_hash = $1 WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, string(passHash), userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepo) SaveRefreshToken(
	ctx context.Context,
	userID int64,
	tokenHash []byte,
	expiresAt time.Time,
) error {
	const query = `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`

	_, err := r.pool.Exec(ctx, query, userID, tokenHash, expiresAt)
	return err
}

func (r *PostgresRepo) UpdateRefreshToken(
	ctx context.Context,
	userID int64,
	oldTokenHash []byte,
	newTokenHash []byte,
	expiresAt time.Time,
) error {
	const query = `
		UPDATE refresh_tokens
		SET token_hash = $1, expires_at = $2
		WHERE user_id = $3 AND token_hash = $4
	`

	_, err := r.pool.Exec(ctx, query, newTokenHash, expiresAt, userID, oldTokenHash)
	return err
}

// GetRefreshToken scans unexpired rows and compares bcrypt hashes, since
// the raw token is never stored.
func (r *PostgresRepo) GetRefreshToken(ctx context.Context, rawToken string) (models.RefreshToken, error) {
	const query = `
		SELECT user_id, token_hash, expires_at
		FROM refresh_tokens
		WHERE expires_at > NOW();
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return models.RefreshToken{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var rt models.RefreshToken

		if err := rows.Scan(&rt.UserID, &rt.TokenHash, &rt.ExpiresAt); err != nil {
			return models.RefreshToken{}, err
		}

		if bcrypt.CompareHashAndPassword(rt.TokenHash, []byte(rawToken)) == nil {
			return rt, nil
		}
	}
	if rows.Err() != nil {
		return models.RefreshToken{}, rows.Err()
	}

	return models.RefreshToken{}, storage.ErrRefreshTokenNotFound
}

func (r *PostgresRepo) DeleteRefreshToken(ctx context.Context, tokenHash []byte) error {
	query := `DELETE FROM refresh_tokens WHERE token_hash = $1`

	_, err := r.pool.Exec(ctx, query, tokenHash)

	return err
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
