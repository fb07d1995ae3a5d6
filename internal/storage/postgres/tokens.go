package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ce_platform/internal/models"
	"ce_platform/internal/storage"

	"github.com/jackc/pgx/v5"
)

// UpsertAuthToken inserts a token keyed on (owner_id, purpose). A second
// issue for the same owner and purpose overwrites the previous row, so
// only the newest secret is ever redeemable.
func (r *PostgresRepo) UpsertAuthToken(
	ctx context.Context,
	ownerID int64,
	secret string,
	purpose models.TokenPurpose,
	expiresAt time.Time,
) error {
	const op = "storage.postgres.UpsertAuthToken"

	query := `
		INSERT INTO auth_tokens (owner_id, purpose, secret, expires_at, used)
		VALUES ($1, $2, $3, $4, FALSE)
		ON CONFLICT (owner_id, purpose)
		DO UPDATE SET secret = $3, expires_at = $4, used = FALSE, created_at = NOW();
	`

	_, err := r.pool.Exec(ctx, query, ownerID, purpose, secret, expiresAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AuthToken looks up an unused token by secret. Used and unknown secrets
// are indistinguishable to the caller.
func (r *PostgresRepo) AuthToken(ctx context.Context, secret string) (models.AuthToken, error) {
	query := `
		SELECT id, owner_id, secret, purpose, expires_at, used, created_at
		FROM auth_tokens
		WHERE secret = $1 AND used = FALSE;
	`

	row := r.pool.QueryRow(ctx, query, secret)

	var t models.AuthToken
	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.Secret,
		&t.Purpose,
		&t.ExpiresAt,
		&t.Used,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AuthToken{}, storage.ErrTokenNotFound
		}

		return models.AuthToken{}, err
	}

	return t, nil
}

// ConsumeAuthToken flips used to TRUE in a single conditional update, so
// two concurrent redemptions cannot both consume the same secret. Returns
// false when the token was already consumed or does not exist.
func (r *PostgresRepo) ConsumeAuthToken(ctx context.Context, secret string) (bool, error) {
	const op = "storage.postgres.ConsumeAuthToken"

	query := `UPDATE auth_tokens SET used = TRUE WHERE secret = $1 AND used = FALSE`

	tag, err := r.pool.Exec(ctx, query, secret)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() == 1, nil
}
