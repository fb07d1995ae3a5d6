package postgres

import (
	"context"
	"fmt"

	"ce_platform/internal/models"
)

// SaveCommunication appends a dispatch audit row. Callers treat failures
// here as non-fatal; delivery already happened by the time this runs.
func (r *PostgresRepo) SaveCommunication(ctx context.Context, c *models.Communication) error {
	const op = "storage.postgres.SaveCommunication"

	query := `
		INSERT INTO communications (recipient, subject, category, message_id, failure, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`

	_, err := r.pool.Exec(ctx, query,
		c.Recipient,
		c.Subject,
		c.Category,
		c.MessageID,
		c.Failure,
		c.SentAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) Communications(ctx context.Context, limit int) ([]models.Communication, error) {
	const op = "storage.postgres.Communications"

	query := `
		SELECT id, recipient, subject, category, message_id, failure, sent_at
		FROM communications
		ORDER BY sent_at DESC
		LIMIT $1;
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var comms []models.Communication
	for rows.Next() {
		var c models.Communication
		err := rows.Scan(&c.ID, &c.Recipient, &c.Subject, &c.Category, &c.MessageID, &c.Failure, &c.SentAt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		comms = append(comms, c)
	}

	return comms, rows.Err()
}

func (r *PostgresRepo) SaveClient(ctx context.Context, c *models.Client) (int64, error) {
	const op = "storage.postgres.SaveClient"

	query := `
		INSERT INTO clients (first_name, last_name, email, phone, company, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query,
		c.FirstName,
		c.LastName,
		c.Email,
		c.Phone,
		c.Company,
		c.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) Clients(ctx context.Context) ([]models.Client, error) {
	const op = "storage.postgres.Clients"

	query := `
		SELECT id, first_name, last_name, email, phone, company, notes, created_at
		FROM clients
		ORDER BY last_name, first_name;
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		var c models.Client
		err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Company, &c.Notes, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		clients = append(clients, c)
	}

	return clients, rows.Err()
}

func (r *PostgresRepo) SaveLead(ctx context.Context, l *models.Lead) (int64, error) {
	const op = "storage.postgres.SaveLead"

	query := `
		INSERT INTO leads (name, email, phone, message, source, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query, l.Name, l.Email, l.Phone, l.Message, l.Source, l.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}
