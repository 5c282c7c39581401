package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Pool is the subset of *pgxpool.Pool the store uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps accounts in the accounts table. Uniqueness of email is
// enforced by the table constraint.
type PostgresStore struct {
	pool Pool
}

func NewPostgresStore(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const selectAccountColumns = `SELECT id, email, name_parts, password_hash, joined_at FROM accounts`

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx, selectAccountColumns+` WHERE email = $1`, email).Scan(
		&rec.ID,
		&rec.Email,
		&rec.Name,
		&rec.PasswordHash,
		&rec.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: find account: %v", ErrUnavailable, err)
	}
	return rec, nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO accounts (id, email, name_parts, password_hash, joined_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query, rec.ID, rec.Email, rec.Name, rec.PasswordHash, rec.JoinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("%w: insert account: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	query := `UPDATE accounts SET password_hash = $1, updated_at = now() WHERE email = $2`

	ct, err := s.pool.Exec(ctx, query, passwordHash, email)
	if err != nil {
		return fmt.Errorf("%w: update password: %v", ErrUnavailable, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx, selectAccountColumns+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: list accounts: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.Name, &rec.PasswordHash, &rec.JoinedAt); err != nil {
			return nil, fmt.Errorf("%w: scan account: %v", ErrUnavailable, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list accounts: %v", ErrUnavailable, err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
