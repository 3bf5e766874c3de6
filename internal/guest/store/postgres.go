package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"genkan/internal/guest/models"
	"genkan/pkg/domain"
	"genkan/pkg/platform/sentinel"
	txcontext "genkan/pkg/platform/tx"

	"github.com/google/uuid"
)

// PostgresStore persists guests in PostgreSQL. Pure I/O; validation and
// display-number composition live in the services.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const guestColumns = `id, display_id, name, contact, grade, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, guest *models.Guest) error {
	query := `
		INSERT INTO guests (` + guestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(guest.ID), guest.DisplayID, guest.Name, guest.Contact,
		string(guest.Grade), guest.CreatedAt, guest.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create guest: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.GuestID) (*models.Guest, error) {
	query := `SELECT ` + guestColumns + ` FROM guests WHERE id = $1`
	return scanGuest(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
}

func (s *PostgresStore) FindByDisplayID(ctx context.Context, displayID int) (*models.Guest, error) {
	query := `SELECT ` + guestColumns + ` FROM guests WHERE display_id = $1`
	return scanGuest(s.q(ctx).QueryRowContext(ctx, query, displayID))
}

func (s *PostgresStore) SearchByName(ctx context.Context, substr string, limit int) ([]models.Guest, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + guestColumns + `
		FROM guests
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY display_id
		LIMIT $2
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, substr, limit)
	if err != nil {
		return nil, fmt.Errorf("search guests: %w", err)
	}
	defer rows.Close()

	var guests []models.Guest
	for rows.Next() {
		guest, err := scanGuestRow(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, *guest)
	}
	return guests, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, guest *models.Guest) error {
	query := `
		UPDATE guests
		SET name = $2, contact = $3, grade = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(guest.ID), guest.Name, guest.Contact, string(guest.Grade), guest.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update guest: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.GuestID) error {
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM guests WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("delete guest: %w", err)
	}
	return requireRow(res)
}

// NextSequenceForYear atomically draws the year's issuance counter. The
// first touch of a year seeds it from any pre-existing guests (display_id
// encodes (year%100)*1000 + seq, so the year's block is a contiguous
// integer range) and yields 0 for an untouched year; after that the counter
// only grows, so deleted guests never free their numbers.
func (s *PostgresStore) NextSequenceForYear(ctx context.Context, year int) (int, error) {
	low := (year % 100) * 1000
	query := `
		INSERT INTO display_sequences (year, last_sequence)
		VALUES ($1, (
			SELECT COALESCE(MAX(display_id - $2) + 1, 0)
			FROM guests
			WHERE display_id >= $2 AND display_id < $3
		))
		ON CONFLICT (year)
		DO UPDATE SET last_sequence = display_sequences.last_sequence + 1
		RETURNING last_sequence
	`
	var seq int
	if err := s.q(ctx).QueryRowContext(ctx, query, year, low, low+1000).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next sequence for year: %w", err)
	}
	return seq, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGuest(row *sql.Row) (*models.Guest, error) {
	guest, err := scanGuestRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return guest, err
}

func scanGuestRow(row rowScanner) (*models.Guest, error) {
	var (
		guest models.Guest
		id    uuid.UUID
		grade string
	)
	if err := row.Scan(&id, &guest.DisplayID, &guest.Name, &guest.Contact, &grade,
		&guest.CreatedAt, &guest.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan guest: %w", err)
	}
	guest.ID = domain.GuestID(id)
	guest.Grade = models.Grade(grade)
	return &guest, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// isUniqueViolation detects PostgreSQL unique constraint errors (class
// 23505). The uniqueness constraints are the serialization point for both
// display numbers and the single-active-visit rule, so stores surface them
// as sentinel.ErrAlreadyUsed for the services to translate.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
