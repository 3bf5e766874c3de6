package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"genkan/internal/activity/models"
	"genkan/pkg/domain"
	"genkan/pkg/platform/sentinel"
	txcontext "genkan/pkg/platform/tx"
)

// PostgresStore persists activity entries. The (guest_id, timeslot_start)
// unique constraint plus ON CONFLICT DO UPDATE makes the upsert a single
// atomic statement; there is no read-then-write window.
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

const entryColumns = `id, guest_id, timeslot_start, categories, description, mentor_note, updated_at`

func (s *PostgresStore) Upsert(ctx context.Context, entry *models.Entry) (*models.Entry, error) {
	query := `
		INSERT INTO activity_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (guest_id, timeslot_start) DO UPDATE SET
			categories = EXCLUDED.categories,
			description = EXCLUDED.description,
			mentor_note = EXCLUDED.mentor_note,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + entryColumns
	categories := make([]string, len(entry.Categories))
	for i, c := range entry.Categories {
		categories[i] = string(c)
	}
	row := s.q(ctx).QueryRowContext(ctx, query,
		uuid.UUID(entry.ID), uuid.UUID(entry.GuestID), entry.TimeslotStart,
		pq.Array(categories), entry.Description, entry.MentorNote, entry.UpdatedAt,
	)
	stored, err := scanEntryRow(row)
	if err != nil {
		return nil, fmt.Errorf("upsert activity entry: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ActivityEntryID) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM activity_entries WHERE id = $1`
	entry, err := scanEntryRow(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return entry, err
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.ActivityEntryID) error {
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM activity_entries WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("delete activity entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteByGuest(ctx context.Context, guestID domain.GuestID) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM activity_entries WHERE guest_id = $1`, uuid.UUID(guestID))
	if err != nil {
		return fmt.Errorf("delete activity entries by guest: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListForRange(ctx context.Context, from, to time.Time) ([]models.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM activity_entries
		WHERE timeslot_start >= $1 AND timeslot_start < $2
		ORDER BY timeslot_start, guest_id
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list activity entries: %w", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		entry, err := scanEntryRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntryRow(row rowScanner) (*models.Entry, error) {
	var (
		entry      models.Entry
		id         uuid.UUID
		guestID    uuid.UUID
		categories pq.StringArray
	)
	if err := row.Scan(&id, &guestID, &entry.TimeslotStart, &categories,
		&entry.Description, &entry.MentorNote, &entry.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan activity entry: %w", err)
	}
	entry.ID = domain.ActivityEntryID(id)
	entry.GuestID = domain.GuestID(guestID)
	entry.TimeslotStart = entry.TimeslotStart.UTC()
	entry.Categories = make([]models.Category, len(categories))
	for i, c := range categories {
		entry.Categories[i] = models.Category(c)
	}
	return &entry, nil
}
