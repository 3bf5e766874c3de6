package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"genkan/internal/visit/models"
	"genkan/pkg/domain"
	"genkan/pkg/platform/sentinel"
	txcontext "genkan/pkg/platform/tx"
)

// PostgresStore persists visit records. The single-active-visit invariant is
// enforced by a partial unique index on (guest_id) WHERE is_active, so the
// concurrent check-in race resolves inside the database rather than in
// application code.
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

const visitColumns = `id, guest_id, checkin_at, checkout_at, is_active, updated_at`

func (s *PostgresStore) CreateActive(ctx context.Context, visit *models.VisitRecord) error {
	query := `
		INSERT INTO visits (` + visitColumns + `)
		VALUES ($1, $2, $3, NULL, TRUE, $4)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(visit.ID), uuid.UUID(visit.GuestID), visit.CheckinAt, visit.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create visit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, visit *models.VisitRecord) error {
	query := `
		UPDATE visits
		SET checkin_at = $2, checkout_at = $3, is_active = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(visit.ID), visit.CheckinAt, visit.CheckoutAt, visit.IsActive, visit.UpdatedAt,
	)
	if err != nil {
		// Reopening a visit trips the partial unique index when the guest
		// already has another active record.
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update visit: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.VisitID) (*models.VisitRecord, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE id = $1`
	return scanVisit(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
}

func (s *PostgresStore) FindActiveByGuest(ctx context.Context, guestID domain.GuestID) (*models.VisitRecord, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE guest_id = $1 AND is_active`
	return scanVisit(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(guestID)))
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]models.VisitRecord, error) {
	query := `
		SELECT ` + visitColumns + `
		FROM visits
		WHERE is_active
		ORDER BY checkin_at DESC, id
	`
	return s.queryVisits(ctx, query)
}

func (s *PostgresStore) ListByGuest(ctx context.Context, guestID domain.GuestID) ([]models.VisitRecord, error) {
	query := `
		SELECT ` + visitColumns + `
		FROM visits
		WHERE guest_id = $1
		ORDER BY checkin_at DESC, id
	`
	return s.queryVisits(ctx, query, uuid.UUID(guestID))
}

func (s *PostgresStore) ListBetween(ctx context.Context, from, to time.Time) ([]models.VisitRecord, error) {
	query := `
		SELECT ` + visitColumns + `
		FROM visits
		WHERE checkin_at >= $1 AND checkin_at < $2
		ORDER BY checkin_at DESC, id
	`
	return s.queryVisits(ctx, query, from, to)
}

func (s *PostgresStore) CountActive(ctx context.Context) (int, error) {
	var count int
	err := s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM visits WHERE is_active`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active visits: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter, page models.Page) (*models.PagedVisits, error) {
	page = page.Normalize()

	where, args := buildListWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM visits v JOIN guests g ON g.id = v.guest_id` + where
	if err := s.q(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count visits: %w", err)
	}

	query := `
		SELECT v.id, v.guest_id, v.checkin_at, v.checkout_at, v.is_active, v.updated_at
		FROM visits v JOIN guests g ON g.id = v.guest_id` + where + fmt.Sprintf(`
		ORDER BY v.checkin_at DESC, v.id
		LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset())

	visits, err := s.queryVisits(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &models.PagedVisits{
		Items: visits,
		Total: total,
		Page:  page.Number,
		Limit: page.Limit,
	}, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.VisitID) error {
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM visits WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("delete visit: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) DeleteByGuest(ctx context.Context, guestID domain.GuestID) error {
	_, err := s.q(ctx).ExecContext(ctx, `DELETE FROM visits WHERE guest_id = $1`, uuid.UUID(guestID))
	if err != nil {
		return fmt.Errorf("delete visits by guest: %w", err)
	}
	return nil
}

func buildListWhere(filter models.ListFilter) (string, []any) {
	where := " WHERE TRUE"
	var args []any
	next := func() int { return len(args) + 1 }

	if filter.ActiveOnly {
		where += " AND v.is_active"
	}
	if filter.GuestID != nil {
		where += fmt.Sprintf(" AND v.guest_id = $%d", next())
		args = append(args, uuid.UUID(*filter.GuestID))
	}
	if filter.From != nil {
		where += fmt.Sprintf(" AND v.checkin_at >= $%d", next())
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where += fmt.Sprintf(" AND v.checkin_at < $%d", next())
		args = append(args, *filter.To)
	}
	if filter.NamePattern != "" {
		where += fmt.Sprintf(" AND g.name ILIKE '%%' || $%d || '%%'", next())
		args = append(args, filter.NamePattern)
	}
	return where, args
}

func (s *PostgresStore) queryVisits(ctx context.Context, query string, args ...any) ([]models.VisitRecord, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()

	var visits []models.VisitRecord
	for rows.Next() {
		visit, err := scanVisitRow(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, *visit)
	}
	return visits, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisit(row *sql.Row) (*models.VisitRecord, error) {
	visit, err := scanVisitRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return visit, err
}

func scanVisitRow(row rowScanner) (*models.VisitRecord, error) {
	var (
		visit    models.VisitRecord
		id       uuid.UUID
		guestID  uuid.UUID
		checkout sql.NullTime
	)
	if err := row.Scan(&id, &guestID, &visit.CheckinAt, &checkout, &visit.IsActive, &visit.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan visit: %w", err)
	}
	visit.ID = domain.VisitID(id)
	visit.GuestID = domain.GuestID(guestID)
	if checkout.Valid {
		at := checkout.Time.UTC()
		visit.CheckoutAt = &at
	}
	visit.CheckinAt = visit.CheckinAt.UTC()
	return &visit, nil
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

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
