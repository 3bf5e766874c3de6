package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"genkan/pkg/domain"
	txcontext "genkan/pkg/platform/tx"
)

// PostgresStore appends audit events to the audit_events table. Rows are
// written inside the caller's transaction when one is in flight so the trail
// never references a rolled-back mutation.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) q(ctx context.Context) executor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	query := `
		INSERT INTO audit_events (id, occurred_at, action, actor_role, guest_id, visit_id, entry_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		event.ID, event.Timestamp, string(event.Action), string(event.ActorRole),
		event.GuestID, event.VisitID, event.EntryID, event.Detail,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByGuest(ctx context.Context, guestID string) ([]Event, error) {
	query := `
		SELECT id, occurred_at, action, actor_role, guest_id, visit_id, entry_id, detail
		FROM audit_events
		WHERE guest_id = $1
		ORDER BY occurred_at, id
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, guestID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event  Event
			action string
			role   string
		)
		if err := rows.Scan(&event.ID, &event.Timestamp, &action, &role,
			&event.GuestID, &event.VisitID, &event.EntryID, &event.Detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = Action(action)
		event.ActorRole = domain.Role(role)
		events = append(events, event)
	}
	return events, rows.Err()
}
