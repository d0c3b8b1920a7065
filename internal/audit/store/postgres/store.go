package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"labtrail/internal/audit"
	txcontext "labtrail/pkg/platform/tx"
)

// Store persists audit events in PostgreSQL. It exposes INSERT and SELECT
// only; the audit_events table additionally carries a trigger that raises
// on UPDATE or DELETE, so immutability holds even against stray SQL.
//
// Append joins the caller's transaction when one is carried in context, so
// a guarded write and its event commit or roll back together.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const eventColumns = `id, occurred_at, actor_id, actor_stable_code, action,
	entity_name, entity_id, before_snapshot, after_snapshot,
	reason_code, reason_detail, source`

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	before, err := marshalSnapshot(event.Before)
	if err != nil {
		return fmt.Errorf("marshal before snapshot: %w", err)
	}
	after, err := marshalSnapshot(event.After)
	if err != nil {
		return fmt.Errorf("marshal after snapshot: %w", err)
	}

	query := `
		INSERT INTO audit_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		event.OccurredAt,
		nullString(event.ActorID),
		event.ActorStableCode,
		string(event.Action),
		event.EntityName,
		event.EntityID,
		before,
		after,
		nullString(event.ReasonCode),
		nullString(event.ReasonDetail),
		event.Source,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByEntity(ctx context.Context, entityName, entityID string) ([]audit.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM audit_events
		WHERE entity_name = $1 AND entity_id = $2
		ORDER BY occurred_at DESC, id DESC
	`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, entityName, entityID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *Store) ListSince(ctx context.Context, since time.Time, limit int) ([]audit.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM audit_events
		WHERE occurred_at >= $1
		ORDER BY occurred_at DESC, id DESC
	`
	args := []any{since}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *Store) ListBySourcePrefix(ctx context.Context, prefixes []string, limit int) ([]audit.Event, error) {
	if len(prefixes) == 0 {
		return nil, nil
	}
	conditions := make([]string, 0, len(prefixes))
	args := make([]any, 0, len(prefixes)+1)
	for i, prefix := range prefixes {
		conditions = append(conditions, fmt.Sprintf("source LIKE $%d", i+1))
		args = append(args, escapeLike(prefix)+"%")
	}
	query := `
		SELECT ` + eventColumns + `
		FROM audit_events
		WHERE ` + strings.Join(conditions, " OR ") + `
		ORDER BY occurred_at DESC, id DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query system audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event        audit.Event
			action       string
			actorID      sql.NullString
			before       []byte
			after        []byte
			reasonCode   sql.NullString
			reasonDetail sql.NullString
		)
		err := rows.Scan(
			&event.ID,
			&event.OccurredAt,
			&actorID,
			&event.ActorStableCode,
			&action,
			&event.EntityName,
			&event.EntityID,
			&before,
			&after,
			&reasonCode,
			&reasonDetail,
			&event.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = audit.Action(action)
		event.ActorID = actorID.String
		event.ReasonCode = reasonCode.String
		event.ReasonDetail = reasonDetail.String
		if event.Before, err = unmarshalSnapshot(before); err != nil {
			return nil, fmt.Errorf("unmarshal before snapshot: %w", err)
		}
		if event.After, err = unmarshalSnapshot(after); err != nil {
			return nil, fmt.Errorf("unmarshal after snapshot: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func marshalSnapshot(s audit.Snapshot) (any, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func unmarshalSnapshot(raw []byte) (audit.Snapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s audit.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return s, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
