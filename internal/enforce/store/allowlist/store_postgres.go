package allowlist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"labtrail/internal/enforce"
	txcontext "labtrail/pkg/platform/tx"
)

// PostgresStore persists the hard-delete role allow-list in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) IsAllowed(ctx context.Context, entity, role string) (bool, error) {
	if role == "" {
		return false, nil
	}
	query := `
		SELECT EXISTS (
			SELECT 1 FROM delete_role_allowlist
			WHERE entity_name = $1 AND role = $2
		)
	`
	var exists bool
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, entity, role).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check delete allow-list: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Add(ctx context.Context, entry enforce.AllowlistEntry) error {
	query := `
		INSERT INTO delete_role_allowlist (entity_name, role, added_by, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity_name, role) DO NOTHING
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		entry.Entity, entry.Role, entry.AddedBy, time.Now())
	if err != nil {
		return fmt.Errorf("add delete allow-list entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, entity, role string) error {
	query := `DELETE FROM delete_role_allowlist WHERE entity_name = $1 AND role = $2`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query, entity, role)
	if err != nil {
		return fmt.Errorf("remove delete allow-list entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]enforce.AllowlistEntry, error) {
	query := `
		SELECT entity_name, role, added_by
		FROM delete_role_allowlist
		ORDER BY entity_name, role
	`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list delete allow-list: %w", err)
	}
	defer rows.Close()

	var entries []enforce.AllowlistEntry
	for rows.Next() {
		var entry enforce.AllowlistEntry
		if err := rows.Scan(&entry.Entity, &entry.Role, &entry.AddedBy); err != nil {
			return nil, fmt.Errorf("scan delete allow-list entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delete allow-list: %w", err)
	}
	return entries, nil
}
