package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"labtrail/internal/identity"
	"labtrail/pkg/platform/sentinel"
	txcontext "labtrail/pkg/platform/tx"
)

// Store persists identities in PostgreSQL. stable_code is written once at
// insert and never appears in an UPDATE statement.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const uniqueViolation = "23505"

func (s *Store) Create(ctx context.Context, ident identity.Identity) error {
	query := `
		INSERT INTO identities (actor_id, stable_code, display_name, redacted, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		ident.ActorID, ident.StableCode, ident.DisplayName, ident.Redacted, ident.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, actorID string) (identity.Identity, error) {
	query := `
		SELECT actor_id, stable_code, display_name, redacted, created_at
		FROM identities
		WHERE actor_id = $1
	`
	var ident identity.Identity
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, actorID).Scan(
		&ident.ActorID, &ident.StableCode, &ident.DisplayName, &ident.Redacted, &ident.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Identity{}, sentinel.ErrNotFound
	}
	if err != nil {
		return identity.Identity{}, fmt.Errorf("find identity: %w", err)
	}
	return ident, nil
}

func (s *Store) Update(ctx context.Context, ident identity.Identity) error {
	query := `
		UPDATE identities
		SET display_name = $2, redacted = $3
		WHERE actor_id = $1
	`
	result, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		ident.ActorID, ident.DisplayName, ident.Redacted)
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]identity.Identity, error) {
	query := `
		SELECT actor_id, stable_code, display_name, redacted, created_at
		FROM identities
		ORDER BY created_at
	`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var idents []identity.Identity
	for rows.Next() {
		var ident identity.Identity
		err := rows.Scan(&ident.ActorID, &ident.StableCode, &ident.DisplayName, &ident.Redacted, &ident.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		idents = append(idents, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return idents, nil
}
