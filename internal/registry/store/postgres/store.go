package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"labtrail/internal/registry"
	"labtrail/pkg/platform/sentinel"
	txcontext "labtrail/pkg/platform/tx"
)

// ReasonStore persists justification codes in PostgreSQL.
type ReasonStore struct {
	db *sql.DB
}

func NewReasonStore(db *sql.DB) *ReasonStore {
	return &ReasonStore{db: db}
}

func (s *ReasonStore) Upsert(ctx context.Context, code registry.ReasonCode) error {
	query := `
		INSERT INTO reason_codes (code, label, description, requires_detail, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			label = EXCLUDED.label,
			description = EXCLUDED.description,
			requires_detail = EXCLUDED.requires_detail,
			active = EXCLUDED.active
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		code.Code, code.Label, code.Description, code.RequiresDetail, code.Active)
	if err != nil {
		return fmt.Errorf("upsert reason code: %w", err)
	}
	return nil
}

func (s *ReasonStore) Find(ctx context.Context, code string) (registry.ReasonCode, error) {
	query := `
		SELECT code, label, description, requires_detail, active
		FROM reason_codes
		WHERE code = $1
	`
	var rc registry.ReasonCode
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, code).Scan(
		&rc.Code, &rc.Label, &rc.Description, &rc.RequiresDetail, &rc.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.ReasonCode{}, sentinel.ErrNotFound
	}
	if err != nil {
		return registry.ReasonCode{}, fmt.Errorf("find reason code: %w", err)
	}
	return rc, nil
}

func (s *ReasonStore) List(ctx context.Context) ([]registry.ReasonCode, error) {
	query := `
		SELECT code, label, description, requires_detail, active
		FROM reason_codes
		ORDER BY code
	`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reason codes: %w", err)
	}
	defer rows.Close()

	var codes []registry.ReasonCode
	for rows.Next() {
		var rc registry.ReasonCode
		if err := rows.Scan(&rc.Code, &rc.Label, &rc.Description, &rc.RequiresDetail, &rc.Active); err != nil {
			return nil, fmt.Errorf("scan reason code: %w", err)
		}
		codes = append(codes, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reason codes: %w", err)
	}
	return codes, nil
}

func (s *ReasonStore) SetActive(ctx context.Context, code string, active bool) error {
	result, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx,
		`UPDATE reason_codes SET active = $2 WHERE code = $1`, code, active)
	if err != nil {
		return fmt.Errorf("set reason code active: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set reason code active: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// PolicyStore persists regulated-entity policies in PostgreSQL.
type PolicyStore struct {
	db *sql.DB
}

func NewPolicyStore(db *sql.DB) *PolicyStore {
	return &PolicyStore{db: db}
}

func (s *PolicyStore) Upsert(ctx context.Context, policy registry.EntityPolicy) error {
	query := `
		INSERT INTO regulated_entities (
			entity_name, audit_required, hard_delete_policy,
			soft_delete_supported, reason_required_on_mutation, delete_marker_field
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (entity_name) DO UPDATE SET
			audit_required = EXCLUDED.audit_required,
			hard_delete_policy = EXCLUDED.hard_delete_policy,
			soft_delete_supported = EXCLUDED.soft_delete_supported,
			reason_required_on_mutation = EXCLUDED.reason_required_on_mutation,
			delete_marker_field = EXCLUDED.delete_marker_field
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		policy.EntityName,
		policy.AuditRequired,
		string(policy.HardDeletePolicy),
		policy.SoftDeleteSupported,
		policy.ReasonRequiredOnMutation,
		policy.DeleteMarkerField,
	)
	if err != nil {
		return fmt.Errorf("upsert entity policy: %w", err)
	}
	return nil
}

func (s *PolicyStore) Find(ctx context.Context, entityName string) (registry.EntityPolicy, error) {
	query := `
		SELECT entity_name, audit_required, hard_delete_policy,
			soft_delete_supported, reason_required_on_mutation, delete_marker_field
		FROM regulated_entities
		WHERE entity_name = $1
	`
	var (
		policy registry.EntityPolicy
		hdp    string
	)
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, entityName).Scan(
		&policy.EntityName,
		&policy.AuditRequired,
		&hdp,
		&policy.SoftDeleteSupported,
		&policy.ReasonRequiredOnMutation,
		&policy.DeleteMarkerField,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.EntityPolicy{}, sentinel.ErrNotFound
	}
	if err != nil {
		return registry.EntityPolicy{}, fmt.Errorf("find entity policy: %w", err)
	}
	policy.HardDeletePolicy = registry.HardDeletePolicy(hdp)
	return policy, nil
}

func (s *PolicyStore) List(ctx context.Context) ([]registry.EntityPolicy, error) {
	query := `
		SELECT entity_name, audit_required, hard_delete_policy,
			soft_delete_supported, reason_required_on_mutation, delete_marker_field
		FROM regulated_entities
		ORDER BY entity_name
	`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list entity policies: %w", err)
	}
	defer rows.Close()

	var policies []registry.EntityPolicy
	for rows.Next() {
		var (
			policy registry.EntityPolicy
			hdp    string
		)
		err := rows.Scan(
			&policy.EntityName,
			&policy.AuditRequired,
			&hdp,
			&policy.SoftDeleteSupported,
			&policy.ReasonRequiredOnMutation,
			&policy.DeleteMarkerField,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entity policy: %w", err)
		}
		policy.HardDeletePolicy = registry.HardDeletePolicy(hdp)
		policies = append(policies, policy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity policies: %w", err)
	}
	return policies, nil
}
