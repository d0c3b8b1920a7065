package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"labtrail/internal/audit"
	"labtrail/internal/audit/auditctx"
	"labtrail/internal/enforce"
	"labtrail/internal/registry"
	dErrors "labtrail/pkg/domain-errors"
)

// adminSource tags audit events produced by the admin surface itself.
const adminSource = "admin:api"

func (h *Handler) countAdminOp(kind string) {
	if h.metrics != nil {
		h.metrics.AdminOperations.WithLabelValues(kind).Inc()
	}
}

type reasonCodeRequest struct {
	Code           string `json:"code"`
	Label          string `json:"label"`
	Description    string `json:"description,omitempty"`
	RequiresDetail bool   `json:"requires_detail"`
}

type reasonCodeResponse struct {
	Code           string `json:"code"`
	Label          string `json:"label"`
	Description    string `json:"description,omitempty"`
	RequiresDetail bool   `json:"requires_detail"`
	Active         bool   `json:"active"`
}

func (h *Handler) registerReason(w http.ResponseWriter, r *http.Request) {
	var req reasonCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Label) == "" {
		writeError(w, dErrors.New(dErrors.CodeValidation, "code and label are required"))
		return
	}

	rc := registry.ReasonCode{
		Code:           strings.TrimSpace(req.Code),
		Label:          strings.TrimSpace(req.Label),
		Description:    req.Description,
		RequiresDetail: req.RequiresDetail,
	}
	if err := h.registry.RegisterReason(r.Context(), rc); err != nil {
		writeError(w, err)
		return
	}
	h.countAdminOp("reason_register")
	h.logger.Info("reason code registered", "code", rc.Code)
	writeJSON(w, http.StatusCreated, reasonCodeResponse{
		Code:           rc.Code,
		Label:          rc.Label,
		Description:    rc.Description,
		RequiresDetail: rc.RequiresDetail,
		Active:         true,
	})
}

func (h *Handler) listReasons(w http.ResponseWriter, r *http.Request) {
	reasons, err := h.registry.Reasons(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]reasonCodeResponse, 0, len(reasons))
	for _, rc := range reasons {
		out = append(out, reasonCodeResponse{
			Code:           rc.Code,
			Label:          rc.Label,
			Description:    rc.Description,
			RequiresDetail: rc.RequiresDetail,
			Active:         rc.Active,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"reason_codes": out})
}

func (h *Handler) deactivateReason(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.registry.DeactivateReason(r.Context(), code); err != nil {
		writeError(w, err)
		return
	}
	h.countAdminOp("reason_deactivate")
	h.logger.Info("reason code deactivated", "code", code)
	w.WriteHeader(http.StatusNoContent)
}

type entityPolicyRequest struct {
	AuditRequired            bool   `json:"audit_required"`
	HardDeletePolicy         string `json:"hard_delete_policy"`
	SoftDeleteSupported      bool   `json:"soft_delete_supported"`
	ReasonRequiredOnMutation bool   `json:"reason_required_on_mutation"`
	DeleteMarkerField        string `json:"delete_marker_field,omitempty"`
}

type entityPolicyResponse struct {
	EntityName               string `json:"entity_name"`
	AuditRequired            bool   `json:"audit_required"`
	HardDeletePolicy         string `json:"hard_delete_policy"`
	SoftDeleteSupported      bool   `json:"soft_delete_supported"`
	ReasonRequiredOnMutation bool   `json:"reason_required_on_mutation"`
	DeleteMarkerField        string `json:"delete_marker_field,omitempty"`
}

func (h *Handler) upsertPolicy(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")

	var req entityPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	policy := registry.EntityPolicy{
		EntityName:               entity,
		AuditRequired:            req.AuditRequired,
		HardDeletePolicy:         registry.HardDeletePolicy(req.HardDeletePolicy),
		SoftDeleteSupported:      req.SoftDeleteSupported,
		ReasonRequiredOnMutation: req.ReasonRequiredOnMutation,
		DeleteMarkerField:        req.DeleteMarkerField,
	}
	if err := h.registry.UpsertPolicy(r.Context(), policy); err != nil {
		writeError(w, err)
		return
	}
	h.countAdminOp("policy_upsert")
	h.logger.Info("entity policy upserted", "entity", entity, "hard_delete_policy", req.HardDeletePolicy)
	writeJSON(w, http.StatusOK, entityPolicyResponse{
		EntityName:               policy.EntityName,
		AuditRequired:            policy.AuditRequired,
		HardDeletePolicy:         string(policy.HardDeletePolicy),
		SoftDeleteSupported:      policy.SoftDeleteSupported,
		ReasonRequiredOnMutation: policy.ReasonRequiredOnMutation,
		DeleteMarkerField:        policy.DeleteMarkerField,
	})
}

func (h *Handler) listPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.registry.Policies(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]entityPolicyResponse, 0, len(policies))
	for _, p := range policies {
		out = append(out, entityPolicyResponse{
			EntityName:               p.EntityName,
			AuditRequired:            p.AuditRequired,
			HardDeletePolicy:         string(p.HardDeletePolicy),
			SoftDeleteSupported:      p.SoftDeleteSupported,
			ReasonRequiredOnMutation: p.ReasonRequiredOnMutation,
			DeleteMarkerField:        p.DeleteMarkerField,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": out})
}

type allowlistRequest struct {
	Entity  string `json:"entity"`
	Role    string `json:"role"`
	AddedBy string `json:"added_by"`
}

type allowlistResponse struct {
	Entity  string `json:"entity"`
	Role    string `json:"role"`
	AddedBy string `json:"added_by,omitempty"`
}

// Allow-list mutations are themselves guarded writes: the interceptor
// records every grant and revocation in the event log, and the event and
// the row change commit in one transaction.
func (h *Handler) addAllowlistEntry(w http.ResponseWriter, r *http.Request) {
	var req allowlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if req.Entity == "" || req.Role == "" {
		writeError(w, dErrors.New(dErrors.CodeValidation, "entity and role are required"))
		return
	}

	ctx := auditctx.With(r.Context(), auditctx.Context{
		Source:          adminSource,
		SystemPrincipal: true,
	})
	after := audit.Snapshot{"entity": req.Entity, "role": req.Role, "added_by": req.AddedBy}
	entry := enforce.AllowlistEntry{Entity: req.Entity, Role: req.Role, AddedBy: req.AddedBy}
	err := h.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := h.interceptor.Guard(ctx, enforce.Mutation{
			Entity:   enforce.AllowlistEntity,
			EntityID: req.Entity + "/" + req.Role,
			After:    after,
		}); err != nil {
			return err
		}
		return h.allowlist.Add(ctx, entry)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.countAdminOp("allowlist_add")
	h.logger.Info("delete allow-list entry added", "entity", req.Entity, "role", req.Role)
	writeJSON(w, http.StatusCreated, allowlistResponse{Entity: entry.Entity, Role: entry.Role, AddedBy: entry.AddedBy})
}

func (h *Handler) removeAllowlistEntry(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	role := chi.URLParam(r, "role")

	ctx := auditctx.With(r.Context(), auditctx.Context{
		Source:          adminSource,
		SystemPrincipal: true,
	})
	before := audit.Snapshot{"entity": entity, "role": role}
	err := h.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := h.interceptor.Guard(ctx, enforce.Mutation{
			Entity:   enforce.AllowlistEntity,
			EntityID: entity + "/" + role,
			Before:   before,
		}); err != nil {
			return err
		}
		return h.allowlist.Remove(ctx, entity, role)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.countAdminOp("allowlist_remove")
	h.logger.Info("delete allow-list entry removed", "entity", entity, "role", role)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAllowlist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.allowlist.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]allowlistResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, allowlistResponse{Entity: e.Entity, Role: e.Role, AddedBy: e.AddedBy})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

type provisionIdentityRequest struct {
	ActorID     string `json:"actor_id"`
	DisplayName string `json:"display_name"`
}

type identityResponse struct {
	ActorID     string `json:"actor_id"`
	StableCode  string `json:"stable_code"`
	DisplayName string `json:"display_name,omitempty"`
	Redacted    bool   `json:"redacted"`
}

func (h *Handler) provisionIdentity(w http.ResponseWriter, r *http.Request) {
	var req provisionIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	ident, err := h.identity.Provision(r.Context(), req.ActorID, req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	h.countAdminOp("identity_provision")
	writeJSON(w, http.StatusCreated, identityResponse{
		ActorID:     ident.ActorID,
		StableCode:  ident.StableCode,
		DisplayName: ident.DisplayName,
		Redacted:    ident.Redacted,
	})
}

type renameIdentityRequest struct {
	DisplayName string `json:"display_name"`
}

func (h *Handler) renameIdentity(w http.ResponseWriter, r *http.Request) {
	actorID := chi.URLParam(r, "actorID")

	var req renameIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if err := h.identity.Rename(r.Context(), actorID, req.DisplayName); err != nil {
		writeError(w, err)
		return
	}
	h.countAdminOp("identity_rename")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) redactIdentity(w http.ResponseWriter, r *http.Request) {
	actorID := chi.URLParam(r, "actorID")

	if err := h.identity.Redact(r.Context(), actorID); err != nil {
		writeError(w, err)
		return
	}
	h.countAdminOp("identity_redact")
	h.logger.Info("identity redacted", "actor_id", actorID)
	w.WriteHeader(http.StatusNoContent)
}
