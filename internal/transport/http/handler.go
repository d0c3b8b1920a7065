package httptransport

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"labtrail/internal/audit"
	"labtrail/internal/enforce"
	"labtrail/internal/identity"
	"labtrail/internal/platform/metrics"
	"labtrail/internal/platform/middleware"
	"labtrail/internal/registry"
	"labtrail/internal/timeline"
	"labtrail/pkg/platform/tx"
)

// Handler mounts the reporting and administrative HTTP surface. Guarded
// writes never travel over HTTP; application code calls the interceptor
// directly.
type Handler struct {
	logger      *slog.Logger
	events      *audit.Service
	timelines   *timeline.Service
	registry    *registry.Service
	identity    *identity.Service
	inspector   registry.Inspector
	allowlist   enforce.AllowlistStore
	interceptor *enforce.Interceptor
	metrics     *metrics.Metrics
	runner      tx.Runner

	jwtSigningKey  string
	adminTokenHash string
}

type Config struct {
	Events      *audit.Service
	Timelines   *timeline.Service
	Registry    *registry.Service
	Identity    *identity.Service
	Inspector   registry.Inspector
	Allowlist   enforce.AllowlistStore
	Interceptor *enforce.Interceptor
	Metrics     *metrics.Metrics
	Runner      tx.Runner

	JWTSigningKey  string
	AdminTokenHash string
}

func New(cfg Config, logger *slog.Logger) *Handler {
	runner := cfg.Runner
	if runner == nil {
		runner = tx.NopRunner{}
	}
	return &Handler{
		logger:         logger,
		events:         cfg.Events,
		timelines:      cfg.Timelines,
		registry:       cfg.Registry,
		identity:       cfg.Identity,
		inspector:      cfg.Inspector,
		allowlist:      cfg.Allowlist,
		interceptor:    cfg.Interceptor,
		metrics:        cfg.Metrics,
		runner:         runner,
		jwtSigningKey:  cfg.JWTSigningKey,
		adminTokenHash: cfg.AdminTokenHash,
	}
}

// Register mounts all routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.jwtSigningKey, h.logger))

			r.Get("/entities/{entity}/{id}/history", h.entityHistory)
			r.Get("/entities/{entity}/{id}/timeline", h.entityTimeline)
			r.Get("/changes/recent", h.recentChanges)
			r.Get("/changes/system", h.systemOperations)
			r.Get("/compliance/report", h.complianceReport)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdminToken(h.adminTokenHash, h.logger))

			r.Post("/reason-codes", h.registerReason)
			r.Get("/reason-codes", h.listReasons)
			r.Delete("/reason-codes/{code}", h.deactivateReason)

			r.Put("/entities/{entity}/policy", h.upsertPolicy)
			r.Get("/entities", h.listPolicies)

			r.Post("/delete-allowlist", h.addAllowlistEntry)
			r.Delete("/delete-allowlist/{entity}/{role}", h.removeAllowlistEntry)
			r.Get("/delete-allowlist", h.listAllowlist)

			r.Post("/identities", h.provisionIdentity)
			r.Put("/identities/{actorID}/name", h.renameIdentity)
			r.Post("/identities/{actorID}/redact", h.redactIdentity)
		})
	})
}
