package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"labtrail/internal/audit"
	auditpg "labtrail/internal/audit/store/postgres"
	"labtrail/internal/enforce"
	"labtrail/internal/enforce/store/allowlist"
	"labtrail/internal/identity"
	identitypg "labtrail/internal/identity/store/postgres"
	"labtrail/internal/platform/config"
	"labtrail/internal/platform/httpserver"
	"labtrail/internal/platform/logger"
	"labtrail/internal/platform/metrics"
	"labtrail/internal/platform/redis"
	"labtrail/internal/registry"
	registrypg "labtrail/internal/registry/store/postgres"
	"labtrail/internal/timeline"
	httptransport "labtrail/internal/transport/http"
	"labtrail/pkg/platform/tx"
)

// main wires stores, services, and the HTTP surface. Business rules live in
// the internal packages; main only assembles them.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if cfg.DatabaseURL == "" {
		log.Error("LABTRAIL_DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(context.Background()); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}

	rclient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if rclient != nil {
		defer rclient.Close()
	}

	var (
		reasonStore registry.ReasonStore = registrypg.NewReasonStore(db)
		policyStore registry.PolicyStore = registrypg.NewPolicyStore(db)
	)
	if rclient != nil {
		reasonStore = registry.NewCachedReasonStore(reasonStore, rclient.Client, cfg.RegistryCacheTTL)
		policyStore = registry.NewCachedPolicyStore(policyStore, rclient.Client, cfg.RegistryCacheTTL)
	}

	registrySvc := registry.NewService(reasonStore, policyStore, registry.WithLogger(log))
	auditSvc := audit.NewService(auditpg.NewStore(db), audit.WithLogger(log))
	identitySvc := identity.NewService(identitypg.NewStore(db), identity.WithLogger(log))
	timelineSvc := timeline.NewService(auditSvc, identitySvc)

	allowlistStore := allowlist.NewPostgres(db)
	gate := enforce.NewDeleteGate(registrySvc, allowlistStore, enforce.GateWithLogger(log))
	hooks := enforce.NewHookTable()
	interceptor := enforce.NewInterceptor(registrySvc, auditSvc, gate, hooks, enforce.WithLogger(log))

	// The allow-list is itself a regulated entity: handler writes to it go
	// through the interceptor.
	interceptor.Attach(enforce.AllowlistEntity, []string{"entity", "role", "added_by"}, true)

	proc := metrics.New()

	handler := httptransport.New(httptransport.Config{
		Events:         auditSvc,
		Timelines:      timelineSvc,
		Registry:       registrySvc,
		Identity:       identitySvc,
		Inspector:      hooks,
		Allowlist:      allowlistStore,
		Interceptor:    interceptor,
		Metrics:        proc,
		Runner:         tx.NewSQLRunner(db),
		JWTSigningKey:  cfg.JWTSigningKey,
		AdminTokenHash: cfg.AdminTokenHash,
	}, log)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	handler.Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if rclient != nil {
			if err := rclient.Health(r.Context()); err != nil {
				// Cached reads fall through to postgres, so a cache outage
				// degrades latency, not correctness.
				log.Warn("registry cache unreachable", "error", err)
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting labtrail", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
