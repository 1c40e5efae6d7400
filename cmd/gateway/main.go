package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/fideprep/fideprep-api/internal/api/http"
	"github.com/fideprep/fideprep-api/internal/auth/jwks"
	auth "github.com/fideprep/fideprep-api/internal/auth/middleware"
	"github.com/fideprep/fideprep-api/internal/catalog"
	"github.com/fideprep/fideprep-api/internal/config"
	"github.com/fideprep/fideprep-api/internal/db"
	"github.com/fideprep/fideprep-api/internal/exam"
	"github.com/fideprep/fideprep-api/internal/logger"
	storage "github.com/fideprep/fideprep-api/internal/storage"
	syncx "github.com/fideprep/fideprep-api/internal/sync"
)

func main() {
	cfg := config.FromEnv()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// --- Storage ---
	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatal("blob store", "error", err, "path", cfg.BlobBasePath)
	}

	var (
		dbh      *sql.DB
		store    exam.Store
		sections catalog.Repo
		events   exam.EventSink
	)
	if cfg.DBDriver == "memory" {
		store = exam.NewInMemoryStore()
		sections = catalog.NewMemoryRepo()
		events = &syncx.MemoryLog{}
	} else {
		dbh, err = db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		if err != nil {
			log.Fatal("db open failed", "error", err, "driver", cfg.DBDriver)
		}
		defer dbh.Close()
		store = exam.NewSQLStore(dbh)
		sections = catalog.NewSQLRepo(dbh)
		events = syncx.NewEventRepo(dbh, "")
	}

	if cfg.CatalogManifest != "" {
		m, err := catalog.LoadManifest(cfg.CatalogManifest)
		if err != nil {
			log.Fatal("catalog manifest", "error", err, "path", cfg.CatalogManifest)
		}
		rep, err := catalog.Sync(ctx, sections, bs, m, filepath.Dir(cfg.CatalogManifest), cfg.TemplatesKey)
		if err != nil {
			log.Fatal("catalog sync failed", "error", err)
		}
		log.Info("catalog synced", "sections", rep.Sections, "uploaded", rep.Uploaded, "templates", rep.Templates)
	}

	// --- Catalog ---
	cache := catalog.NewMemoryCache(cfg.ContentCacheTTL)
	if cfg.RedisAddr != "" {
		rc, err := catalog.NewRedisCache(ctx, cfg.RedisAddr, cfg.ContentCacheTTL)
		if err != nil {
			log.Warn("redis unavailable, using in-process content cache", "error", err, "addr", cfg.RedisAddr)
		} else {
			defer rc.Close()
			cache = rc
		}
	}
	cat := catalog.New(sections, bs,
		catalog.WithCache(cache),
		catalog.WithTemplatesKey(cfg.TemplatesKey),
		catalog.WithLogger(log),
	)

	lang, err := catalog.ParseLanguage(cfg.DefaultLanguage)
	if err != nil {
		log.Fatal("default language", "error", err)
	}
	svc := exam.NewService(store, cat,
		exam.WithEvents(events),
		exam.WithLogger(log),
		exam.WithDefaultLanguage(lang),
	)

	// --- Auth ---
	var (
		verifiers auth.Chain
		authSvc   *auth.AuthService
	)
	if cfg.EnableLocalAuth {
		authSvc = auth.NewAuthService(cfg.AuthHMACSecret)
		verifiers = append(verifiers, authSvc)
	}
	if cfg.EnableJWKS {
		verifiers = append(verifiers, jwks.NewVerifier(cfg.JWKSURL, cfg.JWTIssuer, cfg.JWTAudience))
	}
	if len(verifiers) == 0 {
		log.Warn("no token verifier enabled; every API call will be rejected")
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, api.RequestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if authSvc != nil {
		r.Post("/auth/login", auth.LoginHandler(authSvc, auth.LoginConfig{
			AdminUser:     cfg.AdminUser,
			AdminPassHash: cfg.AdminPassHash,
		}))
	}

	api.Mount(r, api.Deps{
		Exams:           svc,
		Catalog:         cat,
		Blobs:           bs,
		Verifier:        verifiers,
		AdminSubjects:   cfg.AdminSubjects,
		DefaultLanguage: lang,
		Log:             log,
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if dbh != nil {
			pctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := dbh.PingContext(pctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", "error", err)
		}
	}()

	<-sigCtx.Done()
	log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown", "error", err)
	}
}
