package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/rohithpranav45/storeiq/internal/application"
	appbriefing "github.com/rohithpranav45/storeiq/internal/application/briefing"
	"github.com/rohithpranav45/storeiq/internal/application/workflow"
	"github.com/rohithpranav45/storeiq/internal/config"
	domain "github.com/rohithpranav45/storeiq/internal/domain/analysis"
	aiopenai "github.com/rohithpranav45/storeiq/internal/infra/ai/openai"
	mysqlp "github.com/rohithpranav45/storeiq/internal/infra/db/mysql"
	postgresp "github.com/rohithpranav45/storeiq/internal/infra/db/postgres"
	"github.com/rohithpranav45/storeiq/internal/infra/httpserver"
	"github.com/rohithpranav45/storeiq/internal/infra/kv"
	minioStore "github.com/rohithpranav45/storeiq/internal/infra/storage"
	"github.com/rohithpranav45/storeiq/internal/infra/upstream"
	"github.com/rohithpranav45/storeiq/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// upstream analysis service
	client := upstream.New(cfg.Upstream.BaseURL, cfg.UpstreamTimeout())

	// store preferences
	prefsDir := cfg.Preferences.Dir
	if prefsDir == "" {
		prefsDir = "data/preferences"
	}
	prefs, err := kv.Open(prefsDir)
	if err != nil {
		log.Fatalf("preference store error: %v", err)
	}
	defer prefs.Close()

	// run history (optional)
	var history domain.HistoryRepository
	var historyDB *sql.DB
	switch cfg.History.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		historyDB = db
		history = mysqlp.NewRunRepository(db)
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		historyDB = db
		history = postgresp.NewRunRepository(db)
	case "":
		log.Println("run history disabled: no history.driver configured")
	default:
		log.Fatalf("unknown history driver %q", cfg.History.Driver)
	}
	if historyDB != nil {
		defer historyDB.Close()
	}

	// snapshot archive (optional)
	var snapshots domain.SnapshotStore
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		snapshots = store
	} else {
		log.Println("snapshot archive disabled: no minio endpoint configured")
	}

	// init services
	svc := &workflow.Service{
		Client:    client,
		Prefs:     prefs,
		History:   history,
		Snapshots: snapshots,
		Clock:     application.SystemClock{},
	}
	var briefSvc *appbriefing.Service
	if cfg.OpenAI.APIKey != "" {
		briefSvc = appbriefing.NewService(aiopenai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model))
	} else {
		log.Println("briefings disabled: no openai api key configured")
	}

	// health checkers
	checkers := map[string]middleware.HealthChecker{
		"upstream": &middleware.UpstreamHealthChecker{Upstream: client},
	}
	if historyDB != nil {
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: historyDB}
	}

	// init router
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)

	mux.Get("/health", middleware.HealthHandler(checkers))
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Group(func(r chi.Router) {
		if len(cfg.Auth.Keys) > 0 {
			r.Use(middleware.APIKeyAuth(cfg.Auth.Keys))
		}
		r.Use(middleware.RateLimitMiddleware(100, 10))
		r.Mount("/", httpserver.NewRouter(svc, briefSvc, history))
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
