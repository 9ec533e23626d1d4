package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lmittmann/tint"

	"github.com/bryanwahyu/vision-assist/internal/application"
	appanalysis "github.com/bryanwahyu/vision-assist/internal/application/analysis"
	"github.com/bryanwahyu/vision-assist/internal/config"
	domain "github.com/bryanwahyu/vision-assist/internal/domain/analysis"
	openaiBackend "github.com/bryanwahyu/vision-assist/internal/infra/backend/openai"
	visionBackend "github.com/bryanwahyu/vision-assist/internal/infra/backend/vision"
	mysqlp "github.com/bryanwahyu/vision-assist/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/vision-assist/internal/infra/db/postgres"
	"github.com/bryanwahyu/vision-assist/internal/infra/httpserver"
	"github.com/bryanwahyu/vision-assist/internal/infra/notify/ws"
	minioStore "github.com/bryanwahyu/vision-assist/internal/infra/storage"
	"github.com/bryanwahyu/vision-assist/internal/middleware"
)

func main() {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: "15:04:05",
		}),
	))

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

	// connect result log database
	var (
		db        *sql.DB
		resultLog domain.ResultLog
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		resultLog = postgresp.NewResultRepository(db)
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		resultLog = mysqlp.NewResultRepository(db)
	default:
		log.Fatalf("unknown database driver: %s", cfg.Database.Driver)
	}
	defer db.Close()

	// init minio
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

	// init backend
	var backend domain.Backend
	switch cfg.Backend.Provider {
	case "openai":
		backend = openaiBackend.NewClient(cfg.Backend.APIKey, cfg.Backend.Model)
	case "http":
		backend = visionBackend.NewClient(cfg.Backend.BaseURL, cfg.BackendTimeout())
	default:
		log.Fatalf("unknown backend provider: %s", cfg.Backend.Provider)
	}

	// init push hub
	hub := ws.NewHub()

	// init service
	svc := &appanalysis.Service{
		Backend:  backend,
		Log:      resultLog,
		Images:   store,
		Notifier: httpserver.NewNotifier(hub),
		Clock:    application.SystemClock{},
	}

	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
		"storage":  middleware.CheckerFunc(store.Ping),
	}

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(svc, hub, cfg.MaxUploadBytes(), checkers))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
