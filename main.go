package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"

	"github.com/msomdec/client-registry/internal/config"
	"github.com/msomdec/client-registry/internal/domain"
	"github.com/msomdec/client-registry/internal/handler"
	"github.com/msomdec/client-registry/internal/repository/postgres"
	"github.com/msomdec/client-registry/internal/repository/s3"
	"github.com/msomdec/client-registry/internal/repository/sqlite"
	"github.com/msomdec/client-registry/internal/service"
)

// store is the persistence backend selected by DATABASE_DRIVER.
type store struct {
	db      domain.Database
	clients domain.ClientRepository
	users   domain.UserRepository
	files   domain.FileStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open database", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	defer st.db.Close()

	if err := st.db.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied", "driver", cfg.DatabaseDriver)

	files, imageURL := st.files, cfg.PublicImageURL()
	if cfg.ImageBackend == config.ImagesS3 {
		bucket, err := s3.New(ctx, s3.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			CDNDomain: cfg.S3CDNDomain,
		})
		if err != nil {
			slog.Error("failed to configure S3", "error", err)
			os.Exit(1)
		}
		files, imageURL = bucket, bucket.BaseURL()
	}
	slog.Info("image backend ready", "backend", cfg.ImageBackend, "baseURL", imageURL)

	authService := service.NewAuthService(
		st.users,
		service.NewBcryptHasher(cfg.BcryptCost),
		service.NewJWTTokenService(cfg.JWTSecret, cfg.TokenTTL),
	)
	imageStore := service.NewImageStore(files, imageURL, cfg.ImageMaxBytes)
	clientService := service.NewClientService(st.clients, imageStore)

	var limiter *service.RateLimiter
	if cfg.RateLimitEnabled() {
		limiter = service.NewRateLimiter(cfg.AuthRatePerMinute, cfg.AuthRateBurst)
		go limiter.Run(ctx, 5*time.Minute)
	}

	metrics := handler.NewMetrics()

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	handler.RegisterRoutes(mux, authService, clientService, imageStore, cfg.ImageMaxBytes, limiter)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           corsHandler(metrics.Wrap(handler.SecurityHeaders(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return &store{db: db, clients: db.Clients(), users: db.Users(), files: db.FileStore()}, nil
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &store{db: db, clients: db.Clients(), users: db.Users(), files: db.FileStore()}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}
