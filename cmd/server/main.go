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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tkachdev/herostore/internal/tracing"
	"github.com/tkachdev/herostore/pkg/herostore/api"
	"github.com/tkachdev/herostore/pkg/herostore/config"
)

// EnvConfig documents the environment the server reads. The values are
// folded into the library's option-based configuration below.
type EnvConfig struct {
	Port         string `env:"PORT" env-default:"8080"`
	Environment  string `env:"ENVIRONMENT" env-default:"development"`
	DatabaseURL  string `env:"DATABASE_URL" env-default:""`
	DBSchema     string `env:"DB_SCHEMA" env-default:""`
	StorageURL   string `env:"STORAGE_URL" env-default:""`
	OTLPEndpoint string `env:"OTLP_ENDPOINT" env-default:""`
}

// schemaOption keeps the library default when DB_SCHEMA is unset
func schemaOption(schema string) config.Option {
	if schema == "" {
		return nil
	}
	return config.WithDatabaseSchema(schema)
}

func main() {
	var envCfg EnvConfig
	if err := cleanenv.ReadEnv(&envCfg); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	serverConfig, err := config.Load(
		config.WithPort(envCfg.Port),
		config.WithEnvironment(envCfg.Environment),
		config.WithDatabaseURL(envCfg.DatabaseURL),
		config.WithStorageURL(envCfg.StorageURL),
		config.WithOTLPEndpoint(envCfg.OTLPEndpoint),
		schemaOption(envCfg.DBSchema),
	)
	if err != nil {
		slog.Error("Failed to load server configuration", "err", err)
		os.Exit(1)
	}

	if serverConfig.Environment == "production" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	if serverConfig.DatabaseType == "postgres" {
		if err := config.PingPostgres(serverConfig.DatabaseURL, serverConfig.DBSchema); err != nil {
			slog.Error("Database is not reachable", "err", err)
			os.Exit(1)
		}
	}

	if serverConfig.OTLPEndpoint != "" {
		shutdownTracer, err := tracing.InitTracer("herostore", serverConfig.OTLPEndpoint)
		if err != nil {
			slog.Error("Failed to initialize tracer", "err", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracer(ctx); err != nil {
				slog.Error("Error shutting down tracer", "err", err)
			}
		}()
	}

	svc, err := serverConfig.BuildService()
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}

	handler := api.NewHeroHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS for development
	if serverConfig.Environment == "development" {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

				if r.Method == "OPTIONS" {
					w.WriteHeader(http.StatusOK)
					return
				}

				next.ServeHTTP(w, r)
			})
		})
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status": "healthy", "environment": "%s", "storage": "%s"}`,
			serverConfig.Environment, serverConfig.Storage.Type)
	})

	r.Route("/api", func(r chi.Router) {
		r.Mount("/superheroes", handler.Routes())
	})

	var rootHandler http.Handler = r
	if serverConfig.OTLPEndpoint != "" {
		rootHandler = otelhttp.NewHandler(r, "herostore")
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverConfig.Port),
		Handler: rootHandler,
	}

	go func() {
		slog.Info("Herostore server starting",
			"port", serverConfig.Port,
			"environment", serverConfig.Environment,
			"database", serverConfig.DatabaseType,
			"storage", serverConfig.Storage.Type)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "err", err)
		os.Exit(1)
	}

	slog.Info("Server exiting")
}
