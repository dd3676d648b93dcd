// Package main is the entry point for the Minka API server.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/minka-latam/minka-sub002/internal/authz"
	"github.com/minka-latam/minka-sub002/internal/config"
	"github.com/minka-latam/minka-sub002/internal/database"
	"github.com/minka-latam/minka-sub002/internal/handler"
	"github.com/minka-latam/minka-sub002/internal/handler/web"
	"github.com/minka-latam/minka-sub002/internal/identity"
	"github.com/minka-latam/minka-sub002/internal/identity/jwtauth"
	"github.com/minka-latam/minka-sub002/internal/identity/remote"
	"github.com/minka-latam/minka-sub002/internal/middleware"
	"github.com/minka-latam/minka-sub002/internal/repository"
	"github.com/minka-latam/minka-sub002/internal/service"
)

func main() {
	// Setup structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Starting Minka API",
		slog.String("environment", cfg.Server.Environment),
		slog.Int("port", cfg.Server.Port),
		slog.String("identity_provider", cfg.Identity.Provider),
	)

	ctx := context.Background()

	// Connect to PostgreSQL
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	if err := db.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database migrations completed")

	// Connect to Redis
	redis, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	provider, err := newIdentityProvider(cfg.Identity, redis)
	if err != nil {
		log.Fatalf("Failed to configure identity provider: %v", err)
	}

	cookies, err := identity.NewCookieStore(cfg.Session)
	if err != nil {
		log.Fatalf("Failed to configure session cookie: %v", err)
	}

	// Repositories
	profileRepo := repository.NewProfileRepository(db.Pool())
	notificationRepo := repository.NewNotificationRepository(db.Pool())

	// Request resolution shared by every handler
	resolver := authz.NewResolver(provider, profileRepo, notificationRepo, logger)
	shaper := authz.NewShaper(logger, cfg.Session.SignInPath, nil)

	// Services
	profileService := service.NewProfileService(profileRepo)
	notificationService := service.NewNotificationService(notificationRepo, profileRepo)
	authService := service.NewAuthService(provider, resolver)

	// Handlers
	api := &handler.API{
		Resolver:      resolver,
		Shaper:        shaper,
		Creds:         cookies,
		Sessions:      handler.NewSessionHandler(resolver, shaper, cookies, authService, logger),
		Profiles:      handler.NewProfileHandler(profileService, shaper),
		Notifications: handler.NewNotificationHandler(notificationService, shaper),
	}
	pages := web.NewWebHandler(resolver, shaper, cookies, profileService, logger)

	compress, err := middleware.Compress()
	if err != nil {
		log.Fatalf("Failed to configure compression: %v", err)
	}

	// Setup router
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))

	// Health check endpoints (no auth required)
	r.Get("/health", healthHandler())
	r.Get("/ready", readyHandler(db, redis))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimit.Enabled {
			limits := middleware.DefaultRateLimitConfig()
			if cfg.RateLimit.RequestsPerMinute > 0 {
				limits.RequestsPerMinute = cfg.RateLimit.RequestsPerMinute
				limits.BurstSize = cfg.RateLimit.BurstSize
			}
			r.Use(middleware.RateLimit(redis, limits, cookies, logger))
		}
		r.Mount("/", api.Routes())
	})

	// Dashboard pages
	r.Group(func(r chi.Router) {
		r.Use(compress)
		r.Mount("/", pages.Routes())
	})

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down server", slog.String("signal", sig.String()))

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	logger.Info("Server stopped gracefully")
}

// newIdentityProvider builds the configured identity provider.
func newIdentityProvider(cfg config.IdentityConfig, redis *database.Redis) (identity.Provider, error) {
	switch cfg.Provider {
	case config.ProviderJWT:
		return jwtauth.NewProvider(jwtauth.Config{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		}, redis), nil
	case config.ProviderRemote:
		rc := remote.Config{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.HTTPTimeout,
		}
		if cfg.ClientID != "" && cfg.TokenURL != "" {
			rc.ClientCredentials = &clientcredentials.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				TokenURL:     cfg.TokenURL,
			}
		}
		return remote.NewProvider(rc), nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.Provider)
	}
}

// healthHandler returns a simple health check that always succeeds if the server is running.
func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}

// readyHandler returns a readiness check that verifies database and Redis connections.
func readyHandler(db *database.Postgres, redis *database.Redis) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, `{"status":"error","component":"database"}`)
			return
		}

		if err := redis.Ping(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, `{"status":"error","component":"redis"}`)
			return
		}

		writeStatus(w, http.StatusOK, `{"status":"ok","database":"connected","redis":"connected"}`)
	}
}

func writeStatus(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
