// Entry point of the quizcraft account gateway. It wires configuration,
// storage and identity bindings, the signup guard, HTTP routes and graceful
// shutdown.
//
// @title QuizCraft Account API
// @version 1.0
// @description Signup, login and profile API for QuizCraft players.
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/quizcraft-go/apperror"
	"github.com/user/quizcraft-go/auth"
	"github.com/user/quizcraft-go/background"
	"github.com/user/quizcraft-go/clientip"
	"github.com/user/quizcraft-go/config"
	"github.com/user/quizcraft-go/db"
	"github.com/user/quizcraft-go/guard"
	"github.com/user/quizcraft-go/identity"
	"github.com/user/quizcraft-go/logging"
	"github.com/user/quizcraft-go/users"
	"github.com/user/quizcraft-go/userstore"
	"github.com/user/quizcraft-go/web"
)

func main() {
	// .env is a development convenience; production sets variables directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading it: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.NewLogger(cfg.Server.LogLevel)
	defer logger.Sync() //nolint:errcheck

	// A database pool exists only when a Postgres-backed binding is selected.
	var dbPool *pgxpool.Pool
	if cfg.DB != nil {
		dbPool, err = db.NewPool(cfg.DB)
		if err != nil {
			logger.Fatal("failed to create database pool", zap.Error(err))
		}
		defer dbPool.Close()

		if err := db.RunMigrations(cfg.DB, "./migrations"); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Attempt store backing the signup rate limiter.
	var attemptStore guard.AttemptStore
	switch cfg.Guard.AttemptBackend {
	case config.AttemptBackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		attemptStore = guard.NewRedisStore(redisClient, cfg.Guard.Window)
		logger.Info("signup guard using redis attempt store", zap.String("addr", cfg.Redis.Addr))
	default:
		attemptStore = guard.NewMemoryStore()
		logger.Info("signup guard using in-memory attempt store")
	}
	limiter := guard.NewLimiter(attemptStore, cfg.Guard)

	// Stale attempt keys are pruned in the background so an in-memory store
	// does not grow without bound.
	prunerStopChan := make(chan struct{})
	prunerWg := background.StartAttemptPruner(attemptStore, cfg.Guard.PruneInterval, cfg.Guard.Window, prunerStopChan, logger)

	// Identity provider binding.
	var provider identity.Provider
	switch cfg.Identity.Mode {
	case config.ModeLocal:
		provider = identity.NewLocalProvider(dbPool, *cfg.Auth)
		logger.Info("identity provider: local postgres")
	default:
		provider = identity.NewClient(cfg.Identity)
		logger.Info("identity provider: hosted", zap.String("base_url", cfg.Identity.BaseURL))
	}

	// Record store binding.
	var store userstore.Store
	switch cfg.Store.Mode {
	case config.ModePostgres:
		store = userstore.NewPostgresStore(dbPool)
		logger.Info("record store: postgres")
	default:
		store = userstore.NewHostedStore(cfg.Store)
		logger.Info("record store: hosted", zap.String("base_url", cfg.Store.BaseURL))
	}

	resolver := clientip.NewResolver(cfg.IPLookup)

	authService := auth.NewService(limiter, provider, store, cfg.Guard.MinStrength, logger)
	authHandlers := auth.NewHandlers(authService, resolver, logger)

	userService := users.NewService(store)
	userHandlers := users.NewHandlers(userService, logger)

	webHandlers, err := web.NewHandlers(logger)
	if err != nil {
		logger.Fatal("failed to parse page templates", zap.Error(err))
	}

	r := chi.NewRouter()

	// Chi requires all middleware to be registered before any routes.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Fine-grained panic recovery that answers with the application error
	// envelope instead of a bare 500.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered", zap.Any("panic", rvr))
					auth.WriteError(ww, req, logger, apperror.NewInternalError("Something went wrong. Please try again", nil))
				}
			}()
			next.ServeHTTP(ww, req)
		})
	})

	// Account pages.
	r.Get("/signup", webHandlers.HandleSignupPage)
	r.Get("/signin", webHandlers.HandleSigninPage)

	// Auth routes.
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandlers.HandleSignup())
		r.Post("/login", authHandlers.HandleLogin())
		r.Post("/refresh", authHandlers.HandleRefreshToken())
	})

	// Profile routes, protected by the JWT middleware.
	r.Route("/users", func(r chi.Router) {
		r.Use(auth.JWTMiddleware(cfg.Auth))
		r.Get("/me", userHandlers.HandleGetProfile())
		r.Patch("/me", userHandlers.HandleUpdateProfile())
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) //nolint:errcheck
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	close(prunerStopChan)
	waitWithTimeout(prunerWg, 5*time.Second)

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}

// waitWithTimeout waits for wg, giving up after d so a stuck background task
// cannot stall shutdown.
func waitWithTimeout(wg *sync.WaitGroup, d time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
	}
}
