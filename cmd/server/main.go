package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/docstore/firestore"
	"github.com/anonto42/chirp/backend/internal/docstore/memory"
	"github.com/anonto42/chirp/backend/internal/docstore/mongo"
	"github.com/anonto42/chirp/backend/internal/handlers"
	"github.com/anonto42/chirp/backend/internal/identity"
	"github.com/anonto42/chirp/backend/internal/router"
	"github.com/anonto42/chirp/backend/internal/services"
	"github.com/anonto42/chirp/backend/internal/storage"
	"github.com/anonto42/chirp/backend/pkg/config"
	"github.com/anonto42/chirp/backend/pkg/firebase"
	"github.com/anonto42/chirp/backend/pkg/logger"
	"github.com/anonto42/chirp/backend/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zl, err := logger.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Initialize database connections
	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		zl.Fatal("failed to initialize databases", zap.Error(err))
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	// Initialize Firebase only when a component needs it
	var app *firebase.App
	if cfg.UsesFirebase() {
		app, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseProjectID, cfg.StorageBucket)
		if err != nil {
			zl.Fatal("failed to initialize Firebase", zap.Error(err))
		}
	}

	store, err := openStore(ctx, cfg, db, app)
	if err != nil {
		zl.Fatal("failed to open document store", zap.Error(err))
	}
	defer store.Close()

	provider, verifier, local, err := openIdentity(cfg, db, app)
	if err != nil {
		zl.Fatal("failed to initialize identity provider", zap.Error(err))
	}

	uploader, err := openUploader(ctx, cfg)
	if err != nil {
		zl.Fatal("failed to initialize uploads", zap.Error(err))
	}
	defer func() {
		if err := uploader.Close(); err != nil {
			zl.Warn("close upload backend", zap.Error(err))
		}
	}()

	svc := router.NewServices(store, provider, zl, services.Options{
		FeedFollowCap: cfg.FeedFollowCap,
		FeedLimit:     cfg.FeedLimit,
		FanoutCap:     cfg.FanoutCap,
	})

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	// Setup global middleware
	config.SetupMiddleware(e, zl)
	if cfg.StorageBucket == "" {
		e.Static("/uploads", cfg.UploadDir)
	}

	// Setup routes and dependencies
	router.SetupRoutes(e, svc, router.Deps{
		Verifier: verifier,
		Local:    local,
		Uploader: uploader,
		Health:   handlers.NewHealthHandler(cfg.Env, cfg.StoreBackend, cfg.IdentityProvider),
	}, zl)

	// Start server
	go func() {
		zl.Info("server starting", zap.String("port", cfg.Port), zap.String("store", cfg.StoreBackend), zap.String("identity", cfg.IdentityProvider))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown", zap.Error(err))
	}
	// let in-flight notifications and counter updates land before the store closes
	svc.Dispatcher.Wait()
	zl.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config, db *config.DB, app *firebase.App) (docstore.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StoreFirestore:
		client, err := app.OpenFirestore(ctx)
		if err != nil {
			return nil, err
		}
		return firestore.New(client), nil
	case config.StoreMongo:
		return mongo.New(db.Mongo, db.Mongo.Database(cfg.MongoDB), cfg.PollInterval), nil
	default:
		return nil, errors.New("unknown STORE_BACKEND " + cfg.StoreBackend)
	}
}

func openIdentity(cfg *config.Config, db *config.DB, app *firebase.App) (services.IdentityProvider, identity.Verifier, *identity.LocalProvider, error) {
	switch cfg.IdentityProvider {
	case config.IdentityLocal:
		credentials, err := identity.NewGormCredentialStore(db.Postgres)
		if err != nil {
			return nil, nil, nil, err
		}
		local := identity.NewLocalProvider(credentials, cfg.JWTSecret)
		return local, local, local, nil
	case config.IdentityFirebase:
		fb := identity.NewFirebaseProvider(app.AuthClient)
		return fb, fb, nil, nil
	default:
		return nil, nil, nil, errors.New("unknown IDENTITY_PROVIDER " + cfg.IdentityProvider)
	}
}

// openUploader stores images in the Firebase bucket when one is configured
// and in UPLOAD_DIR otherwise.
func openUploader(ctx context.Context, cfg *config.Config) (*storage.Uploader, error) {
	if cfg.StorageBucket != "" {
		backend, err := storage.NewGCSBackend(ctx, cfg.StorageBucket, cfg.FirebaseCredentialsPath)
		if err != nil {
			return nil, err
		}
		return storage.NewUploader(backend), nil
	}
	backend, err := storage.NewLocalBackend(cfg.UploadDir, cfg.PublicURL+"/uploads")
	if err != nil {
		return nil, err
	}
	return storage.NewUploader(backend), nil
}
