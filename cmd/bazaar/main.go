package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"github.com/packbazaar/bazaar/pkg/api"
	"github.com/packbazaar/bazaar/pkg/authz"
	"github.com/packbazaar/bazaar/pkg/blob"
	"github.com/packbazaar/bazaar/pkg/catalog"
	"github.com/packbazaar/bazaar/pkg/config"
	"github.com/packbazaar/bazaar/pkg/middleware"
	"github.com/packbazaar/bazaar/pkg/observability"
	"github.com/packbazaar/bazaar/pkg/search"
	"github.com/packbazaar/bazaar/pkg/uploads"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("bazaar: %v", err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	metrics := observability.NewMetrics(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MinConns)
	if cfg.Database.Driver == "sqlite3" {
		// sqlite serializes writers anyway; a single connection avoids
		// SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	uploadStore := uploads.NewStore(db, cfg.Database.Driver)
	if err := uploadStore.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate uploads schema: %w", err)
	}
	entityStore, err := catalog.NewStore(db, cfg.Database.Driver)
	if err != nil {
		return err
	}
	if err := entityStore.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate catalog schema: %w", err)
	}

	blobs, err := newBlobStore(ctx, cfg.Blob)
	if err != nil {
		return err
	}
	logger.WithField("backend", cfg.Blob.Backend).Info("Blob storage initialized")

	var redisClient *redis.Client
	indexer := search.Indexer(search.NoopIndexer{})
	if cfg.Redis.URL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		feed := search.NewRedisIndexer(redisClient, cfg.Redis.Queue)
		indexer = feed
		logger.WithField("queue", feed.Queue()).Info("Search index feed enabled")
	} else {
		logger.Info("Search index feed disabled, published entities will not be indexed")
	}

	gate := authz.NewRuleGate(authz.DefaultRules())
	if cfg.Authz.RulesPath != "" {
		rules, err := authz.LoadRules(cfg.Authz.RulesPath)
		if err != nil {
			return fmt.Errorf("failed to load authorization rules: %w", err)
		}
		gate.Replace(rules)
		logger.WithFields(map[string]interface{}{
			"path":  cfg.Authz.RulesPath,
			"rules": len(rules),
		}).Info("Loaded authorization rules")
	}

	uploadService := uploads.NewService(uploadStore, blobs, metrics)
	catalogService := catalog.NewService(entityStore, uploadService, gate, indexer, metrics)

	resolver := middleware.NewStaticTokenResolver(nil)
	if cfg.Authz.AdminToken != "" {
		resolver.Add(cfg.Authz.AdminToken, authz.Actor{
			ID:           "admin",
			Name:         "bootstrap admin",
			Capabilities: []authz.Capability{authz.CapAll},
		})
		logger.Info("Bootstrap admin token registered")
	}

	server := api.NewServer(api.Options{
		Logger:         logger,
		Metrics:        metrics,
		TokenResolver:  resolver,
		Uploads:        uploads.NewHandlers(uploadService, cfg.Uploads.MaxSize),
		Catalog:        catalog.NewHandlers(catalogService),
		TracingEnabled: cfg.Observability.OTelEnabled,
	})

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	checker := observability.NewHealthChecker(db, redisClient)
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: api.NewHealthHandler(checker, metrics),
	}

	sweeper := uploads.NewSweeper(uploadStore, logger, cfg.Uploads.RetentionMaxAge)
	if err := sweeper.Start(cfg.Uploads.RetentionSchedule); err != nil {
		return err
	}

	shutdown := observability.NewShutdownManager(logger, apiServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		sweeper.Stop()
		return nil
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		cancel()
		return nil
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return redisClient.Close()
		})
	}
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return db.Close()
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return providers.Shutdown(ctx)
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})
	if cfg.Authz.RulesPath != "" {
		group.Go(func() error {
			err := authz.WatchRules(groupCtx, gate, cfg.Authz.RulesPath, logger)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
	}
	return group.Wait()
}

// newBlobStore selects the payload storage backend from configuration
func newBlobStore(ctx context.Context, cfg config.BlobConfig) (blob.Store, error) {
	switch cfg.Backend {
	case "filesystem":
		return blob.NewFilesystemStore(cfg.FilesystemRoot)
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown blob backend: %s", cfg.Backend)
	}
}
