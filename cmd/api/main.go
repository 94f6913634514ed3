package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/go-link/api/internal/handlers"
	"github.com/go-link/api/internal/platform/auth"
	"github.com/go-link/api/internal/platform/config"
	pfirestore "github.com/go-link/api/internal/platform/firestore"
	"github.com/go-link/api/internal/platform/idempotency"
	"github.com/go-link/api/internal/platform/jobs"
	"github.com/go-link/api/internal/platform/observability"
	platformstorage "github.com/go-link/api/internal/platform/storage"
	"github.com/go-link/api/internal/repositories"
	firestoreRepo "github.com/go-link/api/internal/repositories/firestore"
	"github.com/go-link/api/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(startedAt)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	signer, err := platformstorage.NewServiceAccountSignerFromFile(cfg.Firebase.CredentialsFile)
	if err != nil {
		logger.Fatal("failed to load storage signer credentials", zap.Error(err))
	}
	signedURLClient, err := platformstorage.NewClient(signer)
	if err != nil {
		logger.Fatal("failed to initialise signed url client", zap.Error(err))
	}

	systemService, err := newSystemService(firestoreClient, buildInfo)
	if err != nil {
		logger.Warn("health: system service init failed", zap.Error(err))
	}

	idempotencyStore := idempotency.NewFirestoreStore(firestoreClient)
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			cleanupLogger := logger.Named("idempotency")
			for {
				select {
				case <-cleanupTicker.C:
					runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
					removed, err := idempotencyStore.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
					cancel()
					if err != nil {
						cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
						continue
					}
					if removed > 0 {
						cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier, auth.WithUserGetter(firebaseVerifier))

	userRepo, err := firestoreRepo.NewUserRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise user repository", zap.Error(err))
	}
	slugRepo, err := firestoreRepo.NewSlugRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise slug repository", zap.Error(err))
	}
	blockRepo, err := firestoreRepo.NewBlockRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise block repository", zap.Error(err))
	}
	orderRepo, err := firestoreRepo.NewOrderRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}
	floristRepo, err := firestoreRepo.NewFloristRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise florist repository", zap.Error(err))
	}
	inventoryRepo, err := firestoreRepo.NewInventoryRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise inventory repository", zap.Error(err))
	}
	directoryRepo, err := firestoreRepo.NewDirectoryRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise directory repository", zap.Error(err))
	}
	assetRepo, err := firestoreRepo.NewAssetRepository(signedURLClient, cfg.Storage.MediaBucket)
	if err != nil {
		logger.Fatal("failed to initialise asset repository", zap.Error(err))
	}

	var orderEvents services.OrderEventPublisher
	var pubsubClient *pubsub.Client
	if cfg.Features.EnableOrderEvents && cfg.Events.Enabled {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.Events.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		publisher, err := jobs.NewPubSubOrderEventPublisher(pubsubClient.Topic(cfg.Events.OrderTopic))
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
		orderEvents = publisher
	}
	defer func() {
		if pubsubClient != nil {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}
	}()

	profileService, err := services.NewProfileService(services.ProfileServiceDeps{
		Users:  userRepo,
		Slugs:  slugRepo,
		Clock:  time.Now,
		Logger: serviceLogger(logger.Named("profile")),
	})
	if err != nil {
		logger.Fatal("failed to initialise profile service", zap.Error(err))
	}
	publicService, err := services.NewPublicService(services.PublicServiceDeps{
		Slugs:  slugRepo,
		Users:  userRepo,
		Blocks: blockRepo,
		Clock:  time.Now,
		Logger: serviceLogger(logger.Named("public")),
	})
	if err != nil {
		logger.Fatal("failed to initialise public service", zap.Error(err))
	}
	blockService, err := services.NewBlockService(services.BlockServiceDeps{
		Blocks: blockRepo,
		Clock:  time.Now,
		Logger: serviceLogger(logger.Named("blocks")),
	})
	if err != nil {
		logger.Fatal("failed to initialise block service", zap.Error(err))
	}
	bouquetService, err := services.NewBouquetService(services.BouquetServiceDeps{
		Slugs:  slugRepo,
		Users:  userRepo,
		Blocks: blockRepo,
		Orders: orderRepo,
		Events: orderEvents,
		Clock:  time.Now,
		Logger: serviceLogger(logger.Named("bouquet")),
	})
	if err != nil {
		logger.Fatal("failed to initialise bouquet service", zap.Error(err))
	}
	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders: orderRepo,
		Events: orderEvents,
		Clock:  time.Now,
		Logger: serviceLogger(logger.Named("orders")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}
	floristService, err := services.NewFloristService(services.FloristServiceDeps{
		Florists: floristRepo,
		Clock:    time.Now,
		Logger:   serviceLogger(logger.Named("florists")),
	})
	if err != nil {
		logger.Fatal("failed to initialise florist service", zap.Error(err))
	}
	inventoryService, err := services.NewInventoryService(services.InventoryServiceDeps{
		Inventory: inventoryRepo,
		Clock:     time.Now,
		Logger:    serviceLogger(logger.Named("inventory")),
	})
	if err != nil {
		logger.Fatal("failed to initialise inventory service", zap.Error(err))
	}
	directoryService, err := services.NewDirectoryService(services.DirectoryServiceDeps{
		Directory: directoryRepo,
		Clock:     time.Now,
		Logger:    serviceLogger(logger.Named("directory")),
	})
	if err != nil {
		logger.Fatal("failed to initialise directory service", zap.Error(err))
	}
	assetService, err := services.NewAssetService(services.AssetServiceDeps{
		Assets: assetRepo,
		Clock:  time.Now,
		Logger: serviceLogger(logger.Named("assets")),
	})
	if err != nil {
		logger.Fatal("failed to initialise asset service", zap.Error(err))
	}

	publicHandlers := handlers.NewPublicHandlers(handlers.PublicHandlersDeps{
		Pages:         publicService,
		Bouquet:       bouquetService,
		RatePerMinute: cfg.RateLimits.PublicPerMinute,
	})
	blockHandlers := handlers.NewBlockHandlers(blockService)
	assetHandlers := handlers.NewAssetHandlers(handlers.AssetHandlersDeps{Assets: assetService})
	meHandlers := handlers.NewMeHandlers(handlers.MeHandlersDeps{
		Authenticator: authenticator,
		Profiles:      profileService,
		Blocks:        blockHandlers.Routes,
		Assets:        assetHandlers.Routes,
		RatePerMinute: cfg.RateLimits.AuthenticatedPerMinute,
	})
	hubHandlers := handlers.NewHubHandlers(handlers.HubHandlersDeps{
		Authenticator: authenticator,
		Orders:        orderService,
		Florists:      floristService,
		Inventory:     inventoryService,
		RatePerMinute: cfg.RateLimits.AuthenticatedPerMinute,
	})
	directoryHandlers := handlers.NewDirectoryHandlers(handlers.DirectoryHandlersDeps{
		Authenticator: authenticator,
		Directory:     directoryService,
	})
	healthHandlers := handlers.NewHealthHandlers(handlers.HealthHandlersDeps{System: systemService})

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(cfg.Firestore.ProjectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(cfg.Firestore.ProjectID),
		idempotencyMiddleware,
	}

	opts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithMeRoutes(meHandlers.Routes),
		handlers.WithHubRoutes(hubHandlers.Routes),
		handlers.WithDirectoryRoutes(directoryHandlers.Routes),
	}
	if cfg.Features.EnablePublicPages {
		opts = append(opts, handlers.WithPublicRoutes(publicHandlers.Routes))
	}

	router := handlers.NewRouter(opts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("go-link api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(started time.Time) services.BuildInfo {
	version := strings.TrimSpace(os.Getenv("API_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("API_BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(os.Getenv("API_ENVIRONMENT"))
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func newSystemService(client *firestore.Client, build services.BuildInfo) (services.SystemService, error) {
	if client == nil {
		return nil, errors.New("health: firestore client is required")
	}
	checks := []repositories.DependencyCheck{
		{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				iter := client.Collections(ctx)
				_, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
		},
	}
	repo, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}
	return services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: repo,
		Clock:            time.Now,
		Build:            build,
	})
}

func serviceLogger(logger *zap.Logger) func(context.Context, string, map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug("service log", zFields...)
	}
}
