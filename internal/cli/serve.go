package cli

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/health"
	apihttp "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/outbox"
	"github.com/fjod/storefront/internal/remote"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/service"
	"github.com/fjod/storefront/internal/session"
	"github.com/fjod/storefront/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

const (
	healthInterval     = 15 * time.Second
	outboxPollInterval = time.Second
	limiterCleanup     = time.Minute
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the gRPC health server",
		Long: `Run the storefront HTTP API together with the gRPC health service.

BACKEND_URL and BACKEND_API_KEY are required. The process stops gracefully on
SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	const op = "serve"
	log := slog.With("op", op)

	backend, err := remote.NewClient(remote.Config{
		URL:     cfg.BackendURL,
		APIKey:  cfg.BackendAPIKey,
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		return err
	}

	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return err
	}
	defer func() { _ = repository.DisconnectMongoDB(mongoDB) }()
	cartRepo := repository.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		log.Warn("failed to create cart indexes", "error", err)
	}
	log.Info("connected to MongoDB", "database", cfg.MongoDBName)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}

	events, err := outbox.Open(ctx, cfg.OutboxDriver, cfg.OutboxDSN)
	if err != nil {
		return err
	}
	defer events.Close()
	if err := events.Migrate(); err != nil {
		return err
	}

	carts := service.NewCartService(cartRepo, cache.NewRedisCache(rdb))
	orders := store.NewOrderStore(backend)
	products := store.NewProductStore(backend)
	profiles := store.NewProfileStore(backend)
	addresses := store.NewAddressStore(backend)
	reviews := store.NewReviewStore(backend)
	checkout := service.NewCheckoutService(carts, orders, events)

	registry := session.NewRegistry(func() session.AuthClient {
		return backend.NewSessionClient()
	}, profiles, cfg.SessionIdleTTL)
	registry.OnEvict(carts.Forget)

	limiter := apihttp.NewRateLimiter(cfg.AuthRateLimit, max(1, int(cfg.AuthRateLimit*2)))

	key, err := sessionKey(cfg.SessionKey)
	if err != nil {
		return err
	}

	router := apihttp.NewRouter(apihttp.Handlers{
		Catalog:   apihttp.NewCatalogHandler(products, store.NewCategoryStore(backend), reviews),
		Cart:      apihttp.NewCartHandler(carts, products),
		Auth:      apihttp.NewAuthHandler(),
		Profile:   apihttp.NewProfileHandler(profiles, orders),
		Orders:    apihttp.NewOrdersHandler(orders, checkout, addresses),
		Addresses: apihttp.NewAddressHandler(addresses),
	}, apihttp.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		Sessions:       apihttp.NewSessions(apihttp.NewCookieStore(key, cfg.CookieSecure), registry),
		AuthLimiter:    limiter,
	})

	monitor := health.NewMonitor(
		health.Check{Name: "backend", Ping: backend.Ping},
		health.Check{Name: "mongo", Ping: mongoPing(mongoDB)},
		health.Check{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		health.Check{Name: "outbox", Ping: events.Ping},
	)
	grpcServer := health.NewGRPCServer(monitor)
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr(), err)
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", "addr", cfg.HTTPAddr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("gRPC health server listening", "addr", cfg.GRPCAddr())
		if err := grpcServer.Serve(grpcLis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		registry.Run(gctx, session.CleanupInterval)
		return nil
	})
	g.Go(func() error {
		limiter.Run(gctx, limiterCleanup)
		return nil
	})
	g.Go(func() error {
		monitor.Run(gctx, healthInterval)
		return nil
	})
	if len(cfg.KafkaBrokers) > 0 {
		poller := outbox.NewPoller(events, outbox.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...), outboxPollInterval)
		g.Go(func() error {
			poller.Run(gctx)
			return nil
		})
	} else {
		log.Warn("KAFKA_BROKERS not set, order events stay in the outbox")
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("http server forced to shutdown", "error", err)
		}
		grpcServer.GracefulStop()
		return nil
	})

	err = g.Wait()
	log.Info("server exited")
	return err
}

func mongoPing(db *mongo.Database) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return repository.PingMongoDB(ctx, db)
	}
}

// sessionKey returns the configured cookie key, or a random one so that
// development setups work without configuration. Random keys sign everyone
// out on restart.
func sessionKey(configured string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}
	slog.Warn("SESSION_KEY not set, using a random key")
	return key, nil
}
