package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fjod/sillage/internal/catalog"
	"github.com/fjod/sillage/internal/config"
	"github.com/fjod/sillage/internal/events"
	h "github.com/fjod/sillage/internal/http"
	"github.com/fjod/sillage/internal/orders"
	"github.com/fjod/sillage/internal/storage"
	"github.com/fjod/sillage/internal/storefront"
)

func NewServeCommand(opts *RootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			if port != 0 {
				cfg.HTTP.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override http.port")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	// Prices go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	pricing, err := cfg.Pricing.Pricing()
	if err != nil {
		return err
	}

	store, closeStore, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	repo, err := openCatalog(cfg.Catalog, cfg.Catalog.Migrate)
	if err != nil {
		return err
	}
	defer repo.Close()
	products := catalog.NewCachedRepository(repo, cfg.Catalog.CacheTTL)

	ordersClient := orders.NewClient(orders.Config{
		BaseURL:             cfg.Orders.BaseURL,
		Timeout:             cfg.Orders.Timeout,
		ConsecutiveFailures: cfg.Orders.BreakerFailures,
		OpenTimeout:         cfg.Orders.BreakerOpenTimeout,
	}, orders.WithLogger(log))

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		kp := events.NewKafkaPublisher(log, cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		defer kp.Close()
		publisher = kp
		log.Info("publishing storefront events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	registry := storefront.NewRegistry(storefront.Deps{
		Storage:            store,
		Catalog:            products,
		Orders:             ordersClient,
		Publisher:          publisher,
		Logger:             log,
		Pricing:            &pricing,
		ClearCartOnSuccess: cfg.Checkout.ClearCartOnSuccess,
	})
	defer registry.Close()

	if idle := cfg.Storage.SessionIdleTimeout; idle > 0 {
		go registry.RunEvictor(ctx, idle/2, idle)
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      h.NewRouter(h.RouterConfig{RequestTimeout: cfg.HTTP.RequestTimeout}, registry, products, log),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("storefront starting", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Store, func(), error) {
	switch cfg.Storage.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
		return storage.NewRedisStore(client, cfg.Redis.TTL, cfg.Redis.MaxJitter), closer(log, "redis", client), nil

	case "mongo":
		db, err := storage.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, err
		}
		disconnect := func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				log.Warn("mongodb disconnect failed", zap.Error(err))
			}
		}
		store := storage.NewMongoStore(db, cfg.Mongo.Collection)
		if err := ensureIndexes(ctx, store, cfg.Mongo.TTL, disconnect); err != nil {
			return nil, nil, err
		}
		log.Info("connected to mongodb", zap.String("database", cfg.Mongo.Database))
		return store, disconnect, nil

	default:
		return storage.NewMemoryStore(), func() {}, nil
	}
}

type indexCreator interface {
	CreateIndexes(ctx context.Context, ttl time.Duration) error
}

// ensureIndexes runs release when the indexes cannot be created, since the
// caller never receives the store.
func ensureIndexes(ctx context.Context, ix indexCreator, ttl time.Duration, release func()) error {
	if err := ix.CreateIndexes(ctx, ttl); err != nil {
		release()
		return fmt.Errorf("create mongo indexes: %w", err)
	}
	return nil
}

func closer(log *zap.Logger, name string, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Warn("close failed", zap.String("resource", name), zap.Error(err))
		}
	}
}
