package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/catalog/catalog-go/internal/cache"
	"github.com/catalog/catalog-go/internal/config"
	"github.com/catalog/catalog-go/internal/crypto"
	"github.com/catalog/catalog-go/internal/handler"
	"github.com/catalog/catalog-go/internal/logger"
	"github.com/catalog/catalog-go/internal/mailer"
	"github.com/catalog/catalog-go/internal/metrics"
	"github.com/catalog/catalog-go/internal/repository"
	"github.com/catalog/catalog-go/internal/repository/memstore"
	"github.com/catalog/catalog-go/internal/repository/mongostore"
	"github.com/catalog/catalog-go/internal/repository/mysqlstore"
	"github.com/catalog/catalog-go/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// stores groups the backend selected by STORE_DRIVER with its shutdown hook.
type stores struct {
	users    repository.IdentityStore
	products repository.ProductStore
	close    func(ctx context.Context) error
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		db, err := mongostore.Connect(ctx, cfg.MongoURL, cfg.MongoDatabase, cfg.StoreTimeout)
		if err != nil {
			return stores{}, fmt.Errorf("connecting to mongodb: %w", err)
		}
		return stores{users: db.Users(), products: db.Products(), close: db.Close}, nil
	case config.DriverMySQL:
		db, err := mysqlstore.Open(ctx, cfg.MySQLDSN, cfg.StoreTimeout)
		if err != nil {
			return stores{}, fmt.Errorf("connecting to mysql: %w", err)
		}
		return stores{
			users:    db.Users(),
			products: db.Products(),
			close:    func(context.Context) error { return db.Close() },
		}, nil
	default:
		slog.Warn("using in-memory store, data will not survive a restart")
		store := memstore.New()
		return stores{
			users:    store.Users(),
			products: store.Products(),
			close:    func(context.Context) error { return nil },
		}, nil
	}
}

// openCache returns nil when REDIS_URL is unset. An unreachable server is not fatal.
func openCache(ctx context.Context, cfg config.Config) (*cache.RedisStore, error) {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, listing cache disabled")
		return nil, nil
	}

	store, err := cache.NewRedisStore(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.CacheTimeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		slog.Warn("redis ping failed, continuing with cache misses", "error", err)
	}

	return store, nil
}

func newNotifier(cfg config.Config, log *slog.Logger) service.Notifier {
	if cfg.SMTPHost == "" {
		return mailer.NewLogSender(log)
	}
	return mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SenderEmail, log)
}

func run(cfg config.Config) error {
	log := logger.SetupDefault(os.Stdout, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Error("closing store", "error", err)
		}
	}()

	redisStore, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}

	codec, err := crypto.NewTokenCodec(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.JWTExpiry)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	var lookup *cache.Lookup
	if redisStore != nil {
		defer redisStore.Close()
		lookup = cache.NewLookup(redisStore, cfg.CacheTimeout, collector, log)
	}

	authService := service.NewAuthService(st.users, codec, newNotifier(cfg, log), collector, log)
	defer authService.Wait()

	router := handler.NewRouter(ctx, handler.RouterConfig{
		Auth:               authService,
		Users:              service.NewUserService(st.users),
		Products:           service.NewProductService(st.products, st.users, lookup),
		Logger:             log,
		Metrics:            collector,
		Gatherer:           reg,
		AuthRateLimitRPS:   cfg.AuthRateLimitRPS,
		AuthRateLimitBurst: cfg.AuthRateLimitBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
