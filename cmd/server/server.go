// @title           Support Relay API
// @version         1.0
// @description     Bridges in-app group chat with a support inbox and a ticketing system.
// @description     App messages are relayed to both providers; agent replies are relayed back over websockets.

// @contact.name   Jan Team
// @contact.url    https://github.com/janhq/jan-server

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8090
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/janhq/support-relay/internal/config"
	"github.com/janhq/support-relay/internal/domain/chat"
	"github.com/janhq/support-relay/internal/domain/provisioning"
	"github.com/janhq/support-relay/internal/domain/realtime"
	"github.com/janhq/support-relay/internal/domain/reconcile"
	"github.com/janhq/support-relay/internal/domain/relay"
	"github.com/janhq/support-relay/internal/infrastructure/auth"
	"github.com/janhq/support-relay/internal/infrastructure/cache"
	"github.com/janhq/support-relay/internal/infrastructure/database"
	"github.com/janhq/support-relay/internal/infrastructure/lock"
	"github.com/janhq/support-relay/internal/infrastructure/logger"
	"github.com/janhq/support-relay/internal/infrastructure/observability"
	chatrepo "github.com/janhq/support-relay/internal/infrastructure/repository/chat"
	"github.com/janhq/support-relay/internal/infrastructure/supportinbox"
	"github.com/janhq/support-relay/internal/infrastructure/ticketing"
	"github.com/janhq/support-relay/internal/interfaces/httpserver"
	"github.com/janhq/support-relay/internal/interfaces/socketserver"
	"github.com/janhq/support-relay/internal/worker"
)

// Application holds the main application components.
type Application struct {
	httpServer *httpserver.HTTPServer
	pool       *worker.Pool
	cfg        *config.Config
	log        zerolog.Logger
}

// NewApplication creates a new application instance.
func NewApplication(httpServer *httpserver.HTTPServer, pool *worker.Pool, cfg *config.Config, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		pool:       pool,
		cfg:        cfg,
		log:        log,
	}
}

// Start runs the application until ctx is cancelled.
func (a *Application) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	a.pool.Start(ctx)

	eg.Go(func() error {
		return a.httpServer.Run(ctx)
	})
	eg.Go(func() error {
		<-ctx.Done()
		a.pool.Stop(a.cfg.ShutdownTimeout)
		return nil
	})
	return eg.Wait()
}

// Stores groups the chat repositories behind one storage driver.
type Stores struct {
	Users    chat.UserRepository
	Groups   chat.GroupRepository
	Messages chat.MessageRepository
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth validator")
	}

	stores, closeStores, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer closeStores()

	locker, closeLocker, err := newLocker(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize locker")
	}
	defer closeLocker()

	echoes, err := cache.NewEchoCache(cfg.EchoCacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize echo cache")
	}

	inboxClient := ProvideInboxClient(cfg, log)
	ticketingClient := ProvideTicketingClient(cfg, log)

	reconciler := reconcile.NewService(inboxClient, ticketingClient, stores.Users, locker, reconcile.Config{
		RequesterEmailDomain: cfg.RequesterEmailDomain,
		Greeting:             cfg.ConversationGreeting,
	}, log)

	registry := realtime.NewRegistry(log)

	relayRouter := relay.NewRouter(relay.Deps{
		Reconciler: reconciler,
		Inbox:      inboxClient,
		Users:      stores.Users,
		Groups:     stores.Groups,
		Messages:   stores.Messages,
		Fanout:     registry,
		Echoes:     echoes,
	}, log)

	provisioningService := provisioning.NewService(reconciler, inboxClient, stores.Users, stores.Groups, cfg.ConversationGreeting, log)

	pool := ProvideWorkerPool(cfg, log)
	socketServer := socketserver.New(cfg, registry, stores.Groups, relayRouter, pool, authValidator, log)
	httpServer := httpserver.New(cfg, log, relayRouter, provisioningService, socketServer, authValidator)

	app := NewApplication(httpServer, pool, cfg, log)

	log.Info().
		Str("service", cfg.ServiceName).
		Int("port", cfg.HTTPPort).
		Str("environment", cfg.Environment).
		Str("storage", cfg.StorageDriver).
		Bool("distributed_locks", cfg.RedisURL != "").
		Msg("starting application")

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// openStores connects the configured storage driver. Postgres is migrated on start.
func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Stores, func(), error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		repo := chatrepo.NewInMemoryRepository()
		return &Stores{Users: repo.Users(), Groups: repo.Groups(), Messages: repo.Messages()}, func() {}, nil
	}

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseWriteDSN,
		ReadDSN:         cfg.GetDatabaseReadDSN(),
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db, log); err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	repo := chatrepo.NewPostgresRepository(db)
	return &Stores{Users: repo.Users(), Groups: repo.Groups(), Messages: repo.Messages()}, closeFn, nil
}

// newLocker returns a redsync locker when REDIS_URL is set, otherwise an in-process one.
func newLocker(ctx context.Context, cfg *config.Config, log zerolog.Logger) (reconcile.Locker, func(), error) {
	if cfg.RedisURL == "" {
		return lock.NewLocalLocker(), func() {}, nil
	}
	locker, err := lock.NewRedisLocker(ctx, cfg.RedisURL, cfg.ConversationLockTTL, log)
	if err != nil {
		return nil, nil, err
	}
	return locker, func() { _ = locker.Close() }, nil
}

// ProvideInboxClient builds the support-inbox client from config.
func ProvideInboxClient(cfg *config.Config, log zerolog.Logger) *supportinbox.Client {
	return supportinbox.NewClient(supportinbox.Config{
		BaseURL:     cfg.InboxAPIURL,
		AccessToken: cfg.InboxAccessToken,
		AdminID:     cfg.InboxAdminID,
		APIVersion:  cfg.InboxAPIVersion,
		Timeout:     cfg.ProviderTimeout,
	}, log)
}

// ProvideTicketingClient builds the ticketing client from config.
func ProvideTicketingClient(cfg *config.Config, log zerolog.Logger) *ticketing.Client {
	return ticketing.NewClient(ticketing.Config{
		BaseURL:  cfg.TicketingAPIURL,
		Email:    cfg.TicketingEmail,
		APIToken: cfg.TicketingAPIToken,
		Timeout:  cfg.ProviderTimeout,
		MaxPages: cfg.TicketingFallbackMaxPage,
	}, log)
}

// ProvideWorkerPool builds the pool that runs socket-originated relays.
func ProvideWorkerPool(cfg *config.Config, log zerolog.Logger) *worker.Pool {
	return worker.NewPool(worker.Config{
		WorkerCount: cfg.RelayWorkerCount,
		QueueSize:   cfg.RelayQueueSize,
		TaskTimeout: cfg.RelayTaskTimeout,
	}, log)
}

func loadEnvFiles() {
	paths := []string{".env", "../.env", "../../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
