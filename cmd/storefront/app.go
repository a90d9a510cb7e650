package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/niloyhakimai/medistore-client/internal/apiclient"
	"github.com/niloyhakimai/medistore-client/internal/bus"
	"github.com/niloyhakimai/medistore-client/internal/cart"
	"github.com/niloyhakimai/medistore-client/internal/catalog"
	"github.com/niloyhakimai/medistore-client/internal/checkout"
	"github.com/niloyhakimai/medistore-client/internal/notify"
	"github.com/niloyhakimai/medistore-client/internal/orders"
	"github.com/niloyhakimai/medistore-client/internal/session"
	"github.com/niloyhakimai/medistore-client/internal/store"
	"github.com/niloyhakimai/medistore-client/internal/view"
	"github.com/niloyhakimai/medistore-client/pkg/config"
	"github.com/niloyhakimai/medistore-client/pkg/database"
	"github.com/niloyhakimai/medistore-client/pkg/kafka"
	"github.com/niloyhakimai/medistore-client/pkg/logger"
	"github.com/niloyhakimai/medistore-client/pkg/metrics"
	pkgredis "github.com/niloyhakimai/medistore-client/pkg/redis"
	"github.com/niloyhakimai/medistore-client/pkg/telemetry"
)

// app holds the wired storefront for one CLI invocation
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	notifier notify.Notifier

	store    store.Store
	bus      *bus.Bus
	sessions *session.Manager
	client   *apiclient.Client
	cart     *cart.Service
	catalog  *catalog.Service
	checkout *checkout.Service
	actions  *orders.Actions

	file    *store.FileStore
	redis   *pkgredis.Client
	checks  []healthCheck
	closers []func()
}

type healthCheck struct {
	name  string
	check func(context.Context) error
}

// checkResult is one line of the doctor report
type checkResult struct {
	Name string
	Err  error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		log:      logger.Get(),
		notifier: notify.NewConsole(os.Stdout),
		bus:      bus.New(),
	}

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		a.log.Warn(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	a.onClose(func() { _ = telemetry.Shutdown(context.Background()) })

	st, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if cfg.Storage.KeyPrefix != "" {
		st = store.WithPrefix(st, cfg.Storage.KeyPrefix)
	}
	a.store = st

	if err := a.attachBridge(ctx); err != nil {
		a.Close()
		return nil, err
	}

	reader := session.NewReader(a.store)
	a.client = apiclient.New(&apiclient.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout}, reader)
	a.sessions = session.NewManager(reader, a.bus, a.client, a.notifier)
	a.cart = cart.NewService(a.store, a.bus)
	a.catalog = catalog.NewService(a.client, a.cart, a.notifier)
	a.checkout = checkout.NewService(a.client, reader, a.cart, a.notifier, &checkout.Config{
		RedirectDelay:    cfg.Checkout.RedirectDelay,
		RevalidatePrices: cfg.Checkout.RevalidatePrices,
	})
	a.actions = orders.NewActions(a.client, a.notifier)

	return a, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases connections in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) redisClient(ctx context.Context) (*pkgredis.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	rc := a.cfg.Redis
	client, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          rc.Host,
		Port:          rc.Port,
		Password:      rc.Password,
		DB:            rc.DB,
		PoolSize:      rc.PoolSize,
		DialTimeout:   rc.DialTimeout,
		ReadTimeout:   rc.ReadTimeout,
		WriteTimeout:  rc.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.redis = client
	a.onClose(func() { _ = client.Close() })
	a.checks = append(a.checks, healthCheck{name: "redis " + rc.Addr(), check: client.HealthCheck})
	return client, nil
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	switch a.cfg.Storage.Backend {
	case config.StorageMemory:
		return store.NewMemoryStore(), nil
	case config.StorageRedis:
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return store.NewRedisStore(client), nil
	case config.StoragePostgres:
		dc := a.cfg.Database
		db, err := database.NewPostgres(ctx, &database.PostgresConfig{
			Host:            dc.Host,
			Port:            dc.Port,
			User:            dc.User,
			Password:        dc.Password,
			Database:        dc.DBName,
			SSLMode:         dc.SSLMode,
			MaxConns:        int32(dc.MaxConns),
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			ConnectTimeout:  5 * time.Second,
			MaxRetries:      3,
			RetryInterval:   time.Second,
			EnableTracing:   a.cfg.OTel.Enabled,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.onClose(db.Close)
		a.checks = append(a.checks, healthCheck{name: "postgres " + dc.Host, check: db.HealthCheck})
		return store.NewPostgresStore(ctx, db)
	default:
		fs, err := store.NewFileStore(a.cfg.Storage.FilePath)
		if err != nil {
			return nil, err
		}
		a.file = fs
		return fs, nil
	}
}

// attachBridge connects the bus to other processes sharing the profile
func (a *app) attachBridge(ctx context.Context) error {
	bridgeCtx, cancel := context.WithCancel(context.Background())
	a.onClose(cancel)

	switch a.cfg.Bus.Bridge {
	case config.BridgeRedis:
		client, err := a.redisClient(ctx)
		if err != nil {
			return err
		}
		a.bus.Attach(bridgeCtx, bus.NewRedisBridge(client, a.cfg.Bus.Channel))
	case config.BridgeNATS:
		conn, err := nats.Connect(a.cfg.NATS.URL, nats.Name(a.cfg.App.Name))
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		a.onClose(conn.Close)
		a.bus.Attach(bridgeCtx, bus.NewNATSBridge(conn, a.cfg.Bus.Channel))
	case config.BridgeFile:
		if a.file == nil {
			return fmt.Errorf("file bridge requires the file storage backend")
		}
		a.bus.Attach(bridgeCtx, bus.NewFileWatchBridge(a.file.Path()))
	}
	return nil
}

// newFeed builds the order feed configured for s
func (a *app) newFeed(s session.Session) orders.Feed {
	if a.cfg.Orders.Feed == config.FeedKafka {
		consumer, err := kafka.NewConsumer(context.Background(), &kafka.ConsumerConfig{
			Brokers:       a.cfg.Kafka.Brokers,
			GroupID:       a.cfg.Kafka.ConsumerGroup + "-" + s.User.ID,
			Topics:        []string{a.cfg.Kafka.OrderStatusTopic},
			ClientID:      a.cfg.Kafka.ClientID,
			MaxRetries:    3,
			RetryInterval: time.Second,
		})
		if err == nil {
			a.onClose(consumer.Close)
			return orders.NewKafkaFeed(a.client, consumer, s.User.ID, a.notifier)
		}
		a.log.Warn("Kafka unavailable, falling back to polling", "error", err)
	}
	poller := orders.NewPoller(a.client, a.notifier, &orders.PollerConfig{Interval: a.cfg.Orders.PollInterval})
	return orders.NewPollingFeed(poller)
}

// doctor checks the backend API and every connection the app opened
func (a *app) doctor(ctx context.Context) []checkResult {
	results := []checkResult{{Name: "api " + a.cfg.API.BaseURL}}
	if _, err := a.client.ListCategories(ctx); err != nil {
		results[0].Err = err
	}
	for _, hc := range a.checks {
		results = append(results, checkResult{Name: hc.name, Err: hc.check(ctx)})
	}
	return results
}

func (a *app) navbar() *view.Navbar {
	return view.NewNavbar(a.sessions, a.cart, a.bus, a.sessions)
}

// metricsServe exposes client metrics until ctx is done
func (a *app) metricsServe(ctx context.Context) error {
	a.log.Info("Serving metrics", "addr", a.cfg.Metrics.Addr)
	return metrics.Default().Serve(ctx, a.cfg.Metrics.Addr)
}
