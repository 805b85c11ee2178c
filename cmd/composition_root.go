package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	httpin "orders/internal/adapters/in/http"
	kafkain "orders/internal/adapters/in/kafka"
	"orders/internal/adapters/out/catalog"
	kafkaout "orders/internal/adapters/out/kafka"
	"orders/internal/adapters/out/memory"
	"orders/internal/adapters/out/notify"
	"orders/internal/adapters/out/postgres"
	"orders/internal/adapters/out/postgres/inbox"
	"orders/internal/adapters/out/postgres/orderrepo"
	"orders/internal/core/application/notifications"
	"orders/internal/core/application/usecases/commands"
	"orders/internal/core/application/usecases/queries"
	"orders/internal/core/ports"
	"orders/internal/jobs"
	"orders/internal/pkg/kafka"
	"orders/internal/pkg/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type unitOfWorkFactory interface {
	Create() ports.UnitOfWork
}

// CompositionRoot owns every long-lived dependency and builds handlers, jobs and
// the HTTP router from them.
type CompositionRoot struct {
	config   Config
	logger   *slog.Logger
	registry *prometheus.Registry

	uowFactory unitOfWorkFactory
	reader     queries.OrderReader
	inbox      ports.Inbox
	catalog    ports.ProductCatalog
	kafka      *kafka.Client

	closers []func() error
}

// NewCompositionRoot connects the configured store, loads the catalog and
// prepares the broker client. Close releases whatever was opened.
func NewCompositionRoot(ctx context.Context, config Config, logger *slog.Logger) (*CompositionRoot, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &CompositionRoot{
		config:   config,
		logger:   logger,
		registry: registry,
		kafka:    kafka.NewClient(config.KafkaBrokers),
	}

	productCatalog, err := catalog.LoadFile(config.CatalogFile)
	if err != nil {
		return nil, err
	}
	c.catalog = productCatalog
	logger.Info("Product catalog loaded", "file", config.CatalogFile, "products", productCatalog.Len())

	switch config.Store {
	case StoreMemory:
		store := memory.NewStore()
		c.uowFactory = memory.NewUnitOfWorkFactory(store)
		c.reader = store
		c.inbox = memory.NewInbox()
	default:
		if err = c.connectPostgres(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
	}

	return c, nil
}

func (c *CompositionRoot) connectPostgres(ctx context.Context) error {
	gormDB, err := gorm.Open(gormpostgres.Open(c.config.DSN()), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	c.closers = append(c.closers, sqlDB.Close)

	if err = postgres.Migrate(gormDB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	pool, err := pgxpool.New(ctx, c.config.DSN())
	if err != nil {
		return fmt.Errorf("connect inbox pool: %w", err)
	}
	c.closers = append(c.closers, func() error {
		pool.Close()
		return nil
	})

	pgInbox := inbox.NewPgxInbox(pool)
	if err = pgInbox.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate inbox: %w", err)
	}

	c.uowFactory = postgres.NewGormUnitOfWorkFactory(gormDB)
	c.reader = orderrepo.NewGormOrderRepository(gormDB, nil)
	c.inbox = pgInbox
	return nil
}

// Close releases connections in reverse order of acquisition.
func (c *CompositionRoot) Close() error {
	var problems []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		problems = append(problems, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(problems...)
}

func (c *CompositionRoot) orderUoWFactory() commands.OrderUoWFactory {
	return FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) outboxUoWFactory() commands.OutboxUoWFactory {
	return FuncOutboxUoWFactory(func() commands.OutboxUoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) CreateCreateOrderCommandHandler() commands.CreateOrderCommandHandler {
	return commands.NewCreateOrderCommandHandler(c.orderUoWFactory(), c.catalog)
}

func (c *CompositionRoot) CreateUpdateOrderStatusCommandHandler() commands.UpdateOrderStatusCommandHandler {
	return commands.NewUpdateOrderStatusCommandHandler(c.orderUoWFactory())
}

func (c *CompositionRoot) CreateCancelOrderCommandHandler() commands.CancelOrderCommandHandler {
	return commands.NewCancelOrderCommandHandler(c.orderUoWFactory())
}

func (c *CompositionRoot) CreateRelayOutboxCommandHandler(publisher ports.EventPublisher) (commands.RelayOutboxCommandHandler, error) {
	return commands.NewRelayOutboxCommandHandler(c.outboxUoWFactory(), publisher, c.config.RelayOptions())
}

func (c *CompositionRoot) CreateGetOrderByIDQueryHandler() queries.GetOrderByIDQueryHandler {
	return queries.NewGetOrderByIDQueryHandler(c.reader)
}

func (c *CompositionRoot) CreateGetOrdersQueryHandler() queries.GetOrdersQueryHandler {
	return queries.NewGetOrdersQueryHandler(c.reader)
}

// CreateRouter builds the HTTP surface.
func (c *CompositionRoot) CreateRouter() (*echo.Echo, error) {
	server := httpin.NewServer(
		c.CreateCreateOrderCommandHandler(),
		c.CreateUpdateOrderStatusCommandHandler(),
		c.CreateCancelOrderCommandHandler(),
		c.CreateGetOrderByIDQueryHandler(),
		c.CreateGetOrdersQueryHandler(),
		c.logger,
	)
	return httpin.NewRouter(server, httpin.RouterOptions{
		StoreTimeout: c.config.StoreTimeout,
		Registry:     c.registry,
		Logger:       c.logger,
	})
}

// CreateJobManager builds the background jobs. Without brokers there is nothing
// to relay to or consume from, and the manager is empty.
func (c *CompositionRoot) CreateJobManager() (*jobs.JobManager, error) {
	if !c.kafka.Enabled() {
		c.logger.Warn("KAFKA_BROKERS is empty: outbox relay and notification consumer are disabled")
		return jobs.NewJobManager(), nil
	}

	publisher := kafkaout.NewPublisher(c.kafka.NewWriter(), kafkaout.DefaultBreakerSettings())
	c.closers = append(c.closers, publisher.Close)

	relayHandler, err := c.CreateRelayOutboxCommandHandler(publisher)
	if err != nil {
		return nil, err
	}
	relayJob := jobs.NewOutboxRelayJob(relayHandler, c.config.OutboxSchedule, metrics.NewRelayMetrics(c.registry), c.logger)

	coordinator := notifications.NewCoordinator(notify.NewLogNotifier(c.logger), c.inbox, c.reader, c.logger).
		WithStockFailedTopic(c.config.KafkaStockFailedTopic)

	topics := coordinator.Topics()
	readers := make([]kafkain.Reader, 0, len(topics))
	for _, topic := range topics {
		readers = append(readers, c.kafka.NewReader(topic, c.config.KafkaConsumerGroup))
	}
	consumer := kafkain.NewConsumer(readers, coordinator, kafkain.DefaultRetryOptions(), c.logger)

	return jobs.NewJobManager(relayJob, jobs.NewNotificationConsumerJob(consumer, c.logger)), nil
}

type FuncOrderUoWFactory func() commands.OrderUoW

func (f FuncOrderUoWFactory) Create() commands.OrderUoW {
	return f()
}

type FuncOutboxUoWFactory func() commands.OutboxUoW

func (f FuncOutboxUoWFactory) Create() commands.OutboxUoW {
	return f()
}
