package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	postgres_adapter "orders/internal/adapters/out/postgres"
	"orders/internal/core/application/usecases/commands"
	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/domain/model/order"
	"orders/internal/core/domain/model/outbox"
	"orders/internal/core/ports"
	"orders/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// UnitOfWorkIntegrationTestSuite runs the unit of work, the order and outbox
// repositories and the command handlers against a real PostgreSQL.
type UnitOfWorkIntegrationTestSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	db        *gorm.DB
	factory   ports.UnitOfWorkFactory
}

func (suite *UnitOfWorkIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2)),
	)
	suite.Require().NoError(err)
	suite.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(gorm_postgres.Open(dsn), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	suite.Require().NoError(postgres_adapter.Migrate(db))
	suite.factory = postgres_adapter.NewGormUnitOfWorkFactory(db)
}

func (suite *UnitOfWorkIntegrationTestSuite) SetupTest() {
	err := suite.db.Exec("TRUNCATE TABLE orders, order_items, outbox_messages RESTART IDENTITY").Error
	suite.Require().NoError(err)
}

func (suite *UnitOfWorkIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		err := suite.container.Terminate(context.Background())
		suite.Require().NoError(err)
	}
}

func (suite *UnitOfWorkIntegrationTestSuite) countOutbox() int64 {
	var count int64
	suite.Require().NoError(suite.db.Table("outbox_messages").Count(&count).Error)
	return count
}

func (suite *UnitOfWorkIntegrationTestSuite) TestCommitStagesEventsWithOrder() {
	ctx := context.Background()
	uow := suite.factory.Create()
	testOrder := createTestOrder()

	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.OrderRepository().Add(ctx, testOrder))
	suite.Require().NoError(uow.Commit(ctx))

	suite.Empty(testOrder.DomainEvents())
	suite.Equal(int64(1), suite.countOutbox())

	stored, err := suite.factory.Create().OrderRepository().Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Equal(order.Pending, stored.Status())
	suite.Equal("20.00", stored.TotalAmount().String())
	suite.Require().Len(stored.Items(), 1)
	suite.Equal("Widget", stored.Items()[0].ProductName())
}

func (suite *UnitOfWorkIntegrationTestSuite) TestRollbackDiscardsOrderAndEvents() {
	ctx := context.Background()
	uow := suite.factory.Create()
	testOrder := createTestOrder()

	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.OrderRepository().Add(ctx, testOrder))
	_, err := uow.OrderRepository().Get(ctx, testOrder.ID())
	suite.Require().NoError(err, "order is visible inside its transaction")
	suite.Require().NoError(uow.Rollback(ctx))

	_, err = suite.factory.Create().OrderRepository().Get(ctx, testOrder.ID())
	suite.ErrorIs(err, errs.ErrObjectNotFound)
	suite.Zero(suite.countOutbox())
}

func (suite *UnitOfWorkIntegrationTestSuite) TestTransactionErrors() {
	ctx := context.Background()
	uow := suite.factory.Create()

	suite.Error(uow.Commit(ctx))
	suite.Error(uow.Rollback(ctx))

	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.Begin(ctx), "Begin on an open unit of work is a no-op")
	suite.Require().NoError(uow.Commit(ctx))
}

func (suite *UnitOfWorkIntegrationTestSuite) TestIsolationBetweenUnits() {
	ctx := context.Background()
	uow1 := suite.factory.Create()
	uow2 := suite.factory.Create()
	order1 := createTestOrder()
	order2 := createTestOrder()

	suite.Require().NoError(uow1.Begin(ctx))
	suite.Require().NoError(uow2.Begin(ctx))
	suite.Require().NoError(uow1.OrderRepository().Add(ctx, order1))
	suite.Require().NoError(uow2.OrderRepository().Add(ctx, order2))

	_, err := uow1.OrderRepository().Get(ctx, order2.ID())
	suite.Error(err, "uncommitted orders of another unit are invisible")

	suite.Require().NoError(uow1.Commit(ctx))
	suite.Require().NoError(uow2.Rollback(ctx))

	reader := suite.factory.Create().OrderRepository()
	_, err = reader.Get(ctx, order1.ID())
	suite.NoError(err)
	_, err = reader.Get(ctx, order2.ID())
	suite.ErrorIs(err, errs.ErrObjectNotFound)
	suite.Equal(int64(1), suite.countOutbox())
}

func (suite *UnitOfWorkIntegrationTestSuite) TestStaleUpdateIsRejected() {
	ctx := context.Background()
	testOrder := createTestOrder()
	suite.commitAdd(testOrder)

	first, err := suite.factory.Create().OrderRepository().Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	second, err := suite.factory.Create().OrderRepository().Get(ctx, testOrder.ID())
	suite.Require().NoError(err)

	suite.Require().NoError(first.ChangeStatus(order.Processing, "", time.Now()))
	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.OrderRepository().Update(ctx, first))
	suite.Require().NoError(uow.Commit(ctx))

	suite.Require().NoError(second.Cancel("changed mind", time.Now()))
	uow = suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	err = uow.OrderRepository().Update(ctx, second)
	suite.Require().NoError(uow.Rollback(ctx))

	var conflict *errs.VersionConflictError
	suite.Require().ErrorAs(err, &conflict)
	suite.Equal(int64(0), conflict.Expected)
	suite.Equal(int64(1), conflict.Actual)
	suite.Equal(int64(2), suite.countOutbox())
}

func (suite *UnitOfWorkIntegrationTestSuite) TestUpdateMissingOrder() {
	ctx := context.Background()
	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	err := uow.OrderRepository().Update(ctx, createTestOrder())
	suite.ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *UnitOfWorkIntegrationTestSuite) TestLifecycleThroughHandlers() {
	ctx := context.Background()
	factory := orderUoWFactory{factory: suite.factory}
	create := commands.NewCreateOrderCommandHandler(factory, catalog{})
	update := commands.NewUpdateOrderStatusCommandHandler(factory)

	cmd, err := commands.NewCreateOrderCommand(kernel.NewUUID(), "client-1", "1 Main St",
		[]commands.OrderLine{{ProductID: "P1", Quantity: 2}})
	suite.Require().NoError(err)
	created, err := create.Handle(ctx, cmd)
	suite.Require().NoError(err)
	suite.Equal("20.00", created.TotalAmount().String())

	toShipped, err := commands.NewUpdateOrderStatusCommand(created.ID(), "Shipped", "TRACK-1", nil)
	suite.Require().NoError(err)
	_, err = update.Handle(ctx, toShipped)
	suite.Require().ErrorIs(err, errs.ErrInvalidTransition)

	toProcessing, err := commands.NewUpdateOrderStatusCommand(created.ID(), "Processing", "", nil)
	suite.Require().NoError(err)
	processing, err := update.Handle(ctx, toProcessing)
	suite.Require().NoError(err)
	suite.Equal(int64(1), processing.Version())

	expected := int64(1)
	toShipped, err = commands.NewUpdateOrderStatusCommand(created.ID(), "Shipped", "TRACK-1", &expected)
	suite.Require().NoError(err)
	shipped, err := update.Handle(ctx, toShipped)
	suite.Require().NoError(err)
	suite.Equal(int64(2), shipped.Version())
	suite.Equal("TRACK-1", shipped.TrackingNumber())
	suite.Equal(int64(3), suite.countOutbox())
}

func (suite *UnitOfWorkIntegrationTestSuite) TestConcurrentUpdatesOneWinner() {
	ctx := context.Background()
	testOrder := createTestOrder()
	suite.commitAdd(testOrder)
	update := commands.NewUpdateOrderStatusCommandHandler(orderUoWFactory{factory: suite.factory})

	const writers = 5
	var wg sync.WaitGroup
	results := make([]error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cmd, err := commands.NewUpdateOrderStatusCommand(testOrder.ID(), "Processing", "", nil)
			if err != nil {
				results[i] = err
				return
			}
			_, results[i] = update.Handle(ctx, cmd)
		}()
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		suite.True(errors.Is(err, errs.ErrVersionConflict) || errors.Is(err, errs.ErrInvalidTransition), err.Error())
	}
	suite.Equal(1, winners)

	stored, err := suite.factory.Create().OrderRepository().Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Equal(int64(1), stored.Version())
	suite.Equal(int64(2), suite.countOutbox())
}

func (suite *UnitOfWorkIntegrationTestSuite) TestClaimDueSkipsLockedAndBlockedMessages() {
	ctx := context.Background()
	first := createTestOrder()
	second := createTestOrder()
	suite.commitAdd(first)
	suite.commitAdd(second)

	loaded, err := suite.factory.Create().OrderRepository().Get(ctx, first.ID())
	suite.Require().NoError(err)
	suite.Require().NoError(loaded.ChangeStatus(order.Processing, "", time.Now()))
	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.OrderRepository().Update(ctx, loaded))
	suite.Require().NoError(uow.Commit(ctx))

	now := time.Now()
	relay1 := suite.factory.Create()
	relay2 := suite.factory.Create()
	suite.Require().NoError(relay1.Begin(ctx))
	suite.Require().NoError(relay2.Begin(ctx))

	claimed1, err := relay1.OutboxRepository().ClaimDue(ctx, now, 1, time.Minute)
	suite.Require().NoError(err)
	suite.Require().Len(claimed1, 1)
	suite.True(claimed1[0].OrderID().IsEqual(first.ID()))
	suite.Equal(order.EventCreated, claimed1[0].EventType())

	claimed2, err := relay2.OutboxRepository().ClaimDue(ctx, now, 10, time.Minute)
	suite.Require().NoError(err)
	suite.Require().Len(claimed2, 1, "locked rows are skipped and later messages of the same order wait")
	suite.True(claimed2[0].OrderID().IsEqual(second.ID()))

	suite.Require().NoError(relay1.Commit(ctx))
	suite.Require().NoError(relay2.Commit(ctx))

	again := suite.factory.Create().OutboxRepository()
	leased, err := again.ClaimDue(ctx, now.Add(time.Second), 10, time.Minute)
	suite.Require().NoError(err)
	suite.Empty(leased)

	suite.Require().NoError(claimed1[0].MarkDelivered(now))
	suite.Require().NoError(again.Update(ctx, claimed1[0]))
	next, err := again.ClaimDue(ctx, now.Add(time.Second), 10, time.Minute)
	suite.Require().NoError(err)
	suite.Require().Len(next, 1)
	suite.Equal(order.EventStatusUpdated, next[0].EventType())

	suite.ErrorIs(again.Update(ctx, claimed1[0]), outbox.ErrMessageAlreadyDelivered)
}

func (suite *UnitOfWorkIntegrationTestSuite) TestFailedMessageWaitsForRetry() {
	ctx := context.Background()
	suite.commitAdd(createTestOrder())
	repo := suite.factory.Create().OutboxRepository()
	now := time.Now().UTC().Truncate(time.Microsecond)

	claimed, err := repo.ClaimDue(ctx, now, 10, time.Minute)
	suite.Require().NoError(err)
	suite.Require().Len(claimed, 1)

	policy := outbox.RetryPolicy{BaseDelay: time.Second, MaxDelay: time.Minute, MaxAttempts: 5}
	exhausted, err := claimed[0].MarkFailed(errors.New("broker down"), now, policy)
	suite.Require().NoError(err)
	suite.False(exhausted)
	suite.Require().NoError(repo.Update(ctx, claimed[0]))

	early, err := repo.ClaimDue(ctx, now.Add(500*time.Millisecond), 10, time.Minute)
	suite.Require().NoError(err)
	suite.Empty(early)

	due, err := repo.ClaimDue(ctx, now.Add(time.Second), 10, time.Minute)
	suite.Require().NoError(err)
	suite.Require().Len(due, 1)
	suite.Equal(outbox.Failed, due[0].DeliveryState())
	suite.Equal(1, due[0].Attempts())
	suite.Equal("broker down", due[0].LastError())
}

func (suite *UnitOfWorkIntegrationTestSuite) TestStaleWriteBackIsFencedByLease() {
	ctx := context.Background()
	suite.commitAdd(createTestOrder())
	repo := suite.factory.Create().OutboxRepository()
	now := time.Now().UTC().Truncate(time.Microsecond)
	policy := outbox.RetryPolicy{BaseDelay: time.Second, MaxDelay: time.Minute, MaxAttempts: 5}

	first, err := repo.ClaimDue(ctx, now, 10, 30*time.Second)
	suite.Require().NoError(err)
	suite.Require().Len(first, 1)

	reclaimedAt := now.Add(31 * time.Second)
	second, err := repo.ClaimDue(ctx, reclaimedAt, 10, 30*time.Second)
	suite.Require().NoError(err)
	suite.Require().Len(second, 1)

	_, err = first[0].MarkFailed(errors.New("broker down"), reclaimedAt, policy)
	suite.Require().NoError(err)
	suite.ErrorIs(repo.Update(ctx, first[0]), outbox.ErrLeaseLost)

	during, err := repo.ClaimDue(ctx, reclaimedAt.Add(time.Second), 10, 30*time.Second)
	suite.Require().NoError(err)
	suite.Empty(during)

	suite.Require().NoError(second[0].MarkDelivered(reclaimedAt))
	suite.Require().NoError(repo.Update(ctx, second[0]))
	suite.ErrorIs(repo.Update(ctx, first[0]), outbox.ErrMessageAlreadyDelivered)
}

func (suite *UnitOfWorkIntegrationTestSuite) commitAdd(o *order.Order) {
	ctx := context.Background()
	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.OrderRepository().Add(ctx, o))
	suite.Require().NoError(uow.Commit(ctx))
}

type orderUoWFactory struct {
	factory ports.UnitOfWorkFactory
}

func (f orderUoWFactory) Create() commands.OrderUoW { return f.factory.Create() }

type catalog struct{}

func (catalog) GetProduct(_ context.Context, productID string) (ports.Product, error) {
	if productID != "P1" {
		return ports.Product{}, errs.NewUnknownProductError(productID)
	}
	return ports.Product{ID: "P1", Name: "Widget", Price: kernel.MustMoney("10.00")}, nil
}

func createTestOrder() *order.Order {
	item, _ := order.NewItem(kernel.NewUUID(), "P1", "Widget", 2, kernel.MustMoney("10.00"))
	testOrder, _ := order.NewOrder(kernel.NewUUID(), "client-1", "1 Main St", []order.Item{item}, time.Now())
	return testOrder
}

func TestUnitOfWorkIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(UnitOfWorkIntegrationTestSuite))
}
