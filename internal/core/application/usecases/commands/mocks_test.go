package commands_test

import (
	"context"
	"time"

	"orders/internal/adapters/out/memory"
	"orders/internal/core/application/usecases/commands"
	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/domain/model/order"
	"orders/internal/core/domain/model/outbox"
	"orders/internal/core/ports"
	"orders/internal/pkg/errs"

	"github.com/stretchr/testify/mock"
)

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Add(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if o, ok := args.Get(0).(*order.Order); ok {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) Find(ctx context.Context, filter ports.OrderFilter) ([]*order.Order, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*order.Order), args.Error(1)
}

type MockOrderUoW struct{ mock.Mock }

func (m *MockOrderUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

type MockOrderUoWFactory struct{ mock.Mock }

func (m *MockOrderUoWFactory) Create() commands.OrderUoW {
	args := m.Called()
	return args.Get(0).(commands.OrderUoW)
}

type MockProductCatalog struct{ mock.Mock }

func (m *MockProductCatalog) GetProduct(ctx context.Context, productID string) (ports.Product, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(ports.Product), args.Error(1)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) Publish(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// staticCatalog answers from a fixed price list.
type staticCatalog map[string]ports.Product

func (c staticCatalog) GetProduct(_ context.Context, productID string) (ports.Product, error) {
	product, ok := c[productID]
	if !ok {
		return ports.Product{}, errs.NewUnknownProductError(productID)
	}
	return product, nil
}

func testCatalog() staticCatalog {
	return staticCatalog{
		"P1": {ID: "P1", Name: "Widget", Price: kernel.MustMoney("10.00")},
		"P2": {ID: "P2", Name: "Gadget", Price: kernel.MustMoney("2.50")},
	}
}

// memoryOrderUoWFactory and memoryOutboxUoWFactory adapt the in-memory store to the
// narrow factories the handlers take, the same way the composition root does.
type memoryOrderUoWFactory struct{ factory *memory.UnitOfWorkFactory }

func (f memoryOrderUoWFactory) Create() commands.OrderUoW { return f.factory.Create() }

type memoryOutboxUoWFactory struct{ factory *memory.UnitOfWorkFactory }

func (f memoryOutboxUoWFactory) Create() commands.OutboxUoW { return f.factory.Create() }

type engine struct {
	store  *memory.Store
	create commands.CreateOrderCommandHandler
	update commands.UpdateOrderStatusCommandHandler
	cancel commands.CancelOrderCommandHandler
}

func newEngine() engine {
	store := memory.NewStore()
	factory := memoryOrderUoWFactory{factory: memory.NewUnitOfWorkFactory(store)}
	return engine{
		store:  store,
		create: commands.NewCreateOrderCommandHandler(factory, testCatalog()),
		update: commands.NewUpdateOrderStatusCommandHandler(factory),
		cancel: commands.NewCancelOrderCommandHandler(factory),
	}
}

func (e engine) outboxTypes() []order.EventType {
	messages, err := e.store.OutboxMessages()
	if err != nil {
		panic(err)
	}
	types := make([]order.EventType, 0, len(messages))
	for _, m := range messages {
		types = append(types, m.EventType())
	}
	return types
}

func versionPtr(v int64) *int64 { return &v }

var fixedNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
