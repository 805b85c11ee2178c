package memory

import (
	"context"
	"errors"
	"time"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/domain/model/order"
	"orders/internal/core/domain/model/outbox"
	"orders/internal/core/ports"
	"orders/internal/pkg/errs"
)

var ErrNoActiveTransaction = errors.New("no active transaction")

// UnitOfWorkFactory hands out units of work sharing one Store.
type UnitOfWorkFactory struct {
	store *Store
}

func NewUnitOfWorkFactory(store *Store) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store}
}

func (f *UnitOfWorkFactory) Create() ports.UnitOfWork {
	return &UnitOfWork{store: f.store}
}

// UnitOfWork buffers order writes and staged messages until Commit, which applies
// them to the Store in one step. Outbox claims and outcome updates are applied to
// the Store immediately; the relay runs each of them in a transaction of its own.
type UnitOfWork struct {
	store    *Store
	active   bool
	adds     []*order.Order
	updates  []*order.Order
	messages []*outbox.Message
}

func (uow *UnitOfWork) Begin(_ context.Context) error {
	if uow.active {
		return nil
	}
	uow.reset()
	uow.active = true
	return nil
}

// Commit stages the pending events of every tracked order, then applies all writes
// or none of them.
func (uow *UnitOfWork) Commit(_ context.Context) error {
	if !uow.active {
		return ErrNoActiveTransaction
	}
	defer uow.reset()

	tracked := append(append([]*order.Order(nil), uow.adds...), uow.updates...)
	messages := append([]*outbox.Message(nil), uow.messages...)
	for _, o := range tracked {
		staged, err := outbox.MessagesFor(o.DomainEvents())
		if err != nil {
			return err
		}
		messages = append(messages, staged...)
	}

	if err := uow.store.commit(uow.adds, uow.updates, messages); err != nil {
		return err
	}

	for _, o := range tracked {
		o.MarkPersisted()
		o.ClearDomainEvents()
	}
	return nil
}

func (uow *UnitOfWork) Rollback(_ context.Context) error {
	if !uow.active {
		return ErrNoActiveTransaction
	}
	uow.reset()
	return nil
}

func (uow *UnitOfWork) OrderRepository() ports.OrderRepository {
	return &orderRepository{uow: uow}
}

func (uow *UnitOfWork) OutboxRepository() ports.OutboxRepository {
	return &outboxRepository{uow: uow}
}

func (uow *UnitOfWork) reset() {
	uow.active = false
	uow.adds = nil
	uow.updates = nil
	uow.messages = nil
}

type orderRepository struct {
	uow *UnitOfWork
}

func (r *orderRepository) Add(_ context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	if !r.uow.active {
		return ErrNoActiveTransaction
	}
	r.uow.adds = append(r.uow.adds, aggregate)
	return nil
}

func (r *orderRepository) Update(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	if !r.uow.active {
		return ErrNoActiveTransaction
	}

	// Fail fast on a stale aggregate; Commit checks again under the store lock.
	stored, err := r.uow.store.Get(ctx, aggregate.ID())
	if err != nil {
		return err
	}
	if stored.Version() != aggregate.PersistedVersion() {
		return errs.NewVersionConflictError(aggregate.ID().String(), aggregate.PersistedVersion(), stored.Version())
	}

	r.uow.updates = append(r.uow.updates, aggregate)
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	for _, o := range r.uow.adds {
		if o.ID().IsEqual(id) {
			return o, nil
		}
	}
	return r.uow.store.Get(ctx, id)
}

func (r *orderRepository) Find(ctx context.Context, filter ports.OrderFilter) ([]*order.Order, error) {
	return r.uow.store.Find(ctx, filter)
}

type outboxRepository struct {
	uow *UnitOfWork
}

func (r *outboxRepository) Add(_ context.Context, messages ...*outbox.Message) error {
	if !r.uow.active {
		return ErrNoActiveTransaction
	}
	for _, m := range messages {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	r.uow.messages = append(r.uow.messages, messages...)
	return nil
}

func (r *outboxRepository) ClaimDue(
	_ context.Context,
	now time.Time,
	limit int,
	lease time.Duration,
) ([]*outbox.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	return r.uow.store.claimDue(now, limit, lease)
}

func (r *outboxRepository) Update(_ context.Context, message *outbox.Message) error {
	if err := message.Validate(); err != nil {
		return err
	}
	return r.uow.store.updateMessage(message)
}
