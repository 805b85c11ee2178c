// Package postgres provides the GORM implementation of the Unit of Work.
//
// A unit of work owns one database transaction. Repositories obtained from it
// while the transaction is open run inside it, and every order written through
// the order repository is tracked. Commit turns the pending domain events of the
// tracked orders into outbox rows in the same transaction before committing, so an
// order change and its event are stored together or not at all.
//
// Usage:
//
//	uow := factory.Create()
//	if err := uow.Begin(ctx); err != nil {
//	    return err
//	}
//	defer func() {
//	    _ = uow.Rollback(ctx)
//	}()
//
//	if err := uow.OrderRepository().Update(ctx, o); err != nil {
//	    return err
//	}
//
//	return uow.Commit(ctx)
//
// Each UnitOfWork instance belongs to one goroutine; concurrent operations use
// separate instances from the factory.
package postgres

import (
	"context"

	"orders/internal/adapters/out/postgres/orderrepo"
	"orders/internal/adapters/out/postgres/outboxrepo"
	"orders/internal/adapters/out/postgres/pgerr"
	"orders/internal/core/domain/model/order"
	"orders/internal/core/domain/model/outbox"
	"orders/internal/core/ports"

	"gorm.io/gorm"
)

// GormUnitOfWorkFactory creates UnitOfWork instances sharing one connection pool.
type GormUnitOfWorkFactory struct {
	db *gorm.DB
}

func NewGormUnitOfWorkFactory(db *gorm.DB) *GormUnitOfWorkFactory {
	return &GormUnitOfWorkFactory{db: db}
}

// Create returns a fresh unit of work with no open transaction.
func (f *GormUnitOfWorkFactory) Create() ports.UnitOfWork {
	return &GormUnitOfWork{db: f.db}
}

// GormUnitOfWork coordinates one transaction and the orders written in it.
type GormUnitOfWork struct {
	db      *gorm.DB
	tx      *gorm.DB
	tracked []*order.Order
}

// Begin opens the transaction. Calling Begin on an open unit of work is a no-op.
func (uow *GormUnitOfWork) Begin(ctx context.Context) error {
	if uow.tx != nil {
		return nil
	}

	tx := uow.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return pgerr.Translate("begin transaction", tx.Error)
	}

	uow.tx = tx
	uow.tracked = nil
	return nil
}

// Commit stages the pending events of every tracked order into the outbox, then
// commits. On success the tracked orders are marked persisted and their events
// cleared. If staging fails the transaction stays open for the caller's Rollback.
func (uow *GormUnitOfWork) Commit(ctx context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	if err := uow.stageEvents(ctx); err != nil {
		return err
	}

	err := uow.tx.Commit().Error
	uow.tx = nil
	if err != nil {
		uow.tracked = nil
		return pgerr.Translate("commit transaction", err)
	}

	for _, aggregate := range uow.tracked {
		aggregate.MarkPersisted()
		aggregate.ClearDomainEvents()
	}
	uow.tracked = nil
	return nil
}

// Rollback discards the transaction and forgets tracked orders.
func (uow *GormUnitOfWork) Rollback(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Rollback().Error
	uow.tx = nil
	uow.tracked = nil
	return err
}

// OrderRepository returns a repository bound to the open transaction, or to the
// pool when none is open.
func (uow *GormUnitOfWork) OrderRepository() ports.OrderRepository {
	return orderrepo.NewGormOrderRepository(uow.conn(), uow)
}

// OutboxRepository returns a repository bound to the open transaction, or to the
// pool when none is open.
func (uow *GormUnitOfWork) OutboxRepository() ports.OutboxRepository {
	return outboxrepo.NewGormOutboxRepository(uow.conn())
}

// TrackAggregate registers an order written in this unit of work. Tracking the
// same aggregate twice keeps one entry.
func (uow *GormUnitOfWork) TrackAggregate(aggregate *order.Order) {
	for _, tracked := range uow.tracked {
		if tracked == aggregate {
			return
		}
	}
	uow.tracked = append(uow.tracked, aggregate)
}

func (uow *GormUnitOfWork) stageEvents(ctx context.Context) error {
	var messages []*outbox.Message
	for _, aggregate := range uow.tracked {
		staged, err := outbox.MessagesFor(aggregate.DomainEvents())
		if err != nil {
			return err
		}
		messages = append(messages, staged...)
	}
	return outboxrepo.NewGormOutboxRepository(uow.tx).Add(ctx, messages...)
}

func (uow *GormUnitOfWork) conn() *gorm.DB {
	if uow.tx != nil {
		return uow.tx
	}
	return uow.db
}
