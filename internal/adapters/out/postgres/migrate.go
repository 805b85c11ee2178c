package postgres

import (
	"orders/internal/adapters/out/postgres/orderrepo"
	"orders/internal/adapters/out/postgres/outboxrepo"

	"gorm.io/gorm"
)

// Migrate creates or updates the orders, order_items and outbox_messages tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&orderrepo.OrderDTO{},
		&orderrepo.ItemDTO{},
		&outboxrepo.OutboxMessageDTO{},
	)
}
