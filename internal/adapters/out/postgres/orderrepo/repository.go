package orderrepo

import (
	"context"
	"errors"

	"orders/internal/adapters/out/postgres/pgerr"
	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/domain/model/order"
	"orders/internal/core/ports"
	"orders/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormOrderRepository implements ports.OrderRepository using GORM.
type GormOrderRepository struct {
	db      *gorm.DB
	tracker aggregateTracker
}

// aggregateTracker receives every aggregate written through the repository so the
// unit of work can stage its events on commit.
type aggregateTracker interface {
	TrackAggregate(aggregate *order.Order)
}

// NewGormOrderRepository creates a repository over db. tracker may be nil for
// read-only use.
func NewGormOrderRepository(db *gorm.DB, tracker aggregateTracker) *GormOrderRepository {
	return &GormOrderRepository{
		db:      db,
		tracker: tracker,
	}
}

// Add inserts a new order with its items.
func (r *GormOrderRepository) Add(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return pgerr.Translate("insert order", err)
	}

	r.track(aggregate)
	return nil
}

// Update writes the mutable columns of an order, guarded on the version storage
// held when the aggregate was loaded.
func (r *GormOrderRepository) Update(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	result := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ? AND version = ?", dto.ID, aggregate.PersistedVersion()).
		Updates(map[string]any{
			"status":              dto.Status,
			"tracking_number":     dto.TrackingNumber,
			"cancellation_reason": dto.CancellationReason,
			"version":             dto.Version,
			"updated_at":          dto.UpdatedAt,
		})
	if result.Error != nil {
		return pgerr.Translate("update order", result.Error)
	}

	if result.RowsAffected == 0 {
		return r.explainMissedUpdate(ctx, aggregate)
	}

	r.track(aggregate)
	return nil
}

// explainMissedUpdate tells a missing order apart from a stale version.
func (r *GormOrderRepository) explainMissedUpdate(ctx context.Context, aggregate *order.Order) error {
	var current OrderDTO
	err := r.db.WithContext(ctx).
		Select("version").
		Take(&current, "id = ?", aggregate.ID().Bytes()).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NewObjectNotFoundError("order", aggregate.ID().String())
	}
	if err != nil {
		return pgerr.Translate("check order version", err)
	}
	return errs.NewVersionConflictError(aggregate.ID().String(), aggregate.PersistedVersion(), current.Version)
}

// Get retrieves an order with its items.
func (r *GormOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto OrderDTO
	if err := r.withItems(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("order", id.String())
		}
		return nil, pgerr.Translate("load order", err)
	}

	return toDomain(dto)
}

// Find returns the orders matching filter, newest first.
func (r *GormOrderRepository) Find(ctx context.Context, filter ports.OrderFilter) ([]*order.Order, error) {
	query := r.withItems(ctx)
	if filter.OrderID != nil {
		query = query.Where("id = ?", filter.OrderID.Bytes())
	}
	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var dtos []OrderDTO
	if err := query.Order("created_at DESC, id DESC").Find(&dtos).Error; err != nil {
		return nil, pgerr.Translate("find orders", err)
	}

	orders := make([]*order.Order, 0, len(dtos))
	for _, dto := range dtos {
		o, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	return orders, nil
}

func (r *GormOrderRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	})
}

func (r *GormOrderRepository) track(aggregate *order.Order) {
	if r.tracker != nil {
		r.tracker.TrackAggregate(aggregate)
	}
}
