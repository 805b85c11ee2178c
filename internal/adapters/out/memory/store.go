// Package memory keeps orders and outbox messages in process memory. It backs
// STORE=memory runs and the engine and relay tests, and honours the same
// contracts as the postgres adapters: version guarded updates, atomic
// order+outbox commits and per-order FIFO claiming.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/domain/model/order"
	"orders/internal/core/domain/model/outbox"
	"orders/internal/core/ports"
	"orders/internal/pkg/errs"
)

var ErrDuplicateOrder = errors.New("order already exists")

// Store is the shared state behind every UnitOfWork created from the same factory.
type Store struct {
	mu           sync.Mutex
	orders       map[string]order.State
	messages     []outbox.State
	nextSequence int64
}

func NewStore() *Store {
	return &Store{
		orders:       make(map[string]order.State),
		nextSequence: 1,
	}
}

// Get returns the committed order.
func (s *Store) Get(_ context.Context, id kernel.UUID) (*order.Order, error) {
	s.mu.Lock()
	state, ok := s.orders[id.String()]
	s.mu.Unlock()

	if !ok {
		return nil, errs.NewObjectNotFoundError("order", id.String())
	}
	return order.RestoreOrder(state)
}

// Find returns the committed orders matching filter, newest first.
func (s *Store) Find(_ context.Context, filter ports.OrderFilter) ([]*order.Order, error) {
	s.mu.Lock()
	states := make([]order.State, 0, len(s.orders))
	for _, state := range s.orders {
		if matches(state, filter) {
			states = append(states, state)
		}
	}
	s.mu.Unlock()

	sort.Slice(states, func(i, j int) bool {
		if !states[i].CreatedAt.Equal(states[j].CreatedAt) {
			return states[i].CreatedAt.After(states[j].CreatedAt)
		}
		return states[i].ID.String() > states[j].ID.String()
	})

	orders := make([]*order.Order, 0, len(states))
	for _, state := range states {
		o, err := order.RestoreOrder(state)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// OutboxMessages returns every staged message in sequence order.
func (s *Store) OutboxMessages() ([]*outbox.Message, error) {
	s.mu.Lock()
	states := append([]outbox.State(nil), s.messages...)
	s.mu.Unlock()

	messages := make([]*outbox.Message, 0, len(states))
	for _, state := range states {
		m, err := outbox.RestoreMessage(state)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// commit applies a unit of work atomically: every version guard is checked before
// anything is written.
func (s *Store) commit(adds, updates []*order.Order, messages []*outbox.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range adds {
		if _, exists := s.orders[o.ID().String()]; exists {
			return ErrDuplicateOrder
		}
	}
	for _, o := range updates {
		stored, exists := s.orders[o.ID().String()]
		if !exists {
			return errs.NewObjectNotFoundError("order", o.ID().String())
		}
		if stored.Version != o.PersistedVersion() {
			return errs.NewVersionConflictError(o.ID().String(), o.PersistedVersion(), stored.Version)
		}
	}

	for _, o := range adds {
		s.orders[o.ID().String()] = o.State()
	}
	for _, o := range updates {
		s.orders[o.ID().String()] = o.State()
	}
	for _, m := range messages {
		state := m.State()
		state.Sequence = s.nextSequence
		s.nextSequence++
		s.messages = append(s.messages, state)
	}
	return nil
}

func (s *Store) claimDue(now time.Time, limit int, lease time.Duration) ([]*outbox.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blocked := make(map[string]bool)
	claimed := make([]*outbox.Message, 0, limit)
	for idx := range s.messages {
		if len(claimed) == limit {
			break
		}

		state := s.messages[idx]
		orderKey := state.OrderID.String()
		if state.DeliveryState == outbox.Delivered {
			continue
		}
		if blocked[orderKey] {
			continue
		}
		blocked[orderKey] = true

		m, err := outbox.RestoreMessage(state)
		if err != nil {
			return nil, err
		}
		if !m.IsDue(now) {
			continue
		}
		if err = m.Claim(now, lease); err != nil {
			return nil, err
		}
		s.messages[idx] = m.State()
		claimed = append(claimed, m)
	}
	return claimed, nil
}

func (s *Store) updateMessage(m *outbox.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx := range s.messages {
		if !s.messages[idx].ID.IsEqual(m.ID()) {
			continue
		}
		if s.messages[idx].DeliveryState == outbox.Delivered {
			return outbox.ErrMessageAlreadyDelivered
		}
		if !m.HoldsLease(s.messages[idx].ClaimedUntil) {
			return outbox.ErrLeaseLost
		}
		state := m.State()
		state.Sequence = s.messages[idx].Sequence
		s.messages[idx] = state
		return nil
	}
	return errs.NewObjectNotFoundError("outboxMessage", m.ID().String())
}

func matches(state order.State, filter ports.OrderFilter) bool {
	if filter.OrderID != nil && !state.ID.IsEqual(*filter.OrderID) {
		return false
	}
	if filter.ClientID != "" && state.ClientID != filter.ClientID {
		return false
	}
	if filter.CreatedFrom != nil && state.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && state.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	return true
}
