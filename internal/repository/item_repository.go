package repository

import (
	"context"
	"sync"

	"github.com/iliyamo/backend-service-lab3/internal/model"
)

// ItemRepo is an in-memory, append-only sequence of items.  Positions are
// assigned in insertion order and never change because nothing is ever
// removed.  The zero value is not usable; call NewItemRepo.
type ItemRepo struct {
	mu    sync.RWMutex // guards items
	items []model.Item
}

// NewItemRepo returns an empty store.
func NewItemRepo() *ItemRepo {
	return &ItemRepo{items: make([]model.Item, 0)}
}

// List returns a snapshot of every item in insertion order.  The returned
// slice is never nil and is safe to modify.
func (r *ItemRepo) List(ctx context.Context) []model.Item {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Item, len(r.items))
	copy(out, r.items)
	return out
}

// Count returns the number of stored items.
func (r *ItemRepo) Count(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Create appends item and returns its position together with the stored value.
func (r *ItemRepo) Create(ctx context.Context, item model.Item) (int, model.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, item)
	return len(r.items) - 1, item
}

// Get returns the item at position index.  Negative or too large positions
// yield ErrItemNotFound.
func (r *ItemRepo) Get(ctx context.Context, index int) (model.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= len(r.items) {
		return model.Item{}, ErrItemNotFound
	}
	return r.items[index], nil
}
