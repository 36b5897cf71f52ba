package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
)

type lineItemRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.LineItem
}

// NewLineItemRepository создаёт in-memory хранилище позиций.
func NewLineItemRepository() domain.LineItemRepository {
	return &lineItemRepositoryInMemory{
		items: make(map[string]domain.LineItem),
	}
}

func (r *lineItemRepositoryInMemory) Create(ctx context.Context, item domain.LineItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; exists {
		return domain.ErrLineItemAlreadyExists
	}
	r.items[item.ID] = item
	return nil
}

func (r *lineItemRepositoryInMemory) Get(ctx context.Context, id string) (domain.LineItem, error) {
	if err := ctx.Err(); err != nil {
		return domain.LineItem{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return domain.LineItem{}, domain.ErrLineItemNotFound
	}
	return item, nil
}

func (r *lineItemRepositoryInMemory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrLineItemNotFound
	}
	delete(r.items, id)
	return nil
}

var _ domain.LineItemRepository = (*lineItemRepositoryInMemory)(nil)
