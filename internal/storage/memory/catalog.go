package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
)

// Catalog — in-memory каталог товаров, категорий и пользователей.
// Реализует domain.ProductCatalog и domain.UserDirectory.
type Catalog struct {
	mu         sync.RWMutex
	products   map[string]domain.Product
	categories map[string]domain.Category
	users      map[string]domain.UserRef
}

// NewCatalog создаёт пустой каталог.
func NewCatalog() *Catalog {
	return &Catalog{
		products:   make(map[string]domain.Product),
		categories: make(map[string]domain.Category),
		users:      make(map[string]domain.UserRef),
	}
}

// Seed загружает данные, перезаписывая записи с совпадающими ID.
func (c *Catalog) Seed(seed domain.CatalogSeed) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, category := range seed.Categories {
		c.categories[category.ID] = category
	}
	for _, product := range seed.Products {
		c.products[product.ID] = product
	}
	for _, user := range seed.Users {
		c.users[user.ID] = user
	}
}

// PutProduct добавляет или заменяет товар.
func (c *Catalog) PutProduct(product domain.Product) {
	c.Seed(domain.CatalogSeed{Products: []domain.Product{product}})
}

// RemoveProduct удаляет товар из каталога.
func (c *Catalog) RemoveProduct(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
}

func (c *Catalog) Product(ctx context.Context, id string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	product, ok := c.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (c *Catalog) Category(ctx context.Context, id string) (domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return domain.Category{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	category, ok := c.categories[id]
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return category, nil
}

func (c *Catalog) User(ctx context.Context, id string) (domain.UserRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserRef{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	user, ok := c.users[id]
	if !ok {
		return domain.UserRef{}, domain.ErrUserNotFound
	}
	return user, nil
}

var (
	_ domain.ProductCatalog = (*Catalog)(nil)
	_ domain.UserDirectory  = (*Catalog)(nil)
)
