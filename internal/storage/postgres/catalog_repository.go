package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
)

// CatalogRepository читает товары, категории и пользователей.
// Для заказов это внешние данные: здесь есть только чтение и загрузка seed.
// Чтения идут через пул, мимо транзакции из ctx: их выполняют параллельно.
type CatalogRepository struct {
	store *Store
}

// NewCatalogRepository создаёт PostgreSQL-реализацию каталога и справочника пользователей.
func NewCatalogRepository(store *Store) *CatalogRepository {
	return &CatalogRepository{store: store}
}

func (r *CatalogRepository) Product(ctx context.Context, id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.Select(
		"id", "name", "description", "price", "COALESCE(category_id, '')",
		"count_in_stock", "is_featured", "created_at",
	).From("products").Where("id = ?", id).ToSql()
	if err != nil {
		return domain.Product{}, fmt.Errorf("build select product: %w", err)
	}

	var p domain.Product
	err = r.store.db.QueryRowContext(ctx, query, args...).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID,
		&p.CountInStock, &p.IsFeatured, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (r *CatalogRepository) Category(ctx context.Context, id string) (domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.Select("id", "name", "icon", "color").
		From("categories").Where("id = ?", id).ToSql()
	if err != nil {
		return domain.Category{}, fmt.Errorf("build select category: %w", err)
	}

	var c domain.Category
	if err := r.store.db.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.Name, &c.Icon, &c.Color); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Category{}, domain.ErrCategoryNotFound
		}
		return domain.Category{}, fmt.Errorf("select category: %w", err)
	}
	return c, nil
}

// User возвращает только id и имя: остальные поля пользователя наружу не выходят.
func (r *CatalogRepository) User(ctx context.Context, id string) (domain.UserRef, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.Select("id", "name").From("users").Where("id = ?", id).ToSql()
	if err != nil {
		return domain.UserRef{}, fmt.Errorf("build select user: %w", err)
	}

	var u domain.UserRef
	if err := r.store.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.UserRef{}, domain.ErrUserNotFound
		}
		return domain.UserRef{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

// Seed загружает категории, товары и пользователей, обновляя существующие записи.
func (r *CatalogRepository) Seed(ctx context.Context, seed domain.CatalogSeed) error {
	return r.store.WithinTx(ctx, func(ctx context.Context) error {
		conn := r.store.conn(ctx)

		for _, c := range seed.Categories {
			query, args, err := psql.Insert("categories").
				Columns("id", "name", "icon", "color").
				Values(c.ID, c.Name, c.Icon, c.Color).
				Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, icon = EXCLUDED.icon, color = EXCLUDED.color").
				ToSql()
			if err != nil {
				return fmt.Errorf("build upsert category: %w", err)
			}
			if _, err := conn.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("upsert category %s: %w", c.ID, err)
			}
		}

		for _, p := range seed.Products {
			var categoryID any
			if p.CategoryID != "" {
				categoryID = p.CategoryID
			}
			createdAt := p.CreatedAt
			if createdAt.IsZero() {
				createdAt = timeNow()
			}
			query, args, err := psql.Insert("products").
				Columns("id", "name", "description", "price", "category_id", "count_in_stock", "is_featured", "created_at").
				Values(p.ID, p.Name, p.Description, p.Price, categoryID, p.CountInStock, p.IsFeatured, createdAt.UTC()).
				Suffix(`ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					description = EXCLUDED.description,
					price = EXCLUDED.price,
					category_id = EXCLUDED.category_id,
					count_in_stock = EXCLUDED.count_in_stock,
					is_featured = EXCLUDED.is_featured`).
				ToSql()
			if err != nil {
				return fmt.Errorf("build upsert product: %w", err)
			}
			if _, err := conn.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("upsert product %s: %w", p.ID, err)
			}
		}

		for _, u := range seed.Users {
			query, args, err := psql.Insert("users").
				Columns("id", "name").
				Values(u.ID, u.Name).
				Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name").
				ToSql()
			if err != nil {
				return fmt.Errorf("build upsert user: %w", err)
			}
			if _, err := conn.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("upsert user %s: %w", u.ID, err)
			}
		}
		return nil
	})
}

var (
	_ domain.ProductCatalog = (*CatalogRepository)(nil)
	_ domain.UserDirectory  = (*CatalogRepository)(nil)
)
