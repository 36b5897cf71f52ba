package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
)

type lineItemRepository struct {
	store *Store
}

// NewLineItemRepository создаёт PostgreSQL-реализацию LineItemRepository.
func NewLineItemRepository(store *Store) domain.LineItemRepository {
	return &lineItemRepository{store: store}
}

func (r *lineItemRepository) Create(ctx context.Context, item domain.LineItem) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.Insert("line_items").
		Columns("id", "product_id", "quantity", "created_at").
		Values(item.ID, item.ProductID, item.Quantity, item.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert line item: %w", err)
	}

	if _, err := r.store.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrLineItemAlreadyExists
		}
		return fmt.Errorf("insert line item: %w", err)
	}
	return nil
}

func (r *lineItemRepository) Get(ctx context.Context, id string) (domain.LineItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.Select("id", "product_id", "quantity", "created_at").
		From("line_items").
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("build select line item: %w", err)
	}

	var item domain.LineItem
	err = r.store.conn(ctx).QueryRowContext(ctx, query, args...).
		Scan(&item.ID, &item.ProductID, &item.Quantity, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LineItem{}, domain.ErrLineItemNotFound
		}
		return domain.LineItem{}, fmt.Errorf("select line item: %w", err)
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return item, nil
}

func (r *lineItemRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.Delete("line_items").Where("id = ?", id).ToSql()
	if err != nil {
		return fmt.Errorf("build delete line item: %w", err)
	}

	res, err := r.store.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete line item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for line item delete: %w", err)
	}
	if affected == 0 {
		return domain.ErrLineItemNotFound
	}
	return nil
}

var _ domain.LineItemRepository = (*lineItemRepository)(nil)
