package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
)

var orderColumns = []string{
	"id", "shipping_address1", "shipping_address2", "city", "zip", "country", "phone",
	"status", "total_price", "user_id", "date_ordered",
}

type orderRepository struct {
	store *Store
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

// Create вставляет заказ и связи с позициями в одной транзакции
// (либо во внешней, если она уже открыта в ctx).
func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.store.WithinTx(ctx, func(ctx context.Context) error {
		query, args, err := psql.Insert("orders").
			Columns(orderColumns...).
			Values(
				order.ID, order.Shipping.Address1, order.Shipping.Address2, order.Shipping.City,
				order.Shipping.Zip, order.Shipping.Country, order.Shipping.Phone,
				order.Status, order.TotalPrice, order.UserID, order.DateOrdered.UTC(),
			).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert order: %w", err)
		}

		conn := r.store.conn(ctx)
		if _, err := conn.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrOrderAlreadyExists
			}
			return fmt.Errorf("insert order: %w", err)
		}

		if len(order.LineItemIDs) == 0 {
			return nil
		}

		links := psql.Insert("order_line_items").Columns("order_id", "line_item_id", "position")
		for pos, lineItemID := range order.LineItemIDs {
			links = links.Values(order.ID, lineItemID, pos)
		}
		query, args, err = links.ToSql()
		if err != nil {
			return fmt.Errorf("build insert order line items: %w", err)
		}
		if _, err := conn.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert order line items: %w", err)
		}
		return nil
	})
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.Select(orderColumns...).From("orders").Where("id = ?", id).ToSql()
	if err != nil {
		return domain.Order{}, fmt.Errorf("build select order: %w", err)
	}

	order, err := scanOrder(r.store.conn(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	links, err := r.loadLineItemIDs(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.LineItemIDs = links[order.ID]
	return order, nil
}

func (r *orderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, nil)
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, sq.Eq{"user_id": userID})
}

// UpdateStatus обновляет только колонку status.
func (r *orderRepository) UpdateStatus(ctx context.Context, id, status string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.Update("orders").
		Set("status", status).
		Where("id = ?", id).
		Suffix("RETURNING " + strings.Join(orderColumns, ", ")).
		ToSql()
	if err != nil {
		return domain.Order{}, fmt.Errorf("build update order status: %w", err)
	}

	order, err := scanOrder(r.store.conn(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}

	links, err := r.loadLineItemIDs(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.LineItemIDs = links[order.ID]
	return order, nil
}

// Delete удаляет заказ; строки order_line_items уходят каскадом, сами позиции остаются.
func (r *orderRepository) Delete(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var deleted domain.Order
	err := r.store.WithinTx(ctx, func(ctx context.Context) error {
		links, err := r.loadLineItemIDs(ctx, id)
		if err != nil {
			return err
		}

		query, args, err := psql.Delete("orders").
			Where("id = ?", id).
			Suffix("RETURNING " + strings.Join(orderColumns, ", ")).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete order: %w", err)
		}

		deleted, err = scanOrder(r.store.conn(ctx).QueryRowContext(ctx, query, args...))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrOrderNotFound
			}
			return fmt.Errorf("delete order: %w", err)
		}
		deleted.LineItemIDs = links[id]
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return deleted, nil
}

func (r *orderRepository) Totals(ctx context.Context) (domain.OrderTotals, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.Select("COUNT(*)", "COALESCE(SUM(total_price), 0)").From("orders").ToSql()
	if err != nil {
		return domain.OrderTotals{}, fmt.Errorf("build order totals: %w", err)
	}

	var totals domain.OrderTotals
	if err := r.store.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&totals.Count, &totals.Sales); err != nil {
		return domain.OrderTotals{}, fmt.Errorf("order totals query failed: %w", err)
	}
	return totals, nil
}

func (r *orderRepository) list(ctx context.Context, where sq.Sqlizer) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	builder := psql.Select(orderColumns...).From("orders").OrderBy("date_ordered DESC", "id DESC")
	if where != nil {
		builder = builder.Where(where)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list orders: %w", err)
	}

	rows, err := r.store.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	ids := make([]string, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return orders, nil
	}

	links, err := r.loadLineItemIDs(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].LineItemIDs = links[orders[i].ID]
	}
	return orders, nil
}

// loadLineItemIDs возвращает позиции заказов в порядке отправки корзины.
func (r *orderRepository) loadLineItemIDs(ctx context.Context, orderIDs ...string) (map[string][]string, error) {
	query, args, err := psql.Select("order_id", "line_item_id").
		From("order_line_items").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("order_id", "position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build load order line items: %w", err)
	}

	rows, err := r.store.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load order line items: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]string, len(orderIDs))
	for rows.Next() {
		var orderID, lineItemID string
		if err := rows.Scan(&orderID, &lineItemID); err != nil {
			return nil, fmt.Errorf("scan order line item: %w", err)
		}
		result[orderID] = append(result[orderID], lineItemID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order line items: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID,
		&order.Shipping.Address1, &order.Shipping.Address2, &order.Shipping.City,
		&order.Shipping.Zip, &order.Shipping.Country, &order.Shipping.Phone,
		&order.Status, &order.TotalPrice, &order.UserID, &order.DateOrdered,
	)
	if err != nil {
		return domain.Order{}, err
	}
	order.DateOrdered = order.DateOrdered.UTC()
	return order, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
