package orders

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
)

// ListOrders возвращает все заказы, новые первыми, с раскрытым пользователем.
func (s *Service) ListOrders(ctx context.Context) (views []domain.OrderView, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.ListOrders",
		trace.WithAttributes(attribute.String("order.expansion", domain.ExpandUser.String())))
	defer func() { endSpan(span, err) }()
	defer s.observe("list")()

	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, storeError("list orders", err)
	}
	if len(orders) == 0 {
		return nil, domain.ErrNoOrders
	}
	return s.newExpander().expandAll(ctx, orders, domain.ExpandUser)
}

// GetOrder возвращает заказ с раскрытыми пользователем, позициями, товарами и категориями.
func (s *Service) GetOrder(ctx context.Context, id string) (view domain.OrderView, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.GetOrder", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.expansion", domain.ExpandFull.String()),
	))
	defer func() { endSpan(span, err) }()
	defer s.observe("get")()

	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return domain.OrderView{}, storeError("get order", err)
	}
	return s.newExpander().expand(ctx, order, domain.ExpandFull)
}

// ListOrdersForUser возвращает заказы пользователя, новые первыми, полностью раскрытые.
func (s *Service) ListOrdersForUser(ctx context.Context, userID string) (views []domain.OrderView, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.ListOrdersForUser",
		trace.WithAttributes(
			attribute.String("order.user_id", userID),
			attribute.String("order.expansion", domain.ExpandFull.String()),
		))
	defer func() { endSpan(span, err) }()
	defer s.observe("list_by_user")()

	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError("list user orders", err)
	}
	if len(orders) == 0 {
		return nil, domain.ErrNoUserOrders
	}
	return s.newExpander().expandAll(ctx, orders, domain.ExpandFull)
}

// expander раскрывает ссылки заказов в рамках одного запроса.
// Повторные ссылки на товар, категорию или пользователя читаются один раз.
type expander struct {
	s *Service

	mu         sync.Mutex
	products   map[string]*lookup[domain.Product]
	categories map[string]*lookup[domain.Category]
	users      map[string]*lookup[domain.UserRef]
}

type lookup[T any] struct {
	once  sync.Once
	value *T
	err   error
}

func (s *Service) newExpander() *expander {
	return &expander{
		s:          s,
		products:   make(map[string]*lookup[domain.Product]),
		categories: make(map[string]*lookup[domain.Category]),
		users:      make(map[string]*lookup[domain.UserRef]),
	}
}

// resolve читает значение один раз на ключ; notFound превращается в nil без ошибки.
func resolve[T any](e *expander, cache map[string]*lookup[T], id string, notFound error, load func() (T, error)) (*T, error) {
	e.mu.Lock()
	entry, ok := cache[id]
	if !ok {
		entry = &lookup[T]{}
		cache[id] = entry
	}
	e.mu.Unlock()

	entry.once.Do(func() {
		value, err := load()
		switch {
		case errors.Is(err, notFound):
		case err != nil:
			entry.err = err
		default:
			entry.value = &value
		}
	})
	return entry.value, entry.err
}

func (e *expander) expandAll(ctx context.Context, orders []domain.Order, depth domain.Expansion) ([]domain.OrderView, error) {
	views := make([]domain.OrderView, len(orders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.s.concurrency)
	for i, order := range orders {
		g.Go(func() error {
			view, err := e.expand(gctx, order, depth)
			if err != nil {
				return err
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func (e *expander) expand(ctx context.Context, order domain.Order, depth domain.Expansion) (domain.OrderView, error) {
	view := domain.OrderView{Order: order, Expansion: depth}

	if depth.IncludesUser() && order.UserID != "" {
		user, err := e.user(ctx, order.UserID)
		if err != nil {
			return domain.OrderView{}, err
		}
		view.User = user
	}

	if !depth.IncludesLineItems() {
		return view, nil
	}

	items := make([]*domain.LineItemView, len(order.LineItemIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.s.concurrency)
	for i, id := range order.LineItemIDs {
		g.Go(func() error {
			item, err := e.lineItem(gctx, order.ID, id)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.OrderView{}, err
	}

	view.LineItems = make([]domain.LineItemView, 0, len(items))
	for _, item := range items {
		if item != nil {
			view.LineItems = append(view.LineItems, *item)
		}
	}
	return view, nil
}

// lineItem возвращает nil для позиции, удалённой в обход заказа.
func (e *expander) lineItem(ctx context.Context, orderID, id string) (*domain.LineItemView, error) {
	item, err := e.s.lineItems.Get(ctx, id)
	if errors.Is(err, domain.ErrLineItemNotFound) {
		e.s.logger.WithField("order_id", orderID).WithField("line_item_id", id).Warn("dangling line item reference skipped")
		return nil, nil
	}
	if err != nil {
		return nil, storeError("get line item", err)
	}

	product, err := e.product(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	return &domain.LineItemView{LineItem: item, Product: product}, nil
}

func (e *expander) product(ctx context.Context, id string) (*domain.ProductView, error) {
	product, err := resolve(e, e.products, id, domain.ErrProductNotFound, func() (domain.Product, error) {
		return e.s.catalog.Product(ctx, id)
	})
	if err != nil {
		return nil, storeError("get product", err)
	}
	if product == nil {
		return nil, nil
	}

	view := &domain.ProductView{Product: *product}
	if product.CategoryID != "" {
		category, err := resolve(e, e.categories, product.CategoryID, domain.ErrCategoryNotFound, func() (domain.Category, error) {
			return e.s.catalog.Category(ctx, product.CategoryID)
		})
		if err != nil {
			return nil, storeError("get category", err)
		}
		view.Category = category
	}
	return view, nil
}

func (e *expander) user(ctx context.Context, id string) (*domain.UserRef, error) {
	user, err := resolve(e, e.users, id, domain.ErrUserNotFound, func() (domain.UserRef, error) {
		return e.s.users.User(ctx, id)
	})
	if err != nil {
		return nil, storeError("get user", err)
	}
	return user, nil
}
