package domain

import (
	"context"
)

// LineItemRepository хранит позиции заказов как самостоятельные записи.
type LineItemRepository interface {
	// Create сохраняет новую позицию.
	Create(ctx context.Context, item LineItem) error
	// Get возвращает позицию или ErrLineItemNotFound.
	Get(ctx context.Context, id string) (LineItem, error)
	// Delete удаляет позицию или возвращает ErrLineItemNotFound.
	Delete(ctx context.Context, id string) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// List возвращает все заказы по убыванию DateOrdered (при равенстве — по убыванию ID).
	List(ctx context.Context) ([]Order, error)
	// ListByUser возвращает заказы пользователя в том же порядке, что и List.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// UpdateStatus меняет только статус и возвращает обновлённый заказ.
	UpdateStatus(ctx context.Context, id, status string) (Order, error)
	// Delete удаляет заказ и возвращает его последнее состояние.
	// Позиции заказа не трогает: каскад выполняет сервис.
	Delete(ctx context.Context, id string) (Order, error)
	// Totals возвращает количество заказов и сумму их TotalPrice.
	Totals(ctx context.Context) (OrderTotals, error)
}

// ProductCatalog — внешний каталог товаров, только чтение.
type ProductCatalog interface {
	// Product возвращает товар или ErrProductNotFound.
	Product(ctx context.Context, id string) (Product, error)
	// Category возвращает категорию или ErrCategoryNotFound.
	Category(ctx context.Context, id string) (Category, error)
}

// UserDirectory — внешний справочник пользователей, только чтение.
type UserDirectory interface {
	// User возвращает идентификатор и имя пользователя или ErrUserNotFound.
	User(ctx context.Context, id string) (UserRef, error)
}

// Transactor выполняет fn в одной транзакции хранилища.
// Репозитории того же хранилища подхватывают транзакцию из ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
