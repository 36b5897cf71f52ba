package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists — заказ с таким ID уже сохранён.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrLineItemAlreadyExists — позиция с таким ID уже сохранена.
	ErrLineItemAlreadyExists = errors.New("line item already exists")
	// ErrLineItemNotFound возвращается, если позиция не найдена.
	ErrLineItemNotFound = errors.New("line item not found")
	// ErrProductNotFound — товар из корзины отсутствует в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrCategoryNotFound — категория товара отсутствует.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrUserNotFound — пользователь отсутствует в справочнике.
	ErrUserNotFound = errors.New("user not found")
	// ErrProductRequired — в строке корзины нет ссылки на товар.
	ErrProductRequired = errors.New("cart line product is required")
	// ErrQuantityRequired — в строке корзины нет количества.
	ErrQuantityRequired = errors.New("cart line quantity is required")
	// ErrUserRequired — в заказе нет ссылки на пользователя.
	ErrUserRequired = errors.New("order user is required")
	// ErrInvalidRequest — тело запроса не прошло разбор или валидацию.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrOrderPersist — финальная запись заказа не удалась.
	ErrOrderPersist = errors.New("order persist failed")
	// ErrStore — общая ошибка хранилища.
	ErrStore = errors.New("store error")
	// ErrPartialCascade — часть позиций не удалось удалить вместе с заказом.
	ErrPartialCascade = errors.New("partial cascade failure")
	// ErrNoOrders — в хранилище нет ни одного заказа.
	ErrNoOrders = errors.New("no orders found")
	// ErrNoUserOrders — у пользователя нет заказов.
	ErrNoUserOrders = errors.New("no orders found for this user")
	// ErrSalesUnavailable — сумму продаж нельзя посчитать (заказов нет).
	ErrSalesUnavailable = errors.New("order sales cannot be generated")
	// ErrCountUnavailable — количество заказов нулевое.
	ErrCountUnavailable = errors.New("order count cannot be generated")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// ProductNotFoundError указывает позицию, для которой не нашёлся товар.
type ProductNotFoundError struct {
	LineItemID string
	ProductID  string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product not found for order item with ID %s", e.LineItemID)
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrProductNotFound).
func (e *ProductNotFoundError) Unwrap() error {
	return ErrProductNotFound
}

// LineItemDeleteResult — результат удаления одной позиции в каскаде.
type LineItemDeleteResult struct {
	LineItemID string
	// Missing означает, что позиции уже не было; считается успешным удалением.
	Missing bool
	Err     error
}

// CascadeResult — итог каскадного удаления позиций заказа.
type CascadeResult struct {
	OrderID string
	Items   []LineItemDeleteResult
}

// Failed возвращает позиции, которые удалить не удалось.
func (r CascadeResult) Failed() []LineItemDeleteResult {
	var failed []LineItemDeleteResult
	for _, item := range r.Items {
		if item.Err != nil {
			failed = append(failed, item)
		}
	}
	return failed
}

// Err возвращает *CascadeError, если хотя бы одна позиция не удалена, иначе nil.
func (r CascadeResult) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	return &CascadeError{OrderID: r.OrderID, Failed: failed}
}

// CascadeError описывает частичный сбой каскадного удаления.
type CascadeError struct {
	OrderID string
	Failed  []LineItemDeleteResult
}

func (e *CascadeError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, item := range e.Failed {
		parts = append(parts, fmt.Sprintf("%s: %v", item.LineItemID, item.Err))
	}
	return fmt.Sprintf("failed to delete %d line item(s) of order %s: %s",
		len(e.Failed), e.OrderID, strings.Join(parts, "; "))
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrPartialCascade).
func (e *CascadeError) Unwrap() error {
	return ErrPartialCascade
}

// IsNotFound проверяет, относится ли ошибка к отсутствующим данным заказов.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrNoOrders) ||
		errors.Is(err, ErrNoUserOrders)
}

// IsReportUnavailable проверяет, что агрегат отчёта не может быть построен.
func IsReportUnavailable(err error) bool {
	return errors.Is(err, ErrSalesUnavailable) || errors.Is(err, ErrCountUnavailable)
}
