package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem представляет одну позицию корзины, сохранённую как отдельная запись.
type LineItem struct {
	ID string
	// ProductID — ссылка на товар каталога; существование проверяется при расчёте цены.
	ProductID string
	// Quantity не валидируется агрегатором: значения <= 0 проходят как есть.
	Quantity  int
	CreatedAt time.Time
}

// Subtotal возвращает price × quantity для позиции.
func (li LineItem) Subtotal(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// ShippingAddress хранит адрес доставки без какой-либо валидации.
type ShippingAddress struct {
	Address1 string
	Address2 string
	City     string
	Zip      string
	Country  string
	Phone    string
}

// Order агрегирует заказ: ссылки на позиции, адрес, статус и зафиксированную сумму.
type Order struct {
	ID string
	// LineItemIDs хранит позиции в порядке отправки корзины.
	LineItemIDs []string
	Shipping    ShippingAddress
	// Status — произвольная строка, по умолчанию пустая.
	Status string
	// TotalPrice — снимок суммы на момент создания, не пересчитывается.
	TotalPrice  decimal.Decimal
	UserID      string
	DateOrdered time.Time
}

// Clone возвращает копию заказа, не разделяющую срез позиций с оригиналом.
func (o Order) Clone() Order {
	clone := o
	if o.LineItemIDs != nil {
		clone.LineItemIDs = append([]string(nil), o.LineItemIDs...)
	}
	return clone
}

// CartLine — пара (товар, количество), присланная клиентом.
type CartLine struct {
	ProductID string
	Quantity  int
}

// Validate проверяет наличие ссылки на товар; количество пропускается как есть.
func (c CartLine) Validate() error {
	if c.ProductID == "" {
		return ErrProductRequired
	}
	return nil
}

// OrderTotals — агрегаты для отчётов.
type OrderTotals struct {
	Count int
	Sales decimal.Decimal
}
