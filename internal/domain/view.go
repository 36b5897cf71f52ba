package domain

// Expansion задаёт глубину раскрытия ссылок заказа при чтении.
type Expansion int

const (
	// ExpandNone — только сам заказ с идентификаторами ссылок.
	ExpandNone Expansion = iota
	// ExpandUser — заказ с именем пользователя.
	ExpandUser
	// ExpandFull — пользователь плюс позиции, товары и их категории.
	ExpandFull
)

// String возвращает имя глубины для логов и трейсов.
func (e Expansion) String() string {
	switch e {
	case ExpandNone:
		return "none"
	case ExpandUser:
		return "user"
	case ExpandFull:
		return "full"
	default:
		return "unknown"
	}
}

// IncludesUser сообщает, нужно ли раскрывать пользователя.
func (e Expansion) IncludesUser() bool { return e >= ExpandUser }

// IncludesLineItems сообщает, нужно ли раскрывать позиции.
func (e Expansion) IncludesLineItems() bool { return e >= ExpandFull }

// ProductView — товар с раскрытой категорией. Category == nil, если категория не найдена.
type ProductView struct {
	Product
	Category *Category
}

// LineItemView — позиция с раскрытым товаром. Product == nil, если товар не найден.
type LineItemView struct {
	LineItem
	Product *ProductView
}

// OrderView — заказ с раскрытыми ссылками согласно Expansion.
type OrderView struct {
	Order
	Expansion Expansion
	// User заполняется при ExpandUser и глубже; nil, если пользователь не найден.
	User *UserRef
	// LineItems заполняется только при ExpandFull.
	LineItems []LineItemView
}
