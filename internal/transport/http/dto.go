package httptransport

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
	"github.com/vladislavdragonenkov/eshop/internal/service/orders"
)

type cartLineRequest struct {
	Quantity *int   `json:"quantity" validate:"required"`
	Product  string `json:"product" validate:"required"`
}

type createOrderRequest struct {
	OrderItems       []cartLineRequest `json:"orderItems" validate:"required,dive"`
	ShippingAddress1 string            `json:"shippingAddress1"`
	ShippingAddress2 string            `json:"shippingAddress2"`
	City             string            `json:"city"`
	Zip              string            `json:"zip"`
	Country          string            `json:"country"`
	Phone            string            `json:"phone"`
	Status           string            `json:"status"`
	User             string            `json:"user" validate:"required"`
}

func (r createOrderRequest) toInput() orders.CreateOrderInput {
	lines := make([]domain.CartLine, len(r.OrderItems))
	for i, item := range r.OrderItems {
		lines[i] = domain.CartLine{ProductID: item.Product, Quantity: *item.Quantity}
	}
	return orders.CreateOrderInput{
		CartLines: lines,
		Shipping: domain.ShippingAddress{
			Address1: r.ShippingAddress1,
			Address2: r.ShippingAddress2,
			City:     r.City,
			Zip:      r.Zip,
			Country:  r.Country,
			Phone:    r.Phone,
		},
		Status: r.Status,
		UserID: r.User,
	}
}

type updateStatusRequest struct {
	Status *string `json:"status" validate:"required"`
}

// envelope — обёртка ответов {success, data|message|error}.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// orderResponse — JSON заказа. orderItems и user содержат либо идентификаторы,
// либо раскрытые объекты в зависимости от глубины раскрытия.
type orderResponse struct {
	ID               string      `json:"id"`
	OrderItems       []any       `json:"orderItems"`
	ShippingAddress1 string      `json:"shippingAddress1"`
	ShippingAddress2 string      `json:"shippingAddress2"`
	City             string      `json:"city"`
	Zip              string      `json:"zip"`
	Country          string      `json:"country"`
	Phone            string      `json:"phone"`
	Status           string      `json:"status"`
	TotalPrice       json.Number `json:"totalPrice"`
	User             any         `json:"user"`
	DateOrdered      time.Time   `json:"dateOrdered"`
}

type userResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type lineItemResponse struct {
	ID          string           `json:"id"`
	Quantity    int              `json:"quantity"`
	Product     *productResponse `json:"product"`
	DateCreated time.Time        `json:"dateCreated"`
}

type productResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Price        json.Number       `json:"price"`
	Category     *categoryResponse `json:"category"`
	CountInStock int               `json:"countInStock"`
	IsFeatured   bool              `json:"isFeatured"`
	DateCreated  time.Time         `json:"dateCreated"`
}

type categoryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// number кодирует decimal как JSON-число, а не строку.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func newOrderResponse(view domain.OrderView) orderResponse {
	resp := orderResponse{
		ID:               view.ID,
		ShippingAddress1: view.Shipping.Address1,
		ShippingAddress2: view.Shipping.Address2,
		City:             view.Shipping.City,
		Zip:              view.Shipping.Zip,
		Country:          view.Shipping.Country,
		Phone:            view.Shipping.Phone,
		Status:           view.Status,
		TotalPrice:       number(view.TotalPrice),
		DateOrdered:      view.DateOrdered,
	}

	if view.Expansion.IncludesUser() {
		if view.User != nil {
			resp.User = userResponse{ID: view.User.ID, Name: view.User.Name}
		}
	} else {
		resp.User = view.UserID
	}

	if view.Expansion.IncludesLineItems() {
		resp.OrderItems = make([]any, 0, len(view.LineItems))
		for _, item := range view.LineItems {
			resp.OrderItems = append(resp.OrderItems, newLineItemResponse(item))
		}
	} else {
		resp.OrderItems = make([]any, 0, len(view.LineItemIDs))
		for _, id := range view.LineItemIDs {
			resp.OrderItems = append(resp.OrderItems, id)
		}
	}
	return resp
}

func newOrderResponses(views []domain.OrderView) []orderResponse {
	out := make([]orderResponse, len(views))
	for i, view := range views {
		out[i] = newOrderResponse(view)
	}
	return out
}

func rawOrderResponse(order domain.Order) orderResponse {
	return newOrderResponse(domain.OrderView{Order: order, Expansion: domain.ExpandNone})
}

func newLineItemResponse(item domain.LineItemView) lineItemResponse {
	resp := lineItemResponse{
		ID:          item.ID,
		Quantity:    item.Quantity,
		DateCreated: item.CreatedAt,
	}
	if item.Product == nil {
		return resp
	}

	product := item.Product
	resp.Product = &productResponse{
		ID:           product.ID,
		Name:         product.Name,
		Description:  product.Description,
		Price:        number(product.Price),
		CountInStock: product.CountInStock,
		IsFeatured:   product.IsFeatured,
		DateCreated:  product.CreatedAt,
	}
	if c := product.Category; c != nil {
		resp.Product.Category = &categoryResponse{ID: c.ID, Name: c.Name, Icon: c.Icon, Color: c.Color}
	}
	return resp
}
