package orders

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
)

// TotalSales возвращает сумму TotalPrice по всем заказам.
// Без заказов отчёт считается непостроенным: domain.ErrSalesUnavailable.
func (s *Service) TotalSales(ctx context.Context) (decimal.Decimal, error) {
	defer s.observe("total_sales")()

	totals, err := s.orders.Totals(ctx)
	if err != nil {
		return decimal.Zero, storeError("total sales", err)
	}
	if totals.Count == 0 {
		return decimal.Zero, domain.ErrSalesUnavailable
	}
	return totals.Sales, nil
}

// OrderCount возвращает число заказов; ноль — domain.ErrCountUnavailable.
func (s *Service) OrderCount(ctx context.Context) (int, error) {
	defer s.observe("count")()

	totals, err := s.orders.Totals(ctx)
	if err != nil {
		return 0, storeError("order count", err)
	}
	if totals.Count == 0 {
		return 0, domain.ErrCountUnavailable
	}
	return totals.Count, nil
}
