package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestProductNotFoundError(t *testing.T) {
	err := fmt.Errorf("resolve price: %w", &ProductNotFoundError{LineItemID: "li-7", ProductID: "p-404"})

	if !errors.Is(err, ErrProductNotFound) {
		t.Fatal("expected errors.Is to match ErrProductNotFound")
	}

	var pnf *ProductNotFoundError
	if !errors.As(err, &pnf) {
		t.Fatal("expected errors.As to extract ProductNotFoundError")
	}
	if pnf.Error() != "Product not found for order item with ID li-7" {
		t.Fatalf("unexpected message: %q", pnf.Error())
	}
}

func TestCascadeResultErr(t *testing.T) {
	ok := CascadeResult{
		OrderID: "order-1",
		Items: []LineItemDeleteResult{
			{LineItemID: "li-1"},
			{LineItemID: "li-2", Missing: true},
		},
	}
	if err := ok.Err(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	partial := CascadeResult{
		OrderID: "order-1",
		Items: []LineItemDeleteResult{
			{LineItemID: "li-1"},
			{LineItemID: "li-2", Err: errors.New("connection reset")},
		},
	}
	err := partial.Err()
	if !errors.Is(err, ErrPartialCascade) {
		t.Fatalf("expected ErrPartialCascade, got %v", err)
	}

	var cascadeErr *CascadeError
	if !errors.As(err, &cascadeErr) {
		t.Fatal("expected *CascadeError")
	}
	if len(cascadeErr.Failed) != 1 || cascadeErr.Failed[0].LineItemID != "li-2" {
		t.Fatalf("unexpected failed items: %+v", cascadeErr.Failed)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "order not found", err: ErrOrderNotFound, want: true},
		{name: "wrapped no orders", err: fmt.Errorf("list: %w", ErrNoOrders), want: true},
		{name: "no user orders", err: errors.Join(ErrNoUserOrders, errors.New("ctx")), want: true},
		{name: "store error", err: ErrStore, want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsReportUnavailable(t *testing.T) {
	if !IsReportUnavailable(ErrSalesUnavailable) || !IsReportUnavailable(ErrCountUnavailable) {
		t.Fatal("expected report errors to match")
	}
	if IsReportUnavailable(ErrOrderNotFound) {
		t.Fatal("order not found is not a report error")
	}
}
