package httptransport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
)

// Сообщения 404 и 400 отличаются по маршрутам; клиенты на них завязаны.
const (
	msgNoOrders         = "No orders found"
	msgOrderNotFoundGet = "The order was not found"
	msgOrderNotFound    = "Order not found"
	msgNoUserOrders     = "No orders found for this user"
	msgSalesUnavailable = "The order sales cannot be generated"
	msgCountUnavailable = "The order count cannot be generated"
	msgOrderDeleted     = "Order is deleted"
	maxRequestBodyBytes = 1 << 20
)

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.fail(w, r, err, msgNoOrders)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: newOrderResponses(views)})
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, msgOrderNotFoundGet)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: newOrderResponse(view)})
}

func (h *handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}

	order, err := h.service.CreateOrder(r.Context(), req.toInput())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, rawOrderResponse(order))
}

func (h *handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), *req.Status)
	if err != nil {
		h.fail(w, r, err, msgOrderNotFound)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: rawOrderResponse(order)})
}

func (h *handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.DeleteOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, msgOrderNotFound)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: msgOrderDeleted})
}

func (h *handler) totalSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.service.TotalSales(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: number(sales)})
}

func (h *handler) orderCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.OrderCount(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: count})
}

func (h *handler) userOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListOrdersForUser(r.Context(), chi.URLParam(r, "userid"))
	if err != nil {
		h.fail(w, r, err, msgNoUserOrders)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: newOrderResponses(views)})
}

// decode разбирает JSON-тело и проверяет его тегами validate.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", domain.ErrInvalidRequest, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

// fail переводит ошибку сервиса в HTTP-ответ.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var productNotFound *domain.ProductNotFoundError
	status := http.StatusInternalServerError
	body := envelope{Error: err.Error()}

	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrProductRequired),
		errors.Is(err, domain.ErrQuantityRequired),
		errors.Is(err, domain.ErrUserRequired):
		status = http.StatusBadRequest
	case domain.IsNotFound(err):
		status = http.StatusNotFound
		body = envelope{Message: notFound}
	case errors.Is(err, domain.ErrSalesUnavailable):
		status = http.StatusBadRequest
		body = envelope{Message: msgSalesUnavailable}
	case errors.Is(err, domain.ErrCountUnavailable):
		status = http.StatusBadRequest
		body = envelope{Message: msgCountUnavailable}
	case errors.As(err, &productNotFound):
		body = envelope{Error: productNotFound.Error()}
	}

	entry := h.logger.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
