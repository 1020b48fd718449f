package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/orderflow/fulfillment/order-service/application"
	"github.com/orderflow/fulfillment/shared/httputil"
	"github.com/orderflow/fulfillment/shared/logging"
	"go.uber.org/zap"
)

// OrderHandlers contains order HTTP handlers
type OrderHandlers struct {
	createOrder    *application.CreateOrder
	getOrder       *application.GetOrder
	listOrders     *application.ListOrders
	getOrderEvents *application.GetOrderEvents
	validate       *validator.Validate
	logger         *zap.Logger
}

// NewOrderHandlers creates new order handlers
func NewOrderHandlers(
	createOrder *application.CreateOrder,
	getOrder *application.GetOrder,
	listOrders *application.ListOrders,
	getOrderEvents *application.GetOrderEvents,
	logger *zap.Logger,
) *OrderHandlers {
	return &OrderHandlers{
		createOrder:    createOrder,
		getOrder:       getOrder,
		listOrders:     listOrders,
		getOrderEvents: getOrderEvents,
		validate:       httputil.NewValidator(),
		logger:         logger,
	}
}

// CreateOrder handles order creation requests
func (h *OrderHandlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd application.CreateOrderCommand
	if err := httputil.DecodeAndValidate(r, h.validate, &cmd); err != nil {
		httputil.WriteError(w, err)
		return
	}

	response, err := h.createOrder.Execute(r.Context(), &cmd)
	if err != nil {
		h.fail(w, r, "create order failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, response)
}

// GetOrder handles order retrieval requests
func (h *OrderHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	response, err := h.getOrder.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get order failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, response)
}

// ListOrders handles order listing requests
func (h *OrderHandlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	response, err := h.listOrders.Execute(r.Context())
	if err != nil {
		h.fail(w, r, "list orders failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, response)
}

// GetOrderEvents handles order journal requests
func (h *OrderHandlers) GetOrderEvents(w http.ResponseWriter, r *http.Request) {
	response, err := h.getOrderEvents.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get order events failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, response)
}

func (h *OrderHandlers) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if httputil.StatusFor(err) >= http.StatusInternalServerError {
		logging.Error(r.Context(), h.logger, msg, zap.Error(err))
	}
	httputil.WriteError(w, err)
}

// RegisterRoutes registers order routes
func (h *OrderHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Get("/{id}/events", h.GetOrderEvents)
	})
}
