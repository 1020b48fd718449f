package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/orderflow/fulfillment/payments-service/application"
	"github.com/orderflow/fulfillment/shared/httputil"
	"github.com/orderflow/fulfillment/shared/logging"
	"go.uber.org/zap"
)

// PaymentHandlers contains payment HTTP handlers
type PaymentHandlers struct {
	processPayment *application.ProcessPayment
	requestPayment *application.RequestPayment
	getPayment     *application.GetPayment
	listPayments   *application.ListPayments
	validate       *validator.Validate
	logger         *zap.Logger
}

// NewPaymentHandlers creates new payment handlers
func NewPaymentHandlers(
	processPayment *application.ProcessPayment,
	requestPayment *application.RequestPayment,
	getPayment *application.GetPayment,
	listPayments *application.ListPayments,
	logger *zap.Logger,
) *PaymentHandlers {
	return &PaymentHandlers{
		processPayment: processPayment,
		requestPayment: requestPayment,
		getPayment:     getPayment,
		listPayments:   listPayments,
		validate:       httputil.NewValidator(),
		logger:         logger,
	}
}

// ProcessPayment submits a payment for the order in the path. A repeated
// submission answers 200 with the stored outcome.
func (h *PaymentHandlers) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var cmd application.ProcessPaymentCommand
	if err := httputil.DecodeAndValidate(r, h.validate, &cmd); err != nil {
		httputil.WriteError(w, err)
		return
	}
	cmd.OrderID = chi.URLParam(r, "order_id")

	result, err := h.processPayment.Execute(r.Context(), &cmd)
	if err != nil {
		h.fail(w, r, "process payment failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// RequestPayment queues a submission on the bus and answers 202. The
// outcome shows up later on the payment and the order.
func (h *PaymentHandlers) RequestPayment(w http.ResponseWriter, r *http.Request) {
	var cmd application.ProcessPaymentCommand
	if err := httputil.DecodeAndValidate(r, h.validate, &cmd); err != nil {
		httputil.WriteError(w, err)
		return
	}
	cmd.OrderID = chi.URLParam(r, "order_id")

	response, err := h.requestPayment.Execute(r.Context(), &cmd)
	if err != nil {
		h.fail(w, r, "request payment failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, response)
}

// GetPayment handles payment retrieval by order
func (h *PaymentHandlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	response, err := h.getPayment.Execute(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		h.fail(w, r, "get payment failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, response)
}

// ListPayments handles payment listing requests
func (h *PaymentHandlers) ListPayments(w http.ResponseWriter, r *http.Request) {
	response, err := h.listPayments.Execute(r.Context())
	if err != nil {
		h.fail(w, r, "list payments failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, response)
}

func (h *PaymentHandlers) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if httputil.StatusFor(err) >= http.StatusInternalServerError {
		logging.Error(r.Context(), h.logger, msg, zap.Error(err))
	}
	httputil.WriteError(w, err)
}

// RegisterRoutes registers payment routes
func (h *PaymentHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Get("/", h.ListPayments)
		r.Get("/{order_id}", h.GetPayment)
		r.Post("/{order_id}", h.ProcessPayment)
		r.Post("/{order_id}/requests", h.RequestPayment)
	})
}
