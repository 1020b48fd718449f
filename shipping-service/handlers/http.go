package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/orderflow/fulfillment/shared/httputil"
	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/orderflow/fulfillment/shipping-service/application"
	"go.uber.org/zap"
)

// ShipmentHandlers contains shipment HTTP handlers
type ShipmentHandlers struct {
	shipOrder     *application.ShipOrder
	getShipment   *application.GetShipment
	listShipments *application.ListShipments
	logger        *zap.Logger
}

// NewShipmentHandlers creates new shipment handlers
func NewShipmentHandlers(
	shipOrder *application.ShipOrder,
	getShipment *application.GetShipment,
	listShipments *application.ListShipments,
	logger *zap.Logger,
) *ShipmentHandlers {
	return &ShipmentHandlers{
		shipOrder:     shipOrder,
		getShipment:   getShipment,
		listShipments: listShipments,
		logger:        logger,
	}
}

// ShipOrder dispatches the shipment of the order in the path
func (h *ShipmentHandlers) ShipOrder(w http.ResponseWriter, r *http.Request) {
	result, err := h.shipOrder.Execute(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		h.fail(w, r, "ship order failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetShipment handles shipment retrieval by order
func (h *ShipmentHandlers) GetShipment(w http.ResponseWriter, r *http.Request) {
	response, err := h.getShipment.Execute(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		h.fail(w, r, "get shipment failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, response)
}

// ListShipments handles shipment listing requests
func (h *ShipmentHandlers) ListShipments(w http.ResponseWriter, r *http.Request) {
	response, err := h.listShipments.Execute(r.Context())
	if err != nil {
		h.fail(w, r, "list shipments failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, response)
}

func (h *ShipmentHandlers) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if httputil.StatusFor(err) >= http.StatusInternalServerError {
		logging.Error(r.Context(), h.logger, msg, zap.Error(err))
	}
	httputil.WriteError(w, err)
}

// RegisterRoutes registers shipment routes
func (h *ShipmentHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/shipments", func(r chi.Router) {
		r.Get("/", h.ListShipments)
		r.Get("/{order_id}", h.GetShipment)
		r.Post("/{order_id}/ship", h.ShipOrder)
	})
}
