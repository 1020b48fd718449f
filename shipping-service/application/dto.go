package application

import (
	"time"

	"github.com/orderflow/fulfillment/shipping-service/domain"
)

// ShipmentResponse is the external view of a shipment
type ShipmentResponse struct {
	ShipmentID            string    `json:"shipment_id"`
	OrderID               string    `json:"order_id"`
	PaymentID             string    `json:"payment_id,omitempty"`
	CustomerName          string    `json:"customer_name,omitempty"`
	Carrier               string    `json:"carrier"`
	TrackingNumber        string    `json:"tracking_number"`
	EstimatedDeliveryDate time.Time `json:"estimated_delivery_date"`
	Status                string    `json:"status"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func toShipmentResponse(shipment *domain.Shipment) *ShipmentResponse {
	return &ShipmentResponse{
		ShipmentID:            shipment.ID.String(),
		OrderID:               shipment.OrderID.String(),
		PaymentID:             shipment.PaymentID.String(),
		CustomerName:          shipment.CustomerName,
		Carrier:               shipment.Carrier,
		TrackingNumber:        shipment.TrackingNumber,
		EstimatedDeliveryDate: shipment.EstimatedDeliveryDate,
		Status:                shipment.Status.String(),
		CreatedAt:             shipment.Timestamps.CreatedAt,
		UpdatedAt:             shipment.Timestamps.UpdatedAt,
	}
}
