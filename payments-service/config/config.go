package config

import (
	sharedconfig "github.com/orderflow/fulfillment/shared/config"
)

// ServiceName is the payment service name and its consumer group
const ServiceName = "payment-service"

// ReadConfig loads the payment service configuration. PAYMENT_* environment
// variables override the file.
func ReadConfig() (*sharedconfig.Config, error) {
	return sharedconfig.Load(sharedconfig.Options{
		ServiceName: ServiceName,
		EnvPrefix:   "PAYMENT",
		Port:        "8082",
	})
}
