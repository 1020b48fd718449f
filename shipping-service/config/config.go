package config

import (
	sharedconfig "github.com/orderflow/fulfillment/shared/config"
)

// ServiceName is the shipping service name and its consumer group
const ServiceName = "shipping-service"

// ReadConfig loads the shipping service configuration. SHIPPING_*
// environment variables override the file.
func ReadConfig() (*sharedconfig.Config, error) {
	return sharedconfig.Load(sharedconfig.Options{
		ServiceName: ServiceName,
		EnvPrefix:   "SHIPPING",
		Port:        "8083",
	})
}
