package config

import (
	sharedconfig "github.com/orderflow/fulfillment/shared/config"
)

// ServiceName is the order service name and its consumer group
const ServiceName = "order-service"

// ReadConfig loads the order service configuration. ORDER_* environment
// variables override the file.
func ReadConfig() (*sharedconfig.Config, error) {
	return sharedconfig.Load(sharedconfig.Options{
		ServiceName: ServiceName,
		EnvPrefix:   "ORDER",
		Port:        "8081",
	})
}
