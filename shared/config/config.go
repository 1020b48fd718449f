package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Bus drivers
const (
	BusSNS    = "sns"
	BusKafka  = "kafka"
	BusMemory = "memory"
)

// Storage drivers
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	ServiceName string    `mapstructure:"service_name"`
	Env         string    `mapstructure:"env"`
	Port        string    `mapstructure:"port"`
	LogLevel    string    `mapstructure:"log_level"`
	Database    Database  `mapstructure:"database"`
	Bus         Bus       `mapstructure:"bus"`
	AWS         AWS       `mapstructure:"aws"`
	Kafka       Kafka     `mapstructure:"kafka"`
	Redis       Redis     `mapstructure:"redis"`
	Telemetry   Telemetry `mapstructure:"telemetry"`
}

type Database struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	URL      string `mapstructure:"url"`
}

type Bus struct {
	Driver        string `mapstructure:"driver"`
	ConsumerGroup string `mapstructure:"consumer_group"`
}

type AWS struct {
	Region      string `mapstructure:"region"`
	SNSTopicArn string `mapstructure:"sns_topic_arn"`
	SQSQueueURL string `mapstructure:"sqs_queue_url"`
}

type Kafka struct {
	Brokers  []string `mapstructure:"brokers"`
	ClientID string   `mapstructure:"client_id"`
}

type Redis struct {
	Addr string        `mapstructure:"addr"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type Telemetry struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Options selects the service specific defaults of Load
type Options struct {
	ServiceName string
	EnvPrefix   string
	Port        string
	ConfigPaths []string
}

// Load reads config/<ENVIRONMENT>.json when present and applies
// <PREFIX>_* environment overrides on top of the defaults.
func Load(opts Options) (*Config, error) {
	v := viper.New()

	v.SetConfigName(getConfigName())
	v.SetConfigType("json")
	v.AddConfigPath("./config")
	for _, p := range opts.ConfigPaths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(opts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, opts)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "error reading config file")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling config")
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func getConfigName() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "local"
	}
	return env
}

func setDefaults(v *viper.Viper, opts Options) {
	// Service defaults
	v.SetDefault("service_name", opts.ServiceName)
	v.SetDefault("env", getEnv("ENV", "local"))
	v.SetDefault("port", getEnv("PORT", opts.Port))
	v.SetDefault("log_level", "info")

	// Database defaults
	v.SetDefault("database.driver", StoragePostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "fulfillment")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.url", os.Getenv("DATABASE_URL"))

	// Bus defaults. The consumer group is the service itself.
	v.SetDefault("bus.driver", BusSNS)
	v.SetDefault("bus.consumer_group", opts.ServiceName)

	// AWS defaults
	v.SetDefault("aws.region", getEnv("AWS_DEFAULT_REGION", "us-east-1"))
	v.SetDefault("aws.sns_topic_arn", getEnv("SNS_TOPIC_ARN", "arn:aws:sns:us-east-1:000000000000:fulfillment-events.fifo"))
	v.SetDefault("aws.sqs_queue_url", fmt.Sprintf("http://localhost:4566/000000000000/%s.fifo", opts.ServiceName))

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", opts.ServiceName)

	// Redis defaults. An empty address disables the order cache.
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.otlp_endpoint", "")
}

func (c *Config) validate() error {
	switch c.Bus.Driver {
	case BusSNS, BusKafka, BusMemory:
	default:
		return errors.Errorf("unknown bus driver %q", c.Bus.Driver)
	}

	switch c.Database.Driver {
	case StoragePostgres, StorageMemory:
	default:
		return errors.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Bus.ConsumerGroup == "" {
		return errors.New("bus.consumer_group is required")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetDatabaseURL constructs database URL from config
func (c *Config) GetDatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}
