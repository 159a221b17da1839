package main

import "time"

type Config struct {
	QueueCapacity   int           `env:"QUEUE_CAPACITY,required=true"`
	MessagesLimit   int           `env:"MESSAGES_LIMIT,default=10"`
	PrefetchCount   int           `env:"PREFETCH_COUNT,default=10"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=30s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`

	RabbitMQURL      string `env:"RABBITMQ_URL,required=true"`
	IngestExchange   string `env:"DATABASE_EXCHANGE_NAME,required=true"`
	IngestQueue      string `env:"DATABASE_QUEUE_NAME,required=true"`
	DeliveryExchange string `env:"DELIVERY_EXCHANGE_NAME,required=true"`

	AuthBackendBaseURL string `env:"AUTH_BACKEND_BASE_URL,required=true"`
	JWTKey             string `env:"KEY,required=true"`

	Host string `env:"HOST,default=localhost"`
	Port int    `env:"PORT,default=8080"`

	// DebugPort enables the local store inspector when non-zero.
	DebugPort int `env:"DEBUG_PORT,default=0"`
}
