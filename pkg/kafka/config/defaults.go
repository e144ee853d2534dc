package kafka_config

import "time"

const (
	// Default Kafka broker
	DefaultKafkaBrokers = "localhost:9092"

	// Producer defaults
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = 1 // Leader ack; lifecycle events are best-effort
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = true
)
