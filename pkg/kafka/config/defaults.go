package kafka_config

import "time"

const (
	DefaultKafkaBrokers = "localhost:9092"

	DefaultAuditTopic    = "parking.audit"
	DefaultAuditDLQTopic = "parking.audit.dlq"
	DefaultGroupID       = "audit-logs"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // all replicas
	DefaultProducerCompression  = "snappy"

	DefaultConsumerStartOffset    = -2 // oldest, so no audit record is skipped on first start
	DefaultConsumerMinBytes       = 1
	DefaultConsumerMaxBytes       = 10 * 1024 * 1024 // 10MB
	DefaultConsumerMaxWait        = 500 * time.Millisecond
	DefaultConsumerCommitInterval = 0 // synchronous commits
	DefaultConsumerMaxRetries     = 3
	DefaultConsumerRetryBackoff   = 200 * time.Millisecond

	DefaultEnableMiddleware = true
)
