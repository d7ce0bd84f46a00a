package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// HTTP Handler Timeouts
const (
	// DefaultRequestTimeout is the default timeout for HTTP requests
	DefaultRequestTimeout = 30 * time.Second

	// ValidationTimeout is the timeout for input validation operations
	ValidationTimeout = 5 * time.Second

	// DetectionTimeout is the timeout for a single detection run
	DetectionTimeout = 10 * time.Second

	// SweepTimeout is the timeout for a full parameter sweep
	SweepTimeout = 30 * time.Second

	// RegistryTimeout is the timeout for series registry operations
	RegistryTimeout = 5 * time.Second
)

// =============================================================================
// Detection Constants
// =============================================================================

const (
	// DefaultBaselineWindow is the number of leading observations used to
	// estimate baseline statistics when the caller supplies none
	DefaultBaselineWindow = 20

	// DefaultSweepWorkers is the default parallelism of a parameter sweep
	DefaultSweepWorkers = 8

	// DefaultCacheTTL is how long cached sweep results stay valid
	DefaultCacheTTL = 1 * time.Hour
)

// =============================================================================
// Retry and Backoff Constants
// =============================================================================

const (
	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the default backoff duration between retries
	DefaultRetryBackoff = 100 * time.Millisecond

	// MaxRetryBackoff is the maximum backoff duration
	MaxRetryBackoff = 5 * time.Second
)

// =============================================================================
// Buffer and Batch Size Constants
// =============================================================================

const (
	// DefaultBatchSize is the default batch size for bulk operations
	DefaultBatchSize = 1000

	// DefaultBufferSize is the default buffer size for channels
	DefaultBufferSize = 100

	// MaxBatchSize is the maximum allowed batch size
	MaxBatchSize = 10000
)

// =============================================================================
// Queue Type Constants
// =============================================================================
// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNATS represents NATS JetStream queue (default)
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-memory queue (for testing)
	QueueTypeMemory QueueType = "memory"
)
