package worker

// ============================================================================
// Log Messages - Worker Pool
// ============================================================================

// LogMsgWorkerJobFailed is logged when a worker fails to process a job
const LogMsgWorkerJobFailed = "Worker job failed"

// ============================================================================
// Log Messages - Idempotency GC Worker
// ============================================================================

// Log messages for idempotency garbage collection
const (
	LogMsgIdempotencyGCStarted   = "Idempotency GC worker started"
	LogMsgIdempotencyGCCompleted = "Idempotency GC completed"
	LogMsgIdempotencyGCFailed    = "Idempotency GC failed"
)

// ============================================================================
// Test Configuration
// ============================================================================

// Test pool configuration values used in pool_test.go
const (
	TestWorkerCount           = 2
	TestQueueSize             = 10
	TestExpectedJobCount      = 2
	TestWorkerProcessWaitTime = 100 // milliseconds
)
