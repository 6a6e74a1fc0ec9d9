package bootstrap

import "time"

// =============================================================================
// File System Permissions
// =============================================================================

const (
	// DirPermission is the standard permission for creating directories
	DirPermission = 0755

	// LogFilePermission is the permission for log files
	LogFilePermission = 0666
)

// =============================================================================
// Logger Configuration
// =============================================================================

const (
	// LogFileTimestampFormat is the timestamp format for log filenames (YYYY-MM-DD_HH-MM-SS)
	LogFileTimestampFormat = "2006-01-02_15-04-05"

	// LogFileNamePattern is the format string for log filenames
	LogFileNamePattern = "session_%s.log"

	// LogFileExtension is the file extension for log files
	LogFileExtension = ".log"

	// LogFilesToKeep is how many recent session logs survive cleanup
	LogFilesToKeep = 9
)

// =============================================================================
// Event System Configuration
// =============================================================================

const (
	// EventDefaultMaxRetries is the default publish retry budget
	EventDefaultMaxRetries = 5

	// EventDefaultRetryDelay is the base delay for publish retries
	EventDefaultRetryDelay = 2 * time.Second
)

// =============================================================================
// Worker Pool Configuration
// =============================================================================

const (
	// WorkerPoolSize is the number of background workers
	WorkerPoolSize = 2

	// WorkerQueueSize is the background job queue depth
	WorkerQueueSize = 16
)

// =============================================================================
// Log / Error Messages
// =============================================================================

const (
	LogMsgEventSystemInitialized        = "Event system initialized"
	LogMsgMetricsCollectorRegistered    = "Metrics collector registered"
	LogMsgStreamSubscriberRegistered    = "Stream subscriber registered"
	LogMsgShuttingDownServer            = "Shutting down server..."
	LogMsgServerForcedShutdown          = "Server forced to shutdown"
	LogMsgShutdownComplete              = "Shutdown complete"
	LogMsgFailedCreateDeadLetterDir     = "failed to create dead-letter directory"
	ErrMsgFailedRegisterMetrics         = "failed to register metrics collector"
	ErrMsgFailedRegisterStreamSubscribe = "failed to register stream subscriber"
)
