package engine

// Log message constants
const (
	LogMsgCommandAccepted  = "Command accepted"
	LogMsgCommandReplayed  = "Command replayed from idempotency record"
	LogMsgCommandRejected  = "Command rejected"
	LogMsgRebuildRequested = "Projection rebuild requested"
)

// lockPrefix namespaces run write locks in the shared lock manager.
const lockPrefix = "run:"
