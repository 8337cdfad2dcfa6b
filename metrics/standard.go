package metrics

// Pre-defined metrics for the withdrawal engine. All of them live in
// DefaultRegistry so instrumentation sites share one set of values.

var (
	// Deposits counts successful balance credits.
	Deposits = DefaultRegistry.Counter("bridge.deposits")
	// WithdrawalsAccepted counts withdrawal requests that passed nonce and
	// balance validation and were queued.
	WithdrawalsAccepted = DefaultRegistry.Counter("bridge.withdrawals_accepted")
	// WithdrawalsRejected counts withdrawal requests refused for any reason.
	WithdrawalsRejected = DefaultRegistry.Counter("bridge.withdrawals_rejected")
	// BatchesCreated counts issued batches.
	BatchesCreated = DefaultRegistry.Counter("bridge.batches_created")
	// QueueDepth tracks the number of withdrawals waiting for the next batch.
	QueueDepth = DefaultRegistry.Gauge("bridge.queue_depth")
)
