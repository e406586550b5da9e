package utils

import (
	"time"
)

// Dispatch constants
const (
	// DispatchBatchSize is the number of recipients grouped into a single
	// dispatch task. Dispatching N pending recipients produces
	// ceil(N/DispatchBatchSize) tasks.
	DispatchBatchSize = 200

	// DispatchMaxAttempts is the maximum number of delivery attempts for a
	// dispatch task, including the first one.
	DispatchMaxAttempts = 3

	// PerSendTimeAllowance is the slice of the task time budget reserved for
	// each recipient in a batch.
	PerSendTimeAllowance = 3 * time.Second

	// DispatchTaskMinTimeout is the floor for a task time budget regardless of
	// batch size.
	DispatchTaskMinTimeout = 30 * time.Second
)

// Import constants
const (
	// ImportMaxRows is the default hard cap on data rows in one uploaded file.
	ImportMaxRows = 50_000

	// ImportMaxBytes is the default hard cap on uploaded file size.
	ImportMaxBytes = 10 << 20

	// ImportSessionTTL is how long an import wizard session survives in the
	// cache between steps.
	ImportSessionTTL = 2 * time.Hour
)

// Activity log retention constants
const (
	// ActivityRetentionAge is the default maximum age of activity entries.
	ActivityRetentionAge = 180 * 24 * time.Hour

	// ActivityRetentionMaxRows is the default maximum number of retained
	// activity entries. The most recent rows win.
	ActivityRetentionMaxRows = 500_000
)

// ExportDateLayout is the timestamp layout used in recipient exports.
const ExportDateLayout = "2006-01-02 15:04:05"

// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
const CORSMaxAge = 86400
