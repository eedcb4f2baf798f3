package store

import "errors"

// Store errors. Callers match these with errors.Is; the concrete cause is
// wrapped underneath.
var (
	// ErrStorageUnavailable means the backing medium could not be opened.
	// Dependent features degrade to "no offline support" instead of crashing.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNotInitialized means the store was accessed before Open completed.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrWriteFailed means a transactional write was rejected and the whole
	// transaction rolled back.
	ErrWriteFailed = errors.New("write failed")
)
