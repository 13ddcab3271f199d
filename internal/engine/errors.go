package engine

import "errors"

var (
	// ErrEmptyQuery marks "nothing asked", distinct from an empty result
	// set, so callers can tell the two apart.
	ErrEmptyQuery = errors.New("empty query")

	// ErrNotReady is returned when no index snapshot has been published yet;
	// the index build must complete before any query is served.
	ErrNotReady = errors.New("engine is not ready: index has not been built")

	// ErrNoDataset is returned by BuildIndex when Load has not run.
	ErrNoDataset = errors.New("no dataset loaded")
)
