package extractor

import "errors"

var (
	// ErrElementNotFound is a hard structural failure: the view guarantees the element exists
	ErrElementNotFound = errors.New("required element not found")
	// ErrContextTimeout means a development link never opened its secondary window
	ErrContextTimeout = errors.New("secondary browsing context did not open")
	// ErrRetrieval wraps attachment download failures; records are still returned
	ErrRetrieval = errors.New("attachment retrieval failed")
)
