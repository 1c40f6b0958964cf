package chambre

import "fmt"

// NetworkError reports a fetch that failed after exhausting every
// configured attempt. It is item-scoped: callers skip the item and move
// on rather than aborting the run.
type NetworkError struct {
	Url       string
	Attempts  int
	LastCause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: failed after %d attempts: %v", e.Url, e.Attempts, e.LastCause)
}

func (e *NetworkError) Unwrap() error {
	return e.LastCause
}

// ExtractionError reports a detail page whose mandatory fields could
// not be located. Non-retryable and item-scoped.
type ExtractionError struct {
	Url    string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.Url, e.Reason)
}
