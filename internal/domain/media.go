package domain

import "fmt"

// FailureKind classifies why a media fetch did not produce media.
type FailureKind string

const (
	FailureTimeout         FailureKind = "timeout"
	FailureUpstreamBlocked FailureKind = "upstream_blocked"
	FailureTooSmall        FailureKind = "too_small"
	FailureNetwork         FailureKind = "network_error"
	FailureUnknown         FailureKind = "unknown"
)

// Retryable reports whether a caller may reasonably retry a fetch that failed this way.
func (k FailureKind) Retryable() bool {
	return k == FailureTimeout
}

// MediaPayload is the body of a successful media fetch.
type MediaPayload struct {
	Body        []byte
	ContentType string
}

// ByteLength returns the size of the body in bytes.
func (p *MediaPayload) ByteLength() int {
	return len(p.Body)
}

// FetchError is the failure variant of a media fetch.
type FetchError struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(kind FailureKind, message string, err error) *FetchError {
	return &FetchError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}
