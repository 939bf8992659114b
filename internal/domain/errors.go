package domain

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	// ErrInvalidPostURL is returned when a URL does not address a post or reel.
	ErrInvalidPostURL = errors.New("invalid Instagram URL format")

	// ErrUpstreamLookup is matched by every post-metadata lookup failure.
	ErrUpstreamLookup = errors.New("post lookup failed")

	// ErrPostNotFound is returned when the post is private, deleted or never existed.
	ErrPostNotFound = errors.New("post not found or not public")

	// ErrRateLimited is returned when rate limited by Instagram.
	ErrRateLimited = errors.New("rate limited")

	// ErrNoMedia is returned when post metadata carries no usable media URL.
	ErrNoMedia = errors.New("post has no media")
)

// LookupError wraps a post-metadata lookup failure with the shortcode it was for.
type LookupError struct {
	Shortcode Shortcode
	Err       error
}

func (e *LookupError) Error() string {
	if e.Shortcode != "" {
		return fmt.Sprintf("lookup post [%s]: %v", e.Shortcode, e.Err)
	}
	return "lookup post: " + e.Err.Error()
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Is makes every LookupError match ErrUpstreamLookup.
func (e *LookupError) Is(target error) bool {
	return target == ErrUpstreamLookup
}

// NewLookupError creates a new LookupError.
func NewLookupError(shortcode Shortcode, err error) *LookupError {
	return &LookupError{
		Shortcode: shortcode,
		Err:       err,
	}
}
