// Package capture drives a headless browser to produce deterministic
// full-page screenshots and DOM snapshots with computed styles.
package capture

import "fmt"

// NavigationError indicates the target URL could not be reached or the
// page load failed outright.
type NavigationError struct {
	URL     string
	Message string
	Cause   error
}

func (e *NavigationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("navigation error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("navigation error for %s: %s", e.URL, e.Message)
}

func (e *NavigationError) Unwrap() error {
	return e.Cause
}

// RenderTimeoutError indicates the page never reached a stable state
// within the bounded wait.
type RenderTimeoutError struct {
	URL     string
	Timeout string
	Cause   error
}

func (e *RenderTimeoutError) Error() string {
	return fmt.Sprintf("render timeout for %s after %s", e.URL, e.Timeout)
}

func (e *RenderTimeoutError) Unwrap() error {
	return e.Cause
}
