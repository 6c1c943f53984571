package types

import "errors"

// Sentinel errors for consistent error handling across the application.
// These errors can be checked with errors.Is() for type-safe error handling.
var (
	// Browser lifecycle errors
	ErrBrowserLaunch       = errors.New("browser failed to launch")
	ErrBrowserConnect      = errors.New("failed to connect to browser")
	ErrBrowserCloseTimeout = errors.New("browser close timed out")
	ErrPageCreate          = errors.New("failed to create page")

	// Request errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidURL     = errors.New("invalid URL")
	ErrURLRequired    = errors.New("url is required")

	// Extraction errors
	ErrNoMedia          = errors.New("no media found in post")
	ErrInvalidPostID    = errors.New("could not extract a valid post id from URL")
	ErrEmbedParse       = errors.New("embed payload could not be parsed")
	ErrNoVideoFrame     = errors.New("no decoded video frame appeared in time")
	ErrNotAnImage       = errors.New("response was not an image")
	ErrExtractionFailed = errors.New("all extraction strategies failed")
)

// LaunchError wraps a browser launch failure. Launch failures are fatal for
// the current attempt and surface to the retry controller unchanged.
type LaunchError struct {
	Stage   string // "launch", "connect" or "page"
	Message string
	Err     error
}

// Error implements the error interface.
func (e *LaunchError) Error() string {
	msg := "browser " + e.Stage + " failed: " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the stage sentinel and the underlying cause, so
// errors.Is matches either.
func (e *LaunchError) Unwrap() []error {
	sentinel := ErrBrowserLaunch
	switch e.Stage {
	case "connect":
		sentinel = ErrBrowserConnect
	case "page":
		sentinel = ErrPageCreate
	}
	if e.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Err}
}

// NewLaunchError creates an error for a browser launch failure. err carries
// the concrete cause and may be nil for timeouts.
func NewLaunchError(stage, message string, err error) *LaunchError {
	return &LaunchError{Stage: stage, Message: message, Err: err}
}

// ExtractionError describes a failed media extraction pipeline. The pipeline
// name identifies which extractor gave up; callers fall through to the next
// strategy on any ExtractionError.
type ExtractionError struct {
	Pipeline string // "twitter", "instagram", "video", "image"
	URL      string
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	return e.Pipeline + " extraction failed: " + e.Message
}

// Unwrap returns the underlying error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError creates an error for an extraction pipeline failure.
func NewExtractionError(pipeline, url, message string, err error) *ExtractionError {
	return &ExtractionError{
		Pipeline: pipeline,
		URL:      url,
		Message:  message,
		Err:      err,
	}
}
