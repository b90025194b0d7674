package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeLocatorNotFound represents a locator chain with no match
	ErrorTypeLocatorNotFound ErrorType = "locator_not_found"
	// ErrorTypeWaitTimeout represents a bounded wait that elapsed
	ErrorTypeWaitTimeout ErrorType = "wait_timeout"
	// ErrorTypeExtraction represents a failure while extracting a listing item
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeStorage represents catalog or history file errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeNavigation represents an unreachable site or a broken browser session
	ErrorTypeNavigation ErrorType = "navigation"
	// ErrorTypeRateLimit represents a site that is backed off
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// CrawlerError represents a scraper-specific error
type CrawlerError struct {
	Type    ErrorType
	Site    string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Site, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Site, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *CrawlerError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeWaitTimeout, ErrorTypeNavigation:
		return true
	default:
		return false
	}
}

// IsType reports whether err wraps a CrawlerError of the given type
func IsType(err error, errType ErrorType) bool {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.Type == errType
	}
	return false
}

// New creates a new CrawlerError
func New(errType ErrorType, site, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:    errType,
		Site:    site,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewLocatorNotFound creates a new locator error
func NewLocatorNotFound(site, target string) *CrawlerError {
	return New(ErrorTypeLocatorNotFound, site, "no candidate matched "+target, nil)
}

// NewWaitTimeout creates a new wait timeout error
func NewWaitTimeout(site, message string, timeout time.Duration) *CrawlerError {
	return New(ErrorTypeWaitTimeout, site, fmt.Sprintf("%s (after %v)", message, timeout), nil)
}

// NewExtraction creates a new extraction error
func NewExtraction(site, message string, err error) *CrawlerError {
	return New(ErrorTypeExtraction, site, message, err)
}

// NewStorage creates a new storage error
func NewStorage(site, message string, err error) *CrawlerError {
	return New(ErrorTypeStorage, site, message, err)
}

// NewNavigation creates a new navigation error
func NewNavigation(site, message string, err error) *CrawlerError {
	return New(ErrorTypeNavigation, site, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(site string, duration time.Duration) *CrawlerError {
	message := fmt.Sprintf("backed off for %v", duration)
	return New(ErrorTypeRateLimit, site, message, nil)
}

// NewCache creates a new cache error
func NewCache(site, message string, err error) *CrawlerError {
	return New(ErrorTypeCache, site, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(site, message string, err error) *CrawlerError {
	return New(ErrorTypePublisher, site, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, "", message, err)
}
