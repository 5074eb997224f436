package helpers

import (
	"errors"
	"fmt"
	"sync/atomic"

	"candle-stream/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type CandleStreamError struct {
	Message string
	Cause   error
}

func (e *CandleStreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CandleStreamError) Unwrap() error {
	return e.Cause
}

// Distinct error kinds so callers can errors.As on the failure class.
type ConfigurationError struct{ CandleStreamError }
type FeedError struct{ CandleStreamError }
type MessageError struct{ CandleStreamError }
type SubscriptionError struct{ CandleStreamError }

func NewFeedError(msg string, cause error) error {
	return &FeedError{CandleStreamError{Message: msg, Cause: cause}}
}

func NewMessageError(msg string, cause error) error {
	return &MessageError{CandleStreamError{Message: msg, Cause: cause}}
}

func NewSubscriptionError(msg string, cause error) error {
	return &SubscriptionError{CandleStreamError{Message: msg, Cause: cause}}
}

func NewConfigurationError(msg string, cause error) error {
	return &ConfigurationError{CandleStreamError{Message: msg, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler logs recoverable errors by class and keeps a running count.
type ErrorHandler struct {
	Logger *logger.Logger
	count  atomic.Int64
}

func NewErrorHandler(l *logger.Logger) *ErrorHandler {
	if l == nil {
		l = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{Logger: l}
}

// -----------------------------------------------------------------------------

// Count returns how many errors have been handled. Safe from any goroutine.
func (e *ErrorHandler) Count() int64 {
	return e.count.Load()
}

// -----------------------------------------------------------------------------

// Handle logs err (if any) under context. Malformed messages and rejected
// subscriptions are expected traffic and log at WARNING; everything else is ERROR.
func (e *ErrorHandler) Handle(err error, context string) {
	if err == nil {
		return
	}
	e.count.Add(1)

	var msgErr *MessageError
	var subErr *SubscriptionError
	switch {
	case errors.As(err, &msgErr), errors.As(err, &subErr):
		e.Logger.Warning("%s: %v", context, err)
	default:
		e.Logger.Error("Error in %s: %v", context, err)
	}
}
