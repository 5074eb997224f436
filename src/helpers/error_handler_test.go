package helpers

import (
	"errors"
	"io"
	"testing"

	"candle-stream/src/logger"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindsUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewFeedError("dial upstream", cause)

	var feedErr *FeedError
	assert.True(t, errors.As(err, &feedErr))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "dial upstream: boom", err.Error())

	var msgErr *MessageError
	assert.False(t, errors.As(err, &msgErr))
}

func TestErrorWithoutCause(t *testing.T) {
	err := NewSubscriptionError("unknown symbol", nil)
	assert.Equal(t, "unknown symbol", err.Error())
}

func TestHandleCounts(t *testing.T) {
	h := NewErrorHandler(logger.NewLoggerWithWriter(io.Discard, "ERROR", "test"))

	h.Handle(nil, "noop")
	h.Handle(NewMessageError("bad json", errors.New("eof")), "viewer")
	h.Handle(errors.New("other"), "feed")
	assert.Equal(t, int64(2), h.Count())
}
