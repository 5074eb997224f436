package polygon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrameMixedEvents(t *testing.T) {
	frame := []byte(`[
		{"ev":"status","status":"auth_success","message":"authenticated"},
		{"ev":"T","sym":"JOBY","p":6.51,"s":120,"t":1700000000123},
		{"ev":"Q","sym":"JOBY","bp":6.5,"ap":6.52},
		{"ev":"AM","sym":"JOBY"}
	]`)

	events, err := DecodeFrame(frame)
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, StatusEvent{Status: StatusAuthSuccess, Message: "authenticated"}, events[0])

	trade, ok := events[1].(TradeEvent)
	require.True(t, ok)
	assert.Equal(t, "JOBY", trade.Symbol)
	assert.True(t, decimal.RequireFromString("6.51").Equal(trade.Price))
	assert.Equal(t, int64(120), trade.Size)
	assert.Equal(t, int64(1700000000123), trade.Timestamp)

	assert.Equal(t, evQuote, events[2].Kind())
	assert.Equal(t, UnknownEvent{Ev: "AM"}, events[3])
}

func TestDecodeFrameSkipsBadElements(t *testing.T) {
	frame := []byte(`[{"ev":"T","sym":"JOBY","p":"oops"},{"ev":"T","p":1,"s":1,"t":1},{"ev":"T","sym":"ACHR","p":4.2,"s":5,"t":9}]`)

	events, err := DecodeFrame(frame)
	assert.Error(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ACHR", events[0].(TradeEvent).Symbol)
}

func TestDecodeFrameSingleObject(t *testing.T) {
	events, err := DecodeFrame([]byte(`{"ev":"status","status":"connected","message":"Connected Successfully"}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "connected", events[0].(StatusEvent).Status)
}

func TestDecodeFrameRejectsGarbage(t *testing.T) {
	for _, in := range []string{"not json", "42", `"str"`, ""} {
		events, err := DecodeFrame([]byte(in))
		assert.Error(t, err, in)
		assert.Empty(t, events, in)
	}
}
