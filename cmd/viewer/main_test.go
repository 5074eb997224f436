package main

import (
	"testing"

	"candle-stream/src/models"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	line := render(models.MCandleSnapshot{
		Symbol: "JOBY", Timestamp: 30_000, Open: 6.5, High: 6.55, Low: 6.5, Close: 6.55, Volume: 150, IsLive: true,
	})
	assert.Equal(t, "* JOBY  00:00:30  O     6.50  H     6.55  L     6.50  C     6.55  V        150", line)

	final := render(models.MCandleSnapshot{Symbol: "VXX"})
	assert.Equal(t, byte(' '), final[0])
}

func TestGetEnv(t *testing.T) {
	t.Setenv("SYMBOL", "ACHR")
	assert.Equal(t, "ACHR", getEnv("SYMBOL", "JOBY"))
	assert.Equal(t, "fallback", getEnv("CANDLE_STREAM_UNSET_VAR", "fallback"))
}
