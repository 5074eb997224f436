package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"time"

	"candle-stream/src/logger"
	"candle-stream/src/models"

	"github.com/gorilla/websocket"
)

// Command viewer subscribes to one symbol and prints every snapshot it receives.
func main() {
	addr := flag.String("addr", getEnv("SERVER_ADDR", "localhost:3002"), "server host:port")
	symbol := flag.String("symbol", getEnv("SYMBOL", "JOBY"), "symbol to watch")
	level := flag.String("log-level", "INFO", "log level")
	flag.Parse()

	log := logger.NewLoggerWithWriter(os.Stderr, *level, "viewer")

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Critical("dial %s: %v", u.String(), err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(models.MViewerCommand{Action: models.ActionSubscribe, Symbol: *symbol}); err != nil {
		log.Critical("subscribe: %v", err)
	}
	log.Info("Watching %s on %s", *symbol, u.String())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				log.Info("Connection closed: %v", err)
				return
			}
			var snap models.MCandleSnapshot
			if err := json.Unmarshal(msg, &snap); err != nil {
				log.Warning("Unexpected message: %s", msg)
				continue
			}
			fmt.Println(render(snap))
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	select {
	case <-done:
	case <-interrupt:
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

// render formats one snapshot as a single line; live candles are marked with '*'.
func render(s models.MCandleSnapshot) string {
	mark := " "
	if s.IsLive {
		mark = "*"
	}
	ts := time.UnixMilli(s.Timestamp).UTC().Format("15:04:05")
	return fmt.Sprintf("%s %-5s %s  O %8.2f  H %8.2f  L %8.2f  C %8.2f  V %10d",
		mark, s.Symbol, ts, s.Open, s.High, s.Low, s.Close, s.Volume)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
