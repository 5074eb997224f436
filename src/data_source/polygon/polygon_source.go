package polygon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"candle-stream/src/helpers"
	"candle-stream/src/logger"
	"candle-stream/src/metrics"
	"candle-stream/src/models"

	"github.com/gorilla/websocket"
)

const (
	SourceName     = "polygon"
	DefaultURL     = "wss://socket.polygon.io/stocks"
	DefaultBackoff = 5 * time.Second
	writeWait      = 5 * time.Second
)

// command is the upstream auth and subscribe message.
type command struct {
	Action string `json:"action"`
	Params string `json:"params"`
}

// -----------------------------------------------------------------------------

// Source streams trades from a Polygon-style WebSocket.
// Session states: disconnected -> connecting -> auth_pending -> subscribed.
// Any close or error returns to disconnected and a reconnect is scheduled
// after a fixed delay.
type Source struct {
	Logger         *logger.Logger
	URL            string
	APIKey         string
	Symbols        []string
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer

	// OnStateChange, when set, is called on every transition. Set it before Start.
	OnStateChange func(models.FeedState)

	// OnAuthenticated, when set, runs after auth_success.
	OnAuthenticated func()

	state  atomic.Int32
	errors *helpers.ErrorHandler
	mu     sync.Mutex
}

// -----------------------------------------------------------------------------

func NewSource(cfg models.MFeedConfig, symbols []string, l *logger.Logger) *Source {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	delay := time.Duration(cfg.ReconnectDelaySeconds) * time.Second
	if delay <= 0 {
		delay = DefaultBackoff
	}
	return &Source{
		Logger:         l,
		URL:            url,
		APIKey:         cfg.APIKey,
		Symbols:        append([]string(nil), symbols...),
		ReconnectDelay: delay,
		Dialer:         websocket.DefaultDialer,
		errors:         helpers.NewErrorHandler(l),
	}
}

// -----------------------------------------------------------------------------

func (s *Source) Name() string { return SourceName }

func (s *Source) IsRealTime() bool { return true }

func (s *Source) State() models.FeedState {
	return models.FeedState(s.state.Load())
}

func (s *Source) setState(st models.FeedState) {
	if models.FeedState(s.state.Swap(int32(st))) == st {
		return
	}
	metrics.FeedState.WithLabelValues(SourceName).Set(float64(st))
	s.Logger.Debug("Feed state -> %s", st)
	if s.OnStateChange != nil {
		s.OnStateChange(st)
	}
}

// -----------------------------------------------------------------------------

// Start begins the connect/reconnect loop. It returns immediately.
func (s *Source) Start(ctx context.Context, outputChan chan<- models.MTradeTick, wg *sync.WaitGroup) error {
	if s.APIKey == "" {
		return helpers.NewConfigurationError("polygon source requires an API key", nil)
	}

	wg.Add(1)
	go s.runLoop(ctx, outputChan, wg)
	s.Logger.Info("Started %s source for %d symbols", SourceName, len(s.Symbols))
	return nil
}

// -----------------------------------------------------------------------------

func (s *Source) runLoop(ctx context.Context, outputChan chan<- models.MTradeTick, wg *sync.WaitGroup) {
	defer wg.Done()
	defer s.setState(models.FeedDisconnected)

	for {
		err := s.session(ctx, outputChan)
		s.setState(models.FeedDisconnected)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			s.errors.Handle(err, "polygon session")
		} else {
			s.Logger.Info("Disconnected from upstream")
		}
		s.Logger.Info("Reconnecting in %v", s.ReconnectDelay)
		metrics.FeedReconnects.WithLabelValues(SourceName).Inc()

		select {
		case <-time.After(s.ReconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

// -----------------------------------------------------------------------------

// session runs one connection until it closes. A nil error means the peer closed cleanly
// or ctx was cancelled.
func (s *Source) session(ctx context.Context, outputChan chan<- models.MTradeTick) error {
	s.setState(models.FeedConnecting)

	conn, _, err := s.Dialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return helpers.NewFeedError("dial "+s.URL, err)
	}
	defer conn.Close()
	s.Logger.Info("Connected to %s", s.URL)

	// Close connection on context cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.write(conn, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		case <-done:
		}
	}()

	if err := s.writeJSON(conn, command{Action: "auth", Params: s.APIKey}); err != nil {
		return helpers.NewFeedError("send auth", err)
	}
	s.setState(models.FeedAuthPending)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				return nil
			}
			return helpers.NewFeedError("read", err)
		}

		events, err := DecodeFrame(msg)
		if err != nil {
			metrics.MalformedMessages.WithLabelValues("upstream").Inc()
			s.errors.Handle(helpers.NewMessageError("upstream frame", err), "polygon decode")
		}

		for _, ev := range events {
			if err := s.handleEvent(ctx, conn, ev, outputChan); err != nil {
				return err
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (s *Source) handleEvent(ctx context.Context, conn *websocket.Conn, ev Event, outputChan chan<- models.MTradeTick) error {
	switch e := ev.(type) {
	case StatusEvent:
		s.Logger.Info("Upstream status %s: %s", e.Status, e.Message)
		switch e.Status {
		case StatusAuthSuccess:
			if err := s.subscribeAll(conn); err != nil {
				return err
			}
			s.setState(models.FeedSubscribed)
			if s.OnAuthenticated != nil {
				s.OnAuthenticated()
			}
		case StatusAuthFailed:
			s.Logger.Error("Upstream rejected credentials: %s", e.Message)
		}

	case TradeEvent:
		tick := models.MTradeTick{
			Symbol:    e.Symbol,
			Price:     e.Price,
			Size:      e.Size,
			Timestamp: e.Timestamp,
		}
		select {
		case outputChan <- tick:
		case <-ctx.Done():
		}

	case QuoteEvent:
		// Quotes do not feed candles.

	case UnknownEvent:
		s.Logger.Debug("Ignoring upstream event %q", e.Ev)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *Source) subscribeAll(conn *websocket.Conn) error {
	for _, sym := range s.Symbols {
		if err := s.writeJSON(conn, command{Action: "subscribe", Params: "T." + sym}); err != nil {
			return helpers.NewFeedError(fmt.Sprintf("subscribe %s", sym), err)
		}
	}
	s.Logger.Info("Subscribed to trades for %v", s.Symbols)
	return nil
}

// -----------------------------------------------------------------------------

// gorilla connections allow one concurrent writer; the cancel goroutine also writes.
func (s *Source) writeJSON(conn *websocket.Conn, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

func (s *Source) write(conn *websocket.Conn, messageType int, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(messageType, data)
}
