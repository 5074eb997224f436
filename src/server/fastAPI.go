package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"candle-stream/src/interfaces"
	"candle-stream/src/logger"
	"candle-stream/src/models"
	"candle-stream/src/registry"
	"candle-stream/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config     *models.MConfig
	Logger     *logger.Logger
	engine     *gin.Engine
	httpServer *http.Server

	hub      *Hub
	history  *utils.CandleHistory
	registry *registry.SymbolRegistry
	feed     interfaces.IDataSource
	market   *utils.MarketScheduler
}

var _ interfaces.IDataExchanger = (*FastAPIServer)(nil)

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, l *logger.Logger, hub *Hub, history *utils.CandleHistory,
	reg *registry.SymbolRegistry, feed interfaces.IDataSource, market *utils.MarketScheduler) *FastAPIServer {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:   cfg,
		Logger:   l,
		engine:   gin.New(),
		hub:      hub,
		history:  history,
		registry: reg,
		feed:     feed,
		market:   market,
	}
	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: s.engine,
	}
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/symbols", s.getSymbols)
	s.engine.GET("/api/candles/:symbol", s.getCandles)
	s.engine.GET("/api/metrics", s.getMetrics)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoints; the root path also accepts viewers
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router for httptest.
func (s *FastAPIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start blocks serving HTTP until Stop.
func (s *FastAPIServer) Start() error {
	s.Logger.Info("Starting server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop refuses new connections; open viewers are closed by the hub on shutdown.
func (s *FastAPIServer) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	stats := s.stats()
	body := gin.H{
		"status":      "ok",
		"connections": stats.Viewers,
		"feed":        stats.FeedName,
		"feed_state":  stats.FeedState,

		"symbols_with_data": s.history.SymbolCount(),
	}
	if s.market != nil {
		body["market"] = s.market.Status()
	}
	c.JSON(http.StatusOK, body)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getSymbols(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"symbols": s.registry.Symbols()})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getCandles(c *gin.Context) {
	symbol := c.Param("symbol")
	if !s.registry.Contains(symbol) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown symbol %q", symbol)})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"candles": s.history.GetCandles(symbol, limit),
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.stats())
}

func (s *FastAPIServer) stats() models.MStreamStats {
	stats := s.hub.Stats()
	if s.feed != nil {
		stats.FeedName = s.feed.Name()
		stats.FeedState = s.feed.State().String()
	}
	return stats
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) handleRoot(c *gin.Context) {
	if websocket.IsWebSocketUpgrade(c.Request) {
		s.handleWebSocket(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": s.Config.Name, "websocket": "/ws"})
}

func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := NewClient(s.hub, conn, s.Config.Viewer)
	if !s.hub.Register(client) {
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}
