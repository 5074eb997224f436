package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"candle-stream/src/analysis"
	"candle-stream/src/config"
	datasource "candle-stream/src/data_source"
	"candle-stream/src/data_source/polygon"
	"candle-stream/src/grpc_control"
	"candle-stream/src/interfaces"
	"candle-stream/src/logger"
	"candle-stream/src/registry"
	"candle-stream/src/server"
	"candle-stream/src/subscription"
	"candle-stream/src/utils"
)

const shutdownTimeout = 5 * time.Second

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "", "path to config file (defaults only when empty)")
	flag.Parse()

	// Load config from YAML file, then env
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(config.MConfig, config.Name)

	// 1. Core components
	reg := registry.New(config.Symbols)
	aggregator := analysis.NewCandleAggregator(reg, config.CandleIntervalMs, appLogger.Named("Aggregator"))
	directory := subscription.NewDirectory[*server.Client](reg)
	history := utils.NewCandleHistory(config.HistorySize, config.CandleIntervalMs, appLogger.Named("History"))
	market := utils.NewMarketScheduler(utils.DefaultMIC, appLogger)

	hub := server.NewHub(aggregator, directory, history, appLogger.Named("Hub"))

	// 2. Feed source
	source := datasource.NewFeedSource(config, reg, appLogger)

	// 3. gRPC health
	var control *grpc_control.ControlService
	if config.GrpcPort != 0 {
		control = grpc_control.NewControlService(config, appLogger.Named("ControlService"))
		if live, ok := source.(*polygon.Source); ok {
			live.OnStateChange = control.SetFeedState
			live.OnAuthenticated = func() {
				appLogger.Info("US market is %s", market.Status())
			}
		}
	}

	var srv interfaces.IDataExchanger = server.NewFastAPIServer(config.MConfig, appLogger, hub, history, reg, source, market)

	// 4. Run
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	wg := &sync.WaitGroup{}
	if err := source.Start(ctx, hub.Ticks(), wg); err != nil {
		appLogger.Critical("Failed to start source: %v", err)
	}
	if control != nil {
		control.SetFeedState(source.State())
		go func() {
			if err := control.Start(); err != nil {
				appLogger.Error("gRPC server failed: %v", err)
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	appLogger.Info("Serving %d symbols with %s feed, %dms candles", reg.Len(), source.Name(), config.CandleIntervalMs)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
		appLogger.Info("Shutting down...")
	case err := <-serverErr:
		if err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}

	// 5. Shutdown: stop accepting, stop the feed, close viewers
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		appLogger.Warning("HTTP shutdown: %v", err)
	}
	if control != nil {
		control.Stop()
	}

	cancel()
	wg.Wait()
	<-hubDone
	appLogger.Info("Stopped")
}
