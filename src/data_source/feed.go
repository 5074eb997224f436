package datasource

import (
	"candle-stream/src/config"
	"candle-stream/src/data_source/polygon"
	"candle-stream/src/data_source/synthetic"
	"candle-stream/src/interfaces"
	"candle-stream/src/logger"
	"candle-stream/src/registry"
)

// NewFeedSource picks the tick producer: the live upstream when an API key is
// configured, otherwise the synthetic random walk. Exactly one runs per process.
func NewFeedSource(cfg *config.Config, reg *registry.SymbolRegistry, l *logger.Logger) interfaces.IDataSource {
	if cfg.UseLiveFeed() {
		l.Info("API key found, streaming live trades from %s", cfg.Feed.URL)
		src := polygon.NewSource(cfg.Feed, reg.Symbols(), l.Named(polygon.SourceName))
		src.ReconnectDelay = cfg.ReconnectDelay()
		return src
	}

	l.Warning("No API key configured, falling back to synthetic data")
	return synthetic.NewSource(reg, cfg.TickInterval(), cfg.CandleIntervalMs, l.Named(synthetic.SourceName))
}
