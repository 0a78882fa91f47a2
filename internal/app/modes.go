package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/emmatheo/polyscop/internal/analytics"
	"github.com/emmatheo/polyscop/internal/domain"
	"github.com/emmatheo/polyscop/internal/feed"
	"github.com/emmatheo/polyscop/internal/pipeline"
	"github.com/emmatheo/polyscop/internal/platform/polymarket"
	"github.com/emmatheo/polyscop/internal/server"
	"github.com/emmatheo/polyscop/internal/server/handler"
	"github.com/emmatheo/polyscop/internal/server/ws"
	"github.com/emmatheo/polyscop/internal/service"
)

// services are the read-side services shared by the HTTP API and the
// websocket sessions.
type services struct {
	data     *polymarket.DataClient
	trades   *service.TradeService
	prices   *service.PriceService
	traders  *service.TraderService
	wallets  *service.WalletService
	markets  *service.MarketService
	insights *service.InsightService
}

func (a *App) buildServices(deps *Dependencies) *services {
	up := a.cfg.Upstream
	eng := a.cfg.Engine

	data := polymarket.NewDataClient(up.DataAPIURL, up.Timeout.Duration, a.logger)
	if up.ResolveOutcome {
		data.WithResolver(polymarket.NewGammaClient(up.GammaURL, up.Timeout.Duration))
	}

	trades := service.NewTradeService(data, deps.TradeCache, service.TradeServiceConfig{
		FetchLimit:  up.FetchLimit,
		MinAmount:   up.MinAmount,
		SnapshotTTL: up.SnapshotTTL.Duration,
	}, a.logger)
	prices := service.NewPriceService(deps.PriceCache, eng.UnrealizedEstimator, eng.UnrealizedMarkup, a.logger)

	agg := analytics.NewTraderAggregator(eng.WhaleThreshold, analytics.TraderFilter{
		MinProfit:      eng.MinProfit,
		MinWhaleTrades: eng.MinWhaleTrades,
		MinVolume:      eng.MinVolume,
		SortBy:         analytics.RankBy(eng.RankBy),
		Limit:          eng.TopTraders,
	})
	agg.Window = eng.Window.Duration

	return &services{
		data:     data,
		trades:   trades,
		prices:   prices,
		traders:  service.NewTraderService(trades, deps.TradeStore, prices, *agg, eng.WalletScanLimit, a.logger),
		wallets:  service.NewWalletService(trades, deps.TradeStore, prices, eng.WalletScanLimit),
		markets:  service.NewMarketService(trades, eng.WhaleThreshold, eng.TopMarkets),
		insights: service.NewInsightService(trades, eng.MomentumWindow, eng.HugeWhaleThreshold),
	}
}

// ServeMode runs the HTTP API and the websocket distributor.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, a.buildServices(deps))
	return g.Wait()
}

// IngestMode runs the ingest pipeline only.
func (a *App) IngestMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting ingest mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startPipeline(ctx, g, deps, a.buildServices(deps))
	return g.Wait()
}

// AllMode runs the pipeline next to the HTTP API and websocket distributor.
func (a *App) AllMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting all mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)
	a.startPipeline(ctx, g, deps, svcs)
	a.startHTTPServer(ctx, g, deps, svcs)
	return g.Wait()
}

// WatchMode consumes a remote /ws stream and logs the whale trades that pass
// the configured filter.
func (a *App) WatchMode(ctx context.Context) error {
	rc := a.cfg.Reconnect
	cats := make([]domain.Category, 0, len(rc.Categories))
	for _, c := range rc.Categories {
		if cat, ok := domain.ParseCategory(c); ok {
			cats = append(cats, cat)
		} else {
			a.logger.Warn("ignoring unknown category filter", slog.String("category", c))
		}
	}

	sub := feed.NewSubscriber(feed.SubscriberConfig{
		URL: rc.StreamURL,
		Backoff: feed.Backoff{
			Base:       rc.BaseDelay.Duration,
			Max:        rc.MaxDelay.Duration,
			Jitter:     rc.Jitter,
			MaxRetries: rc.MaxRetries,
		},
		History: rc.History,
		Filter:  feed.Filter{Categories: cats, MinAmount: rc.MinAmount},
	}, a.logger)
	sub.OnTrade(func(t domain.Trade) {
		a.logger.Info("whale trade",
			slog.String("wallet", t.Wallet),
			slog.String("market", t.Market),
			slog.String("side", string(t.Side)),
			slog.String("outcome", string(t.Outcome)),
			slog.Float64("amount", t.Amount),
			slog.String("category", string(t.Category)),
		)
	})

	a.logger.InfoContext(ctx, "starting watch mode", slog.String("url", rc.StreamURL))
	err := sub.Run(ctx)
	a.logger.Info("watch mode stopped",
		slog.Int("reconnects", sub.Reconnects()),
		slog.Int("buffered_trades", len(sub.Trades())),
	)
	return err
}

// startHTTPServer registers the server and the websocket hub on g. The server
// is shut down gracefully when ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	rt := a.cfg.Realtime
	hub := ws.NewHub(svcs.trades, ws.SessionConfig{
		Interval:       rt.Interval.Duration,
		FetchLimit:     rt.FetchLimit,
		MinAmount:      a.cfg.Engine.WhaleThreshold,
		WhaleThreshold: a.cfg.Engine.WhaleThreshold,
		TopMarkets:     a.cfg.Engine.TopMarkets,
		HistoryPoints:  rt.HistoryPoints,
		TrackedMarkets: rt.TrackedMarkets,
	}, a.logger)

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(deps.Checks, a.logger),
		Trades:   handler.NewTradeHandler(svcs.trades, a.logger),
		Traders:  handler.NewTraderHandler(svcs.traders, a.logger),
		Wallets:  handler.NewWalletHandler(svcs.wallets, a.logger),
		Markets:  handler.NewMarketHandler(svcs.markets, a.logger),
		Insights: handler.NewInsightHandler(svcs.insights, a.logger),
	}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startPipeline registers the ingest orchestrator on g.
func (a *App) startPipeline(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	var buffer *pipeline.Buffer
	var archiver *pipeline.Archiver
	if deps.Archive != nil {
		buffer = pipeline.NewBuffer(100000)
		archiver = pipeline.NewArchiver(deps.Archive, buffer, a.cfg.Archive.Interval.Duration, a.logger)
	}

	pd := pipeline.Deps{
		Source:    svcs.data,
		Prices:    svcs.prices,
		Notifier:  deps.Notifier,
		Locks:     deps.LockManager,
		Buffer:    buffer,
		Trades:    deps.TradeStore,
		Positions: deps.PositionStore,
		Bus:       deps.SignalBus,
	}
	ingestor := pipeline.NewIngestor(pd, pipeline.IngestorConfig{
		FetchLimit:         a.cfg.Upstream.FetchLimit,
		MinAmount:          a.cfg.Upstream.MinAmount,
		WhaleThreshold:     a.cfg.Engine.WhaleThreshold,
		HugeWhaleThreshold: a.cfg.Engine.HugeWhaleThreshold,
		Interval:           a.cfg.Upstream.PollInterval.Duration,
	}, a.logger)

	orch := pipeline.NewOrchestrator(ingestor, archiver, a.logger)
	g.Go(func() error {
		return orch.Run(ctx)
	})
}

func (a *App) backfill(ctx context.Context, deps *Dependencies, from, to time.Time) (int64, error) {
	if deps.Archive == nil {
		return 0, fmt.Errorf("app: backfill needs archive.enabled and s3.bucket")
	}
	if deps.TradeStore == nil {
		return 0, fmt.Errorf("app: backfill needs postgres")
	}
	return pipeline.Backfill(ctx, deps.Archive, deps.TradeStore, from, to, a.logger)
}
