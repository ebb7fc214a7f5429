// Command engine is the composition root: it wires the exchange client,
// DataStore, detectors, SignalEngine, OutcomeTracker, Scheduler, Filter, and
// storage adapter together and runs until an interrupt or SIGTERM.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"marketpulse/internal/clock"
	appconfig "marketpulse/internal/config"
	"marketpulse/internal/detectors"
	"marketpulse/internal/exchange"
	"marketpulse/internal/filter"
	"marketpulse/internal/logging"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
	"marketpulse/internal/outcome"
	"marketpulse/internal/predictor"
	"marketpulse/internal/scheduler"
	"marketpulse/internal/signalengine"
	"marketpulse/internal/snapshot"
	"marketpulse/internal/storage"
)

func main() {
	cfg, err := appconfig.Load("config.json")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		Output:     cfg.Logging.Output,
		JSONFormat: cfg.Logging.JSONFormat,
		Component:  "engine",
	})
	logging.SetDefault(logger)
	logger.Info("structured logging initialized")

	sys := clock.NewSystem()
	store := marketstore.New(sys, marketstore.DefaultConfig())

	var streamClient exchange.Client
	if cfg.Exchange.MockMode {
		streamClient = exchange.NewMockClient()
		logger.Info("exchange mock mode enabled")
	} else {
		ws := exchange.NewWSStreamClient(cfg.Exchange.BaseURL, logger)
		rest := exchange.NewRESTHTTPClient(cfg.Exchange.BaseURL, logger)
		streamClient = combinedClient{StreamClient: ws, RESTClient: rest}
	}

	volatilityCfg := detectors.DefaultVolatilityConfig()
	if cfg.Volatility.MinChange24h > 0 {
		volatilityCfg.MinThreshold = cfg.Volatility.MinChange24h
	}
	if cfg.Volatility.CriticalChange24h > 0 {
		volatilityCfg.CriticalThreshold = cfg.Volatility.CriticalChange24h
	}
	volatility := detectors.NewVolatilityDetector(store, sys, volatilityCfg)

	volumeCfg := detectors.DefaultVolumeConfig()
	if cfg.Volume.SpikeMultiplier > 0 {
		volumeCfg.SpikeMultiplier = cfg.Volume.SpikeMultiplier
	}
	if cfg.Volume.MinQuoteVolume > 0 {
		volumeCfg.MinQuoteVol24h = cfg.Volume.MinQuoteVolume
	}
	volume := detectors.NewVolumeDetector(store, sys, volumeCfg)

	velocityCfg := detectors.DefaultVelocityConfig()
	if cfg.Velocity.MinVelocity > 0 {
		velocityCfg.MinVelocityPctPerMin = cfg.Velocity.MinVelocity
	}
	velocity := detectors.NewVelocityDetector(store, sys, velocityCfg)
	funding := detectors.NewFundingDetector(store, streamClient, sys, detectors.DefaultFundingConfig())
	openInterest := detectors.NewOpenInterestDetector(store, streamClient, sys, detectors.DefaultOpenInterestConfig())
	mtf := detectors.NewMultiTimeframeDetector(store, streamClient, sys, detectors.DefaultMultiTimeframeConfig())
	pattern := detectors.NewPatternDetector(store, streamClient, sys, detectors.DefaultPatternConfig())
	entryTiming := detectors.NewEntryTimingDetector(store, streamClient, sys, detectors.DefaultEntryTimingConfig())
	whale := detectors.NewWhaleDetector(store, sys, detectors.DefaultWhaleConfig())
	correlation := detectors.NewCorrelationDetector(store, sys, detectors.DefaultCorrelationConfig())
	liquidation := detectors.NewLiquidationDetector(store, sys, detectors.DefaultLiquidationConfig())
	rangeCfg := detectors.DefaultRangeConfig()
	if cfg.Range.MinRange > 0 {
		rangeCfg.MinRangePct = cfg.Range.MinRange
	}
	rangeDetector := detectors.NewRangeDetector(store, sys, rangeCfg)
	newListing := detectors.NewNewListingDetector(store, sys)
	topPicker := detectors.NewTopPickerDetector(volatility, volume, whale, pattern, entryTiming, sys, detectors.DefaultTopPickerConfig())
	sentiment := detectors.NewSentimentDetector(store, funding, openInterest, sys, detectors.DefaultSentimentConfig())

	var predictorClient predictor.Client
	if cfg.Predictor.Enabled && cfg.Predictor.BaseURL != "" {
		httpClient := predictor.NewHTTPClient(cfg.Predictor.BaseURL, logger)
		redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
		predictorClient = predictor.NewCachingClient(httpClient, redisClient, logger)
		logger.Info("predictor enabled", "baseURL", cfg.Predictor.BaseURL)
	}

	engine := signalengine.NewEngine(store, volatility, volume, velocity, funding, openInterest, mtf, predictorClient, sys, signalengine.Config{
		MLBlend: signalengine.MLBlendConfig{MLWeight: cfg.ML.MLWeight, RuleWeight: cfg.ML.RuleWeight},
	})
	engine.SetAuxDetectors(pattern, whale, correlation)

	var persistStore storage.Store = storage.NewMemory()
	var pg *storage.Postgres
	if cfg.Storage.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err = storage.NewPostgres(ctx, storage.Config{
			Host: cfg.Storage.Host, Port: cfg.Storage.Port, User: cfg.Storage.User,
			Password: cfg.Storage.Password, Database: cfg.Storage.Database, SSLMode: cfg.Storage.SSLMode,
		}, logger)
		cancel()
		if err != nil {
			logger.Warn("postgres unavailable, falling back to in-memory storage", "error", err)
		} else {
			if err := pg.RunMigrations(context.Background()); err != nil {
				logger.Warn("storage migrations failed", "error", err)
			}
			persistStore = pg
		}
	}

	tracker := outcome.New(store, persistStore, sys, outcome.DefaultConfig())

	f := filter.New(store, filter.BigMoversPreset)
	notifications := snapshot.NewNotificationBuffer(sys, snapshot.DefaultBufferConfig())

	sink := &snapshotSink{
		engine:        engine,
		tracker:       tracker,
		filter:        f,
		notifications: notifications,
		logger:        logger,
		categories: []snapshot.Category{
			volatilityCategory(volatility),
			volumeCategory(volume),
			velocityCategory(velocity),
			fundingCategory(funding),
			whaleCategory(whale),
			rangeCategory(rangeDetector),
			newListingCategory(newListing),
			correlationCategory(correlation),
			liquidationCategory(liquidation),
			topPickerCategory(topPicker),
			sentimentCategory(sentiment),
		},
	}

	onCritical := func(symbol string, alert model.VolatilityAlert) {
		notifications.Push(snapshot.Notification{
			Type:    snapshot.NotifyCriticalVolatility,
			Symbol:  symbol,
			Message: fmt.Sprintf("%s crossed critical volatility: %.2f%%", symbol, alert.Change24h),
		})
	}

	sched := scheduler.New(store, streamClient, engine, tracker, sink, volatility, scheduler.Groups{
		FundingOI:        []detectors.Detector{funding, openInterest},
		MTFPattern:       []detectors.Detector{mtf, pattern},
		EntryCorrelation: []detectors.Detector{entryTiming, correlation},
		Whale:            []detectors.Detector{whale},
		TopPickLiq:       []detectors.Detector{topPicker, liquidation},
	}, onCritical, logger)

	ctx, cancel := context.WithCancel(context.Background())

	var sessionID int64
	if sessionID, err = persistStore.RecordSession(context.Background(), time.Now().Unix(), gitRevision()); err != nil {
		logger.Warn("failed to record session start", "error", err)
	}

	go sched.Run(ctx)
	logger.Info("engine started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()

	if sessionID != 0 {
		if err := persistStore.CloseSession(context.Background(), sessionID, time.Now().Unix()); err != nil {
			logger.Warn("failed to close session", "error", err)
		}
	}
	if pg != nil {
		pg.Close()
	}
}

func gitRevision() string {
	if rev := os.Getenv("GIT_REVISION"); rev != "" {
		return rev
	}
	return "unknown"
}

// combinedClient satisfies exchange.Client from an independently built
// StreamClient + RESTClient pair.
type combinedClient struct {
	exchange.StreamClient
	exchange.RESTClient
}

// snapshotSink adapts Assemble into scheduler.SnapshotSink, holding the
// collaborators the assembled document is derived from.
type snapshotSink struct {
	engine        *signalengine.Engine
	tracker       *outcome.Tracker
	filter        *filter.Filter
	notifications *snapshot.NotificationBuffer
	categories    []snapshot.Category
	logger        *logging.Logger

	latest snapshot.Document
}

func (s *snapshotSink) OnSnapshotTick(ctx context.Context) {
	doc := snapshot.Assemble(snapshot.Inputs{
		ConnectionStatus: "CONNECTED",
		Now:              time.Now(),
		Categories:       s.categories,
		Engine:           s.engine,
		Tracker:          s.tracker,
		Notifications:    s.notifications,
		Filter:           s.filter,
		FilterConfig:     filter.BigMoversPreset,
	})
	s.latest = doc
}

func volatilityCategory(d *detectors.VolatilityDetector) snapshot.Category {
	return snapshot.Category{Name: "volatility", Collect: func() []detectors.Alert { return d.Detect() }, SymbolOf: func(a detectors.Alert) string {
		return a.(model.VolatilityAlert).Symbol
	}}
}

func volumeCategory(d *detectors.VolumeDetector) snapshot.Category {
	return snapshot.Category{Name: "volume", Collect: func() []detectors.Alert { return d.Detect() }, SymbolOf: func(a detectors.Alert) string {
		return a.(model.VolumeAlert).Symbol
	}}
}

func velocityCategory(d *detectors.VelocityDetector) snapshot.Category {
	return snapshot.Category{Name: "velocity", Collect: func() []detectors.Alert { return d.Detect() }, SymbolOf: func(a detectors.Alert) string {
		return a.(model.VelocityAlert).Symbol
	}}
}

func fundingCategory(d *detectors.FundingDetector) snapshot.Category {
	return snapshot.Category{Name: "funding", Collect: func() []detectors.Alert { return d.Detect() }, SymbolOf: func(a detectors.Alert) string {
		return a.(model.FundingAlert).Symbol
	}}
}

func whaleCategory(d *detectors.WhaleDetector) snapshot.Category {
	return snapshot.Category{Name: "whale", Collect: func() []detectors.Alert { return d.Detect() }, SymbolOf: func(a detectors.Alert) string {
		return a.(model.WhaleAlert).Symbol
	}}
}

func rangeCategory(d *detectors.RangeDetector) snapshot.Category {
	return snapshot.Category{Name: "range", Collect: func() []detectors.Alert { return d.Detect() }, SymbolOf: func(a detectors.Alert) string {
		return a.(model.RangeAlert).Symbol
	}}
}

func newListingCategory(d *detectors.NewListingDetector) snapshot.Category {
	return snapshot.Category{Name: "new_listing", Collect: func() []detectors.Alert { return d.Detect() }, SymbolOf: func(a detectors.Alert) string {
		return a.(model.NewListingAlert).Symbol
	}}
}

func correlationCategory(d *detectors.CorrelationDetector) snapshot.Category {
	return snapshot.Category{Name: "correlation", Collect: func() []detectors.Alert { return d.Detect() }, SymbolOf: func(a detectors.Alert) string {
		return a.(model.CorrelationAlert).Symbol
	}}
}

func liquidationCategory(d *detectors.LiquidationDetector) snapshot.Category {
	return snapshot.Category{Name: "liquidation", Collect: func() []detectors.Alert { return d.Detect() }, SymbolOf: func(a detectors.Alert) string {
		return a.(model.LiquidationAlert).Symbol
	}}
}

func topPickerCategory(d *detectors.TopPickerDetector) snapshot.Category {
	return snapshot.Category{Name: "top_picker", Collect: func() []detectors.Alert { return d.Detect() }, SymbolOf: func(a detectors.Alert) string {
		return a.(model.TopPickAlert).Symbol
	}}
}

func sentimentCategory(d *detectors.SentimentDetector) snapshot.Category {
	return snapshot.Category{Name: "sentiment", Collect: func() []detectors.Alert { return d.Detect() }, SymbolOf: func(a detectors.Alert) string {
		return a.(model.SentimentAlert).Symbol
	}}
}
