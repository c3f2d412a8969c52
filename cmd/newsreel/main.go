// Package main wires together the newsreel binaries.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	gcppubsub "cloud.google.com/go/pubsub"
	gcsclient "cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/avelkov/newsreel/internal/api"
	"github.com/avelkov/newsreel/internal/archive/gcs"
	"github.com/avelkov/newsreel/internal/archive/local"
	"github.com/avelkov/newsreel/internal/clock/system"
	"github.com/avelkov/newsreel/internal/config"
	"github.com/avelkov/newsreel/internal/fetcher"
	collygetter "github.com/avelkov/newsreel/internal/fetcher/colly"
	"github.com/avelkov/newsreel/internal/fetcher/headless"
	iduuid "github.com/avelkov/newsreel/internal/id/uuid"
	"github.com/avelkov/newsreel/internal/logging"
	"github.com/avelkov/newsreel/internal/markup"
	"github.com/avelkov/newsreel/internal/progress"
	"github.com/avelkov/newsreel/internal/progress/sinks"
	pubsubpublisher "github.com/avelkov/newsreel/internal/publisher/pubsub"
	"github.com/avelkov/newsreel/internal/scrape"
	"github.com/avelkov/newsreel/internal/scraper"
	"github.com/avelkov/newsreel/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	serve := flag.Bool("serve", false, "Run the HTTP service instead of a one-shot scrape")
	sourceList := flag.String("sources", "", "Comma-separated source names to scrape (default: all)")
	customURL := flag.String("custom-url", "", "Ad-hoc URL to scrape alongside the selected sources")
	maxPerSource := flag.Int("max", 0, "Max headlines per source (0 uses the configured default)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := cfg.Catalog()
	if err != nil {
		logger.Fatal("build source catalog failed", zap.Error(err))
	}

	getter, err := collygetter.New()
	if err != nil {
		logger.Fatal("fetch transport init failed", zap.Error(err))
	}
	fetchOpts := []fetcher.Option{
		fetcher.WithBlockDetector(fetcher.NewBlockDetector(0, nil)),
	}
	if cfg.Headless.Enabled {
		renderer := headless.NewChromedp(cfg.HeadlessOptions())
		defer renderer.Close()
		fetchOpts = append(fetchOpts, fetcher.WithRenderer(renderer))
	}
	client := fetcher.New(getter, cfg.FetcherConfig(), logger.Named("fetch"), fetchOpts...)

	archive, err := newArchive(ctx, cfg)
	if err != nil {
		logger.Fatal("archive init failed", zap.Error(err))
	}

	sinkList := []progress.Sink{sinks.NewLogSink(logger.Named("progress"))}
	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("metrics sink init failed", zap.Error(err))
	}
	sinkList = append(sinkList, promSink)

	var headlineReader api.HeadlineReader
	if cfg.DB.Enabled {
		store, err := postgres.NewHeadlineStore(ctx, postgres.HeadlineStoreConfig{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			logger.Fatal("headline store init failed", zap.Error(err))
		}
		defer store.Close()
		sinkList = append(sinkList, sinks.NewStoreSink(store, logger.Named("store")))
		headlineReader = store
	}
	if cfg.PubSub.Enabled {
		psClient, err := gcppubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("pubsub client init failed", zap.Error(err))
		}
		pub := pubsubpublisher.New(psClient)
		defer func() {
			pub.Close()
		}()
		sinkList = append(sinkList, sinks.NewPublishSink(pub, cfg.PubSub.TopicName, logger.Named("publish")))
	}
	if !*serve {
		sinkList = append(sinkList, consoleSink())
	}

	hub := progress.NewHub(progress.Config{Logger: logger.Named("hub")}, sinkList...)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hub.Close(closeCtx)
	}()

	orch := scrape.New(
		client,
		markup.New(logger.Named("markup")),
		scraper.NewCSSSelector(cfg.Selector.Fallbacks, logger.Named("select")),
		scraper.NewHeadlineExtractor(cfg.Extract.ChromeTerms),
		system.New(),
		iduuid.New(),
		hub,
		archive,
		cfg.ScrapeOptions(),
		logger.Named("scrape"),
	)

	if *serve {
		runServer(ctx, stop, cfg, catalog, orch, headlineReader, logger)
		return
	}
	runOnce(ctx, catalog, orch, *sourceList, *customURL, *maxPerSource, logger)
}

func newArchive(ctx context.Context, cfg config.Config) (scraper.BlobStore, error) {
	switch cfg.Archive.Backend {
	case config.ArchiveLocal:
		return local.New(local.Config{BaseDir: cfg.Archive.BaseDir})
	case config.ArchiveGCS:
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return gcs.New(client, gcs.Config{Bucket: cfg.Archive.GCSBucket})
	default:
		return nil, nil
	}
}

// consoleSink prints run progress to stdout for interactive use.
func consoleSink() progress.Sink {
	return sinks.NewCallbackSink(sinks.Callbacks{
		OnProgress: func(percent float64, completed, total int) {
			fmt.Printf("progress: %.0f%% (%d/%d sources)\n", percent, completed, total)
		},
		OnHeadlineFound: func(record scraper.HeadlineRecord) {
			fmt.Printf("[%s] %s\n    %s\n", record.Source, record.Title, record.URL)
		},
		OnSourceError: func(source, message string) {
			fmt.Printf("source failed: %s: %s\n", source, message)
		},
	})
}

func runServer(
	ctx context.Context,
	stop context.CancelFunc,
	cfg config.Config,
	catalog *scraper.Catalog,
	orch *scrape.Orchestrator,
	headlineReader api.HeadlineReader,
	logger *zap.Logger,
) {
	apiCfg := api.Config{
		RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
	}
	if cfg.Auth.Enabled {
		apiCfg.APIKey = cfg.Auth.APIKey
	}
	apiServer := api.NewServer(catalog, orch, prometheus.DefaultGatherer, apiCfg, logger.Named("api"))
	apiServer.MountHeadlines(api.NewHeadlinesHandler(headlineReader, logger.Named("headlines")))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	if run := orch.Current(); run != nil && run.State() == scrape.StateRunning {
		run.Cancel()
		<-run.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func runOnce(
	ctx context.Context,
	catalog *scraper.Catalog,
	orch *scrape.Orchestrator,
	sourceList, customURL string,
	maxPerSource int,
	logger *zap.Logger,
) {
	if sourceList != "" {
		names := strings.Split(sourceList, ",")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
		filtered, err := catalog.Filter(names)
		if err != nil {
			logger.Fatal("select sources failed", zap.Error(err))
		}
		catalog = filtered
	}
	if customURL != "" {
		withCustom, err := catalog.WithCustom(customURL)
		if err != nil {
			logger.Fatal("add custom url failed", zap.Error(err))
		}
		catalog = withCustom
	}

	run, err := orch.Start(ctx, catalog.Sources(), maxPerSource)
	if err != nil {
		logger.Fatal("start scrape failed", zap.Error(err))
	}

	select {
	case <-run.Done():
	case <-ctx.Done():
		run.Cancel()
		<-run.Done()
	}

	summary := run.Summary()
	fmt.Printf("\nrun %s %s: %d headlines from %d/%d sources (%.0f%% success) in %s\n",
		summary.RunID,
		summary.State,
		len(summary.Records),
		summary.SourcesSucceeded,
		summary.SourcesAttempted,
		summary.SuccessRate()*100,
		summary.Duration.Round(time.Millisecond),
	)
	for _, failure := range summary.Failures {
		fmt.Printf("  failed: %s: %s\n", failure.Source, failure.Message)
	}
}
