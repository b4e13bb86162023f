package main

import (
	"context"
	"math/rand/v2"
	"net/http"

	"go.uber.org/zap"

	"github.com/gauthierbraillon/catalogmix/internal/aggregator"
	"github.com/gauthierbraillon/catalogmix/internal/catalog"
	"github.com/gauthierbraillon/catalogmix/internal/config"
	"github.com/gauthierbraillon/catalogmix/internal/editorial"
	"github.com/gauthierbraillon/catalogmix/internal/livefeed"
	"github.com/gauthierbraillon/catalogmix/internal/logger"
	"github.com/gauthierbraillon/catalogmix/internal/metrics"
	"github.com/gauthierbraillon/catalogmix/internal/snapshot"
	"github.com/gauthierbraillon/catalogmix/internal/storefront"
)

// app wires the pipeline from configuration. Every command builds one.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Registry
	view      *storefront.View
	publisher *snapshot.Publisher
}

func newApp(cfg *config.Config) *app {
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	reg := metrics.NewRegistry()

	feed := livefeed.NewClient(
		livefeed.WithBaseURL(cfg.Catalog.APIBaseURL),
		livefeed.WithHTTPClient(&http.Client{Timeout: cfg.Catalog.RequestTimeout}),
	)
	fixtures := editorial.NewSource(editorial.WithOverridePath(cfg.Catalog.FixturesPath))

	normOpts := []catalog.NormalizerOption{
		catalog.WithMediaBaseURL(cfg.Catalog.MediaBaseURL),
		catalog.WithPlaceholderImage(cfg.Catalog.PlaceholderImage),
	}
	if seed := cfg.Catalog.UnitsSoldSeed; seed != 0 {
		normOpts = append(normOpts, catalog.WithRand(rand.New(rand.NewPCG(seed, seed))))
	}

	agg := aggregator.New(feed, fixtures,
		aggregator.WithNormalizer(catalog.NewNormalizer(normOpts...)),
		aggregator.WithLogger(log.Named("aggregator")),
		aggregator.WithMetrics(reg),
	)

	a := &app{
		cfg:     cfg,
		logger:  log,
		metrics: reg,
	}
	a.view = storefront.NewView(agg, aggregator.Options{
		IncludeEditorial: cfg.Catalog.IncludeEditorial,
		LiveFeedLimit:    cfg.Catalog.LiveFeedLimit,
		Buckets:          cfg.Catalog.Buckets,
		MaxConcurrency:   cfg.Catalog.MaxConcurrentFetches,
	},
		storefront.WithLogger(log.Named("storefront")),
		storefront.WithMetrics(reg),
		storefront.WithPublisher(a),
	)
	return a
}

// enableSnapshots connects the Redis publisher when redis.enabled is set.
func (a *app) enableSnapshots(ctx context.Context) error {
	if !a.cfg.Redis.Enabled {
		return nil
	}
	p, err := snapshot.NewPublisher(ctx, snapshot.Config{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		Key:      a.cfg.Redis.Key,
		TTL:      a.cfg.Redis.TTL,
	}, snapshot.WithLogger(a.logger.Named("snapshot")))
	if err != nil {
		return err
	}
	a.publisher = p
	return nil
}

// Publish forwards to the Redis publisher once snapshots are enabled.
func (a *app) Publish(ctx context.Context, page storefront.Page) error {
	if a.publisher == nil {
		return nil
	}
	return a.publisher.Publish(ctx, page)
}

func (a *app) close() {
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	_ = a.logger.Sync()
}
