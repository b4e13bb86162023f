package aggregator

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gauthierbraillon/catalogmix/internal/catalog"
	"github.com/gauthierbraillon/catalogmix/internal/metrics"
)

const defaultMaxConcurrency = 4

// Option configures the Aggregator.
type Option func(*Aggregator)

// WithNormalizer sets the Normalizer used on every raw record.
func WithNormalizer(n *catalog.Normalizer) Option {
	return func(a *Aggregator) {
		a.normalizer = n
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Registry) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// WithClock overrides the time source used for Result.BuiltAt (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// Aggregator runs catalog builds. It is safe for concurrent use.
type Aggregator struct {
	feed     BucketFetcher
	fixtures FixtureSource

	// normalizer is not safe for concurrent use.
	normMu     sync.Mutex
	normalizer *catalog.Normalizer

	logger  *zap.Logger
	metrics *metrics.Registry
	now     func() time.Time
}

// New creates an Aggregator. fixtures may be nil when editorial picks are
// never included.
func New(feed BucketFetcher, fixtures FixtureSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		feed:     feed,
		fixtures: fixtures,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.normalizer == nil {
		a.normalizer = catalog.NewNormalizer()
	}
	return a
}

type bucketResult struct {
	bucket  catalog.Bucket
	records []catalog.LiveRecord
	err     error
}

// BuildCatalog fetches every enabled source, normalizes the records in
// concatenation order (editorial first, then buckets by priority) and
// deduplicates them so earlier sources win.
//
// A failing bucket is reported in Result.Failures and never fails the build.
// ErrTotalAggregationFailure is returned together with the Result when no
// source succeeded.
func (a *Aggregator) BuildCatalog(ctx context.Context, opts Options) (*Result, error) {
	start := a.now()
	buckets := orderedBuckets(opts.Buckets)

	limit := opts.MaxConcurrency
	if limit <= 0 {
		limit = defaultMaxConcurrency
	}

	var (
		editorial    []catalog.EditorialRecord
		editorialErr error
		results      = make([]bucketResult, len(buckets))
	)

	var g errgroup.Group
	g.SetLimit(limit)
	if opts.IncludeEditorial && a.fixtures != nil {
		g.Go(func() error {
			editorial, editorialErr = a.fixtures.LoadFixtures(ctx)
			return nil
		})
	}
	for i, bucket := range buckets {
		g.Go(func() error {
			records, err := a.feed.FetchBucket(ctx, bucket, opts.LiveFeedLimit)
			results[i] = bucketResult{bucket: bucket, records: records, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Merged:   make([]catalog.Item, 0),
		Failures: make([]BucketFailure, 0),
	}

	succeeded := false
	if opts.IncludeEditorial && a.fixtures != nil {
		if editorialErr != nil {
			res.EditorialErr = editorialErr
			a.logger.Warn("editorial fixtures unavailable", zap.Error(editorialErr))
		} else {
			succeeded = true
		}
	}

	a.normMu.Lock()
	for i, rec := range editorial {
		item, err := a.normalizer.NormalizeEditorial(rec)
		if err != nil {
			a.drop(res, catalog.SourceEditorial, i, err)
			continue
		}
		res.Merged = append(res.Merged, item)
	}
	for _, br := range results {
		a.metrics.ObserveFetch(string(br.bucket), br.err)
		if br.err != nil {
			res.Failures = append(res.Failures, BucketFailure{Bucket: br.bucket, Err: br.err})
			a.logger.Warn("bucket fetch failed",
				zap.String("bucket", string(br.bucket)),
				zap.Error(br.err),
			)
			continue
		}
		succeeded = true
		for i, rec := range br.records {
			item, err := a.normalizer.NormalizeLive(rec, br.bucket)
			if err != nil {
				a.drop(res, string(br.bucket), i, err)
				continue
			}
			res.Merged = append(res.Merged, item)
		}
	}
	a.normMu.Unlock()
	res.Items = catalog.Dedupe(res.Merged)

	res.BuiltAt = a.now()
	a.metrics.ObserveBuild(res.BuiltAt.Sub(start))

	if !succeeded {
		a.logger.Error("catalog build failed: no source available",
			zap.Int("failures", len(res.Failures)),
		)
		return res, ErrTotalAggregationFailure
	}

	a.logger.Info("catalog built",
		zap.Int("items", len(res.Items)),
		zap.Int("duplicates", len(res.Merged)-len(res.Items)),
		zap.Int("failures", len(res.Failures)),
		zap.Int("dropped", res.Dropped),
	)
	return res, nil
}

func (a *Aggregator) drop(res *Result, source string, index int, err error) {
	res.Dropped++
	a.metrics.ObserveDropped(source)
	a.logger.Debug("dropping malformed record",
		zap.String("source", source),
		zap.Int("index", index),
		zap.Error(err),
	)
}

// orderedBuckets returns the requested buckets, deduplicated, in priority order.
func orderedBuckets(requested []catalog.Bucket) []catalog.Bucket {
	if len(requested) == 0 {
		return slices.Clone(catalog.BucketPriority)
	}
	out := make([]catalog.Bucket, 0, len(catalog.BucketPriority))
	for _, b := range catalog.BucketPriority {
		if slices.Contains(requested, b) {
			out = append(out, b)
		}
	}
	return out
}
