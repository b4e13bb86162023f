// Package storefront holds the catalog a user is browsing: the last applied
// build, its state and warnings, and the filter and sort queries run on it.
package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gauthierbraillon/catalogmix/internal/aggregator"
	"github.com/gauthierbraillon/catalogmix/internal/catalog"
	"github.com/gauthierbraillon/catalogmix/internal/metrics"
)

// State tells an empty catalog apart from one that has not loaded yet.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateEmpty   State = "empty"
	StateFailed  State = "failed"
)

// Builder produces a catalog build.
type Builder interface {
	BuildCatalog(ctx context.Context, opts aggregator.Options) (*aggregator.Result, error)
}

// Publisher receives every applied catalog.
type Publisher interface {
	Publish(ctx context.Context, page Page) error
}

// Page is what a caller sees: the state plus the items of a query.
type Page struct {
	State    State          `json:"state"`
	Items    []catalog.Item `json:"items"`
	Warnings []string       `json:"warnings"`
	BuiltAt  *time.Time     `json:"built_at,omitempty"`
}

// Option configures the View.
type Option func(*View)

func WithLogger(logger *zap.Logger) Option {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Registry) Option {
	return func(v *View) {
		v.metrics = m
	}
}

// WithPublisher publishes each applied catalog. Publish errors are logged
// and never change the view.
func WithPublisher(p Publisher) Option {
	return func(v *View) {
		v.publisher = p
	}
}

// View is safe for concurrent use. Overlapping refreshes are allowed; only
// the most recently started one is applied.
type View struct {
	builder   Builder
	opts      aggregator.Options
	gate      aggregator.Gate
	publisher Publisher
	logger    *zap.Logger
	metrics   *metrics.Registry

	mu       sync.RWMutex
	state    State
	items    []catalog.Item
	warnings []string
	builtAt  time.Time
}

func NewView(builder Builder, opts aggregator.Options, options ...Option) *View {
	v := &View{
		builder:  builder,
		opts:     opts,
		logger:   zap.NewNop(),
		state:    StateLoading,
		items:    []catalog.Item{},
		warnings: []string{},
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// Refresh rebuilds the catalog and applies it unless a newer refresh has
// already applied its result. It reports whether the result was applied.
//
// A total aggregation failure is applied as StateFailed and its error is
// returned. A build aborted by ctx is never applied.
func (v *View) Refresh(ctx context.Context) (bool, error) {
	ticket := v.gate.Next()

	res, err := v.builder.BuildCatalog(ctx, v.opts)
	if err != nil && !errors.Is(err, aggregator.ErrTotalAggregationFailure) {
		return false, err
	}

	state := StateReady
	items := catalog.Dedupe(res.Items)
	switch {
	case err != nil:
		state = StateFailed
		items = []catalog.Item{}
	case len(items) == 0:
		state = StateEmpty
	}

	warnings := res.Warnings()
	applied := v.gate.Apply(ticket, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.state = state
		v.items = items
		v.warnings = warnings
		v.builtAt = res.BuiltAt
	})
	if !applied {
		v.metrics.ObserveStale()
		v.logger.Debug("discarding superseded catalog build", zap.Uint64("ticket", uint64(ticket)))
		return false, nil
	}

	v.metrics.SetCatalogItems(len(items))
	if v.publisher != nil {
		builtAt := res.BuiltAt
		page := Page{State: state, Items: items, Warnings: warnings, BuiltAt: &builtAt}
		if perr := v.publisher.Publish(ctx, page); perr != nil {
			v.logger.Warn("failed to publish catalog snapshot", zap.Error(perr))
		}
	}
	return true, err
}

// Run refreshes immediately, then every interval until ctx is done.
// A non-positive interval refreshes once.
func (v *View) Run(ctx context.Context, interval time.Duration) {
	v.refreshAndLog(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.refreshAndLog(ctx)
		}
	}
}

func (v *View) refreshAndLog(ctx context.Context) {
	if _, err := v.Refresh(ctx); err != nil && ctx.Err() == nil {
		v.logger.Error("catalog refresh failed", zap.Error(err))
	}
}

// State returns the state of the applied catalog.
func (v *View) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Query filters and ranks the applied catalog without refetching.
func (v *View) Query(q catalog.Query) Page {
	v.mu.RLock()
	state, items, warnings, builtAt := v.state, v.items, v.warnings, v.builtAt
	v.mu.RUnlock()

	page := Page{
		State:    state,
		Items:    catalog.Apply(items, q),
		Warnings: append([]string{}, warnings...),
	}
	if !builtAt.IsZero() {
		page.BuiltAt = &builtAt
	}
	return page
}

// Categories lists the category names present in the applied catalog.
func (v *View) Categories() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return catalog.Categories(v.items)
}
