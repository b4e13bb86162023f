package storefront

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauthierbraillon/catalogmix/internal/aggregator"
	"github.com/gauthierbraillon/catalogmix/internal/catalog"
	"github.com/gauthierbraillon/catalogmix/internal/metrics"
)

type builderFunc func(ctx context.Context, opts aggregator.Options) (*aggregator.Result, error)

func (f builderFunc) BuildCatalog(ctx context.Context, opts aggregator.Options) (*aggregator.Result, error) {
	return f(ctx, opts)
}

type recordingPublisher struct {
	mu    sync.Mutex
	pages []Page
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, page Page) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages = append(p.pages, page)
	return p.err
}

var builtAt = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func result(items ...catalog.Item) *aggregator.Result {
	return &aggregator.Result{Items: items, Failures: []aggregator.BucketFailure{}, BuiltAt: builtAt}
}

func staticBuilder(res *aggregator.Result, err error) Builder {
	return builderFunc(func(context.Context, aggregator.Options) (*aggregator.Result, error) {
		return res, err
	})
}

func item(id int64, category string, unitsSold int) catalog.Item {
	return catalog.Item{ID: id, Name: "item", CategoryName: category, UnitsSold: unitsSold, Price: 1000 * id}
}

func itemIDs(items []catalog.Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestView_StartsLoading(t *testing.T) {
	v := NewView(staticBuilder(result(), nil), aggregator.Options{})

	page := v.Query(catalog.Query{})
	assert.Equal(t, StateLoading, page.State)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Nil(t, page.BuiltAt)
}

func TestView_RefreshAppliesDeduplicatedCatalog(t *testing.T) {
	v := NewView(staticBuilder(result(item(1, "Mode", 5), item(2, "Maison", 9), item(1, "Beauté", 50)), nil), aggregator.Options{})

	applied, err := v.Refresh(context.Background())
	require.NoError(t, err)
	require.True(t, applied)

	page := v.Query(catalog.Query{Key: catalog.SortUnitsSold, Direction: catalog.Descending})
	assert.Equal(t, StateReady, page.State)
	assert.Equal(t, []int64{2, 1}, itemIDs(page.Items))
	assert.Equal(t, "Mode", page.Items[1].CategoryName, "first occurrence should win")
	require.NotNil(t, page.BuiltAt)
	assert.True(t, page.BuiltAt.Equal(builtAt))
	assert.Equal(t, []string{"Mode", "Maison"}, v.Categories())
}

func TestView_EmptyCatalogIsNotLoading(t *testing.T) {
	v := NewView(staticBuilder(result(), nil), aggregator.Options{})

	_, err := v.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateEmpty, v.State())
}

func TestView_TotalFailureIsDistinctState(t *testing.T) {
	res := result()
	res.Failures = []aggregator.BucketFailure{{Bucket: catalog.BucketRecent, Err: errors.New("down")}}
	v := NewView(staticBuilder(res, aggregator.ErrTotalAggregationFailure), aggregator.Options{})

	applied, err := v.Refresh(context.Background())
	assert.True(t, applied)
	assert.ErrorIs(t, err, aggregator.ErrTotalAggregationFailure)

	page := v.Query(catalog.Query{})
	assert.Equal(t, StateFailed, page.State)
	assert.Empty(t, page.Items)
	assert.Len(t, page.Warnings, 1)
}

func TestView_KeepsWarningsForPartialFailure(t *testing.T) {
	res := result(item(1, "Mode", 1))
	res.Failures = []aggregator.BucketFailure{{Bucket: catalog.BucketMostViewed, Err: errors.New("timeout")}}
	v := NewView(staticBuilder(res, nil), aggregator.Options{})

	_, err := v.Refresh(context.Background())
	require.NoError(t, err)

	page := v.Query(catalog.Query{})
	assert.Equal(t, StateReady, page.State)
	require.Len(t, page.Warnings, 1)
	assert.Contains(t, page.Warnings[0], "most-viewed")
}

func TestView_AbortedBuildIsNotApplied(t *testing.T) {
	v := NewView(staticBuilder(nil, context.Canceled), aggregator.Options{})

	applied, err := v.Refresh(context.Background())
	assert.False(t, applied)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateLoading, v.State())
}

func TestView_LatestRefreshWins(t *testing.T) {
	reg := metrics.NewRegistry()
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	builder := builderFunc(func(context.Context, aggregator.Options) (*aggregator.Result, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
			return result(item(1, "old", 1)), nil
		}
		return result(item(2, "new", 1)), nil
	})
	v := NewView(builder, aggregator.Options{}, WithMetrics(reg))

	type outcome struct {
		applied bool
		err     error
	}
	slow := make(chan outcome, 1)
	go func() {
		applied, err := v.Refresh(context.Background())
		slow <- outcome{applied, err}
	}()
	<-entered

	applied, err := v.Refresh(context.Background())
	require.NoError(t, err)
	require.True(t, applied)

	close(release)
	first := <-slow
	require.NoError(t, first.err)
	assert.False(t, first.applied, "superseded build should be discarded")

	assert.Equal(t, []int64{2}, itemIDs(v.Query(catalog.Query{}).Items))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.StaleDiscarded))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.CatalogItems))
}

func TestView_CancelledRefreshKeepsPendingBuild(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	builder := builderFunc(func(ctx context.Context, _ aggregator.Options) (*aggregator.Result, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
			return result(item(1, "Mode", 1)), nil
		}
		return nil, ctx.Err()
	})
	v := NewView(builder, aggregator.Options{})

	slow := make(chan bool, 1)
	go func() {
		applied, _ := v.Refresh(context.Background())
		slow <- applied
	}()
	<-entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	applied, err := v.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, applied)

	close(release)
	assert.True(t, <-slow, "build still in flight should apply after a newer refresh was abandoned")
	assert.Equal(t, StateReady, v.State())
	assert.Equal(t, []int64{1}, itemIDs(v.Query(catalog.Query{}).Items))
}

func TestView_QueryFiltersAndRanksWithoutRebuilding(t *testing.T) {
	var calls atomic.Int32
	builder := builderFunc(func(context.Context, aggregator.Options) (*aggregator.Result, error) {
		calls.Add(1)
		return result(item(1, "Robes", 10), item(2, "Sacs", 30), item(3, "Robes", 20)), nil
	})
	v := NewView(builder, aggregator.Options{})
	_, err := v.Refresh(context.Background())
	require.NoError(t, err)

	robes := v.Query(catalog.Query{Category: "Robes", Key: catalog.SortUnitsSold, Direction: catalog.Descending})
	assert.Equal(t, []int64{3, 1}, itemIDs(robes.Items))

	cheap := v.Query(catalog.Query{MaxPrice: 2000, Key: catalog.SortEffectivePrice, Direction: catalog.Ascending})
	assert.Equal(t, []int64{1, 2}, itemIDs(cheap.Items))

	top := v.Query(catalog.Query{Limit: 1})
	assert.Equal(t, []int64{2}, itemIDs(top.Items))

	assert.Equal(t, int32(1), calls.Load())
}

func TestView_PassesOptionsToBuilder(t *testing.T) {
	want := aggregator.Options{IncludeEditorial: true, LiveFeedLimit: 7, MaxConcurrency: 2}
	var got aggregator.Options
	builder := builderFunc(func(_ context.Context, opts aggregator.Options) (*aggregator.Result, error) {
		got = opts
		return result(), nil
	})

	_, err := NewView(builder, want).Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestView_PublishesAppliedCatalog(t *testing.T) {
	pub := &recordingPublisher{}
	v := NewView(staticBuilder(result(item(4, "Mode", 1)), nil), aggregator.Options{}, WithPublisher(pub))

	_, err := v.Refresh(context.Background())
	require.NoError(t, err)

	require.Len(t, pub.pages, 1)
	assert.Equal(t, StateReady, pub.pages[0].State)
	assert.Equal(t, []int64{4}, itemIDs(pub.pages[0].Items))
}

func TestView_PublishFailureDoesNotAffectView(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	v := NewView(staticBuilder(result(item(4, "Mode", 1)), nil), aggregator.Options{}, WithPublisher(pub))

	applied, err := v.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, StateReady, v.State())
}

func TestView_RunRefreshesUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	builder := builderFunc(func(context.Context, aggregator.Options) (*aggregator.Result, error) {
		calls.Add(1)
		return result(item(1, "Mode", 1)), nil
	})
	v := NewView(builder, aggregator.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		v.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run should return once the context is cancelled")
	}
	assert.Equal(t, StateReady, v.State())
}

func TestView_RunOnceWithoutInterval(t *testing.T) {
	var calls atomic.Int32
	builder := builderFunc(func(context.Context, aggregator.Options) (*aggregator.Result, error) {
		calls.Add(1)
		return result(), nil
	})

	NewView(builder, aggregator.Options{}).Run(context.Background(), 0)
	assert.Equal(t, int32(1), calls.Load())
}
