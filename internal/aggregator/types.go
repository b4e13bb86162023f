// Package aggregator builds the merged catalog from editorial fixtures and the
// live ranking buckets.
//
// This package enables catalogmix to:
// - Fetch every configured bucket concurrently, then merge behind one barrier
// - Concatenate sources in a fixed order so deduplication is deterministic
// - Degrade to the remaining sources when a bucket fails
// - Discard results superseded by a newer build (latest request wins)
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gauthierbraillon/catalogmix/internal/catalog"
)

// ErrTotalAggregationFailure is returned when no enabled source produced data:
// editorial fixtures were disabled or failed and every bucket failed.
var ErrTotalAggregationFailure = errors.New("all catalog sources failed")

// BucketFetcher fetches the raw records of one live bucket.
type BucketFetcher interface {
	FetchBucket(ctx context.Context, bucket catalog.Bucket, limit int) ([]catalog.LiveRecord, error)
}

// FixtureSource loads the editorial fixtures.
type FixtureSource interface {
	LoadFixtures(ctx context.Context) ([]catalog.EditorialRecord, error)
}

// Options configures one catalog build.
type Options struct {
	IncludeEditorial bool
	LiveFeedLimit    int
	// Buckets to fetch. Empty means every bucket. Order is ignored: buckets
	// are always concatenated in catalog.BucketPriority order.
	Buckets        []catalog.Bucket
	MaxConcurrency int
}

// BucketFailure is a soft warning: the bucket contributed nothing to the build.
type BucketFailure struct {
	Bucket catalog.Bucket
	Err    error
}

func (f BucketFailure) Error() string {
	return fmt.Sprintf("%s feed unavailable: %v", f.Bucket, f.Err)
}

func (f BucketFailure) Unwrap() error { return f.Err }

// Result is the outcome of one build. Merged holds every normalized item in
// concatenation order; Items is Merged deduplicated, first occurrence wins.
type Result struct {
	Items        []catalog.Item
	Merged       []catalog.Item
	Failures     []BucketFailure
	EditorialErr error
	Dropped      int
	BuiltAt      time.Time
}

// Warnings lists the soft failures of the build as user-readable lines.
func (r *Result) Warnings() []string {
	warnings := make([]string, 0, len(r.Failures)+1)
	if r.EditorialErr != nil {
		warnings = append(warnings, fmt.Sprintf("editorial picks unavailable: %v", r.EditorialErr))
	}
	for _, f := range r.Failures {
		warnings = append(warnings, f.Error())
	}
	return warnings
}
