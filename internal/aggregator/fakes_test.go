package aggregator

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/gauthierbraillon/catalogmix/internal/catalog"
)

type fakeFeed struct {
	mu      sync.Mutex
	buckets map[catalog.Bucket][]catalog.LiveRecord
	errs    map[catalog.Bucket]error
	calls   []catalog.Bucket
	limits  []int
	hook    func(catalog.Bucket)
}

func (f *fakeFeed) FetchBucket(ctx context.Context, bucket catalog.Bucket, limit int) ([]catalog.LiveRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, bucket)
	f.limits = append(f.limits, limit)
	f.mu.Unlock()

	if f.hook != nil {
		f.hook(bucket)
	}
	if err := f.errs[bucket]; err != nil {
		return nil, err
	}
	return f.buckets[bucket], nil
}

type fakeFixtures struct {
	records []catalog.EditorialRecord
	err     error
}

func (f fakeFixtures) LoadFixtures(context.Context) ([]catalog.EditorialRecord, error) {
	return f.records, f.err
}

var errUnavailable = errors.New("catalog API unavailable")

func ptr[T any](v T) *T { return &v }

func liveRecord(id, price int64, promo int64, rating float64) catalog.LiveRecord {
	p := decimal.NewFromInt(price)
	rec := catalog.LiveRecord{
		ID:            ptr(id),
		Name:          ptr("product"),
		Price:         &p,
		AverageRating: rating,
	}
	if promo > 0 {
		rec.PromoPrice = decimal.NewNullDecimal(decimal.NewFromInt(promo))
	}
	return rec
}

func editorialRecord(id, price int64, promo int64, rating float64) catalog.EditorialRecord {
	rec := catalog.EditorialRecord{
		ID:     ptr(id),
		Name:   ptr("pick"),
		Price:  ptr(price),
		Rating: rating,
	}
	if promo > 0 {
		rec.PromoPrice = ptr(promo)
	}
	return rec
}

func itemIDs(items []catalog.Item) []int64 {
	out := make([]int64, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}
