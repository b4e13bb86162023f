package catalog

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TrendingMarker is the substring the live feed embeds in a product
// description to flag it as trending. Only the Normalizer knows about it.
const TrendingMarker = "#tendance"

// DefaultPlaceholderImage is used when a record carries no image at all.
const DefaultPlaceholderImage = "/static/img/placeholder.png"

const (
	minSyntheticUnitsSold  = 10
	syntheticUnitsSoldSpan = 500
)

// ErrMalformedRecord is matched by every error the Normalizer returns.
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError reports a raw record missing a required field.
type MalformedRecordError struct {
	Field string
	Err   error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed record: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("malformed record: missing or invalid %s", e.Field)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }

// NormalizerOption configures the Normalizer.
type NormalizerOption func(*Normalizer)

// WithMediaBaseURL sets the base joined onto relative image paths.
func WithMediaBaseURL(base string) NormalizerOption {
	return func(n *Normalizer) {
		n.mediaBaseURL = base
	}
}

// WithPlaceholderImage overrides the image used when a record has none.
func WithPlaceholderImage(path string) NormalizerOption {
	return func(n *Normalizer) {
		if path != "" {
			n.placeholder = path
		}
	}
}

// WithRand injects the random source used for synthetic units-sold values.
func WithRand(r *rand.Rand) NormalizerOption {
	return func(n *Normalizer) {
		n.rng = r
	}
}

// Normalizer maps raw source records into Items. It is not safe for
// concurrent use; the aggregator runs it after the fetch barrier.
type Normalizer struct {
	mediaBaseURL string
	placeholder  string
	rng          *rand.Rand
}

// NewNormalizer creates a Normalizer. Without WithRand the synthetic
// units-sold values are time-seeded.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		placeholder: DefaultPlaceholderImage,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.rng == nil {
		seed := uint64(time.Now().UnixNano())
		n.rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return n
}

// NormalizeEditorial converts an editorial fixture.
func (n *Normalizer) NormalizeEditorial(rec EditorialRecord) (Item, error) {
	if rec.ID == nil || *rec.ID <= 0 {
		return Item{}, &MalformedRecordError{Field: "id"}
	}
	if rec.Name == nil || strings.TrimSpace(*rec.Name) == "" {
		return Item{}, &MalformedRecordError{Field: "name"}
	}
	if rec.Price == nil || *rec.Price < 0 {
		return Item{}, &MalformedRecordError{Field: "price"}
	}

	price := *rec.Price
	promo := promoPrice(rec.PromoPrice)

	return Item{
		ID:            *rec.ID,
		Name:          *rec.Name,
		Description:   rec.Description,
		Price:         price,
		PromoPrice:    promo,
		ImageURL:      n.resolveImage(firstOf(rec.Images)),
		VendorName:    rec.Vendor,
		CategoryName:  rec.Category,
		Rating:        clampRating(rec.Rating),
		ReviewCount:   nonNegative(rec.ReviewCount),
		UnitsSold:     nonNegative(rec.UnitsSold),
		IsTrending:    rec.IsTrending,
		IsNew:         rec.IsNew,
		IsOnPromotion: onPromotion(price, promo),
		Tags:          copyTags(rec.Tags),
		Source:        SourceEditorial,
	}, nil
}

// NormalizeLive converts a live-feed record fetched from bucket.
func (n *Normalizer) NormalizeLive(rec LiveRecord, bucket Bucket) (Item, error) {
	if rec.DecodeErr != nil {
		return Item{}, &MalformedRecordError{Field: "record", Err: rec.DecodeErr}
	}
	if rec.ID == nil || *rec.ID <= 0 {
		return Item{}, &MalformedRecordError{Field: "id"}
	}
	if rec.Name == nil || strings.TrimSpace(*rec.Name) == "" {
		return Item{}, &MalformedRecordError{Field: "name"}
	}
	if rec.Price == nil || rec.Price.IsNegative() {
		return Item{}, &MalformedRecordError{Field: "price"}
	}

	price := toFCFA(*rec.Price)
	var promo *int64
	if rec.PromoPrice.Valid {
		v := toFCFA(rec.PromoPrice.Decimal)
		promo = promoPrice(&v)
	}

	var image string
	if len(rec.Images) > 0 {
		image = rec.Images[0].URL
	}

	item := Item{
		ID:            *rec.ID,
		Name:          *rec.Name,
		Description:   rec.Description,
		Price:         price,
		PromoPrice:    promo,
		ImageURL:      n.resolveImage(image),
		Rating:        clampRating(rec.AverageRating),
		ReviewCount:   nonNegative(rec.ReviewsCount),
		UnitsSold:     n.syntheticUnitsSold(),
		IsTrending:    strings.Contains(rec.Description, TrendingMarker),
		IsNew:         bucket == BucketRecent,
		IsOnPromotion: onPromotion(price, promo),
		Tags:          copyTags(rec.Tags),
		Source:        string(bucket),
	}
	if rec.Vendor != nil {
		item.VendorName = rec.Vendor.Name
	}
	if rec.Category != nil {
		item.CategoryName = rec.Category.Name
	}
	return item, nil
}

// resolveImage falls back to the placeholder and joins relative paths onto
// the media base. Paths starting with "http" pass through unchanged.
func (n *Normalizer) resolveImage(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = n.placeholder
	}
	if strings.HasPrefix(path, "http") {
		return path
	}
	return strings.TrimRight(n.mediaBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// The live feed has no sales figure; this is a display-only estimate.
func (n *Normalizer) syntheticUnitsSold() int {
	return minSyntheticUnitsSold + n.rng.IntN(syntheticUnitsSoldSpan)
}

func toFCFA(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// promoPrice drops negative promotional prices, which the sources do not
// guard against.
func promoPrice(p *int64) *int64 {
	if p == nil || *p < 0 {
		return nil
	}
	v := *p
	return &v
}

func onPromotion(price int64, promo *int64) bool {
	return promo != nil && *promo <= price
}

// clampRating keeps ratings in [0, 5]. NaN and infinities carry no rating.
func clampRating(r float64) float64 {
	switch {
	case math.IsNaN(r), math.IsInf(r, 0):
		return 0
	case r < 0:
		return 0
	case r > 5:
		return 5
	default:
		return r
	}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func firstOf(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func copyTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}
