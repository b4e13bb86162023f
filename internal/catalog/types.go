// Package catalog holds the canonical catalog item and the pure stages of the
// trending pipeline: normalization, deduplication, filtering and ranking.
//
// This package enables catalogmix to:
// - Map editorial fixtures and live-feed records into one Item shape
// - Collapse items sharing an id, first occurrence wins
// - Filter by category and price, then rank by a user-chosen key
package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Bucket identifies one upstream live ranking feed.
type Bucket string

const (
	BucketMostViewed Bucket = "most-viewed"
	BucketBestRated  Bucket = "best-rated"
	BucketPromotions Bucket = "promotions"
	BucketRecent     Bucket = "recent"
)

// SourceEditorial marks items that came from the bundled editorial fixtures.
const SourceEditorial = "editorial"

// BucketPriority is the concatenation order of live buckets. Earlier buckets
// win deduplication against later ones.
var BucketPriority = []Bucket{
	BucketMostViewed,
	BucketBestRated,
	BucketPromotions,
	BucketRecent,
}

// ParseBucket converts a configuration token into a Bucket.
func ParseBucket(s string) (Bucket, error) {
	for _, b := range BucketPriority {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown bucket %q", s)
}

// Item is the canonical catalog entry produced by the Normalizer.
// Items are values: stages return new slices and never modify an Item.
type Item struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         int64    `json:"price"`
	PromoPrice    *int64   `json:"promoPrice,omitempty"`
	ImageURL      string   `json:"imageUrl"`
	VendorName    string   `json:"vendorName"`
	CategoryName  string   `json:"categoryName"`
	Rating        float64  `json:"rating"`
	ReviewCount   int      `json:"reviewCount"`
	UnitsSold     int      `json:"unitsSold"`
	IsTrending    bool     `json:"isTrending"`
	IsNew         bool     `json:"isNew"`
	IsOnPromotion bool     `json:"isOnPromotion"`
	Tags          []string `json:"tags"`
	Source        string   `json:"source"`
}

// EffectivePrice is the promotional price when set, else the regular price.
func (i Item) EffectivePrice() int64 {
	if i.PromoPrice != nil {
		return *i.PromoPrice
	}
	return i.Price
}

// EditorialRecord is the shape of a locally bundled editorial fixture.
type EditorialRecord struct {
	ID          *int64   `json:"id" yaml:"id"`
	Name        *string  `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Price       *int64   `json:"price" yaml:"price"`
	PromoPrice  *int64   `json:"promoPrice" yaml:"promoPrice"`
	Images      []string `json:"images" yaml:"images"`
	Vendor      string   `json:"vendor" yaml:"vendor"`
	Category    string   `json:"category" yaml:"category"`
	Rating      float64  `json:"rating" yaml:"rating"`
	ReviewCount int      `json:"reviewCount" yaml:"reviewCount"`
	UnitsSold   int      `json:"unitsSold" yaml:"unitsSold"`
	IsTrending  bool     `json:"isTrending" yaml:"isTrending"`
	IsNew       bool     `json:"isNew" yaml:"isNew"`
	Tags        []string `json:"tags" yaml:"tags"`
}

// LiveRecord is the shape of one element of a live-feed bucket response.
// Prices arrive either as JSON numbers or as decimal strings.
type LiveRecord struct {
	ID            *int64              `json:"id"`
	Name          *string             `json:"name"`
	Description   string              `json:"description"`
	Price         *decimal.Decimal    `json:"price"`
	PromoPrice    decimal.NullDecimal `json:"promo_price"`
	Images        []LiveImage         `json:"images"`
	Vendor        *LiveRef            `json:"vendor"`
	Category      *LiveRef            `json:"category"`
	AverageRating float64             `json:"average_rating"`
	ReviewsCount  int                 `json:"reviews_count"`
	Tags          []string            `json:"tags"`
	CreatedAt     string              `json:"created_at"`

	// DecodeErr is set by the transport when this element could not be
	// decoded; the Normalizer reports it as a malformed record.
	DecodeErr error `json:"-"`
}

// LiveImage is one entry of a live record's image list.
type LiveImage struct {
	URL string `json:"url"`
}

// LiveRef is a nested {id, name} reference used by the live feed for vendors
// and categories.
type LiveRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
