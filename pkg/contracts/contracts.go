// Package contracts pins the JSON shapes catalogmix exchanges with the
// outside world: the live catalog API it consumes and the trending page it
// serves to the storefront.
package contracts

// LiveBucketContract is a recorded /products/{bucket} response from the
// catalog API, paginated envelope included.
const LiveBucketContract = `{
  "count": 2,
  "next": null,
  "previous": null,
  "results": [
    {
      "id": 311,
      "name": "Boubou brodé",
      "description": "Coton bazin riche #tendance",
      "price": "28000.00",
      "promo_price": "24500.00",
      "images": [{"id": 9, "url": "/media/products/boubou.jpg", "is_primary": true}],
      "vendor": {"id": 4, "name": "Maison Thiès", "slug": "maison-thies"},
      "category": {"id": 2, "name": "Mode", "slug": "mode"},
      "average_rating": 4.6,
      "reviews_count": 31,
      "tags": ["bazin", "fête"],
      "created_at": "2025-03-02T09:14:00Z",
      "stock": 12
    },
    {
      "id": 312,
      "name": "Lampe en calebasse",
      "description": "",
      "price": 15000,
      "promo_price": null,
      "images": [],
      "vendor": {"id": 7, "name": "Kora Design"},
      "category": {"id": 5, "name": "Maison"},
      "average_rating": 0,
      "reviews_count": 0,
      "tags": [],
      "created_at": "2025-03-04T16:40:00Z"
    }
  ]
}`

// TrendingItemFields lists every key of one item in the trending page, with
// the JSON kind the storefront expects. promoPrice is optional.
var TrendingItemFields = map[string]string{
	"id":            "number",
	"name":          "string",
	"description":   "string",
	"price":         "number",
	"imageUrl":      "string",
	"vendorName":    "string",
	"categoryName":  "string",
	"rating":        "number",
	"reviewCount":   "number",
	"unitsSold":     "number",
	"isTrending":    "boolean",
	"isNew":         "boolean",
	"isOnPromotion": "boolean",
	"tags":          "array",
	"source":        "string",
}

// OptionalTrendingItemFields may be absent from an item.
var OptionalTrendingItemFields = map[string]string{
	"promoPrice": "number",
}

// TrendingPageFields lists the top-level keys of the trending page.
var TrendingPageFields = map[string]string{
	"state":    "string",
	"items":    "array",
	"warnings": "array",
}

// KindOf names the JSON kind of a value decoded into any.
func KindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}
