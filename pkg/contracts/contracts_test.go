package contracts

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauthierbraillon/catalogmix/internal/aggregator"
	"github.com/gauthierbraillon/catalogmix/internal/catalog"
	"github.com/gauthierbraillon/catalogmix/internal/editorial"
	"github.com/gauthierbraillon/catalogmix/internal/livefeed"
	"github.com/gauthierbraillon/catalogmix/internal/server"
	"github.com/gauthierbraillon/catalogmix/internal/storefront"
)

func liveAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(LiveBucketContract))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestLiveBucketContract_IsValidJSON guards the recorded fixture itself.
func TestLiveBucketContract_IsValidJSON(t *testing.T) {
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(LiveBucketContract), &body))

	results, ok := body["results"].([]any)
	require.True(t, ok, "contract must carry a results array")
	assert.Len(t, results, 2)
}

// TestLiveClient_ParsesContract verifies the live-feed client and the
// normalizer accept every record of the recorded response.
func TestLiveClient_ParsesContract(t *testing.T) {
	api := liveAPI(t)
	client := livefeed.NewClient(livefeed.WithBaseURL(api.URL))

	records, err := client.FetchBucket(context.Background(), catalog.BucketMostViewed, 20)
	require.NoError(t, err)
	require.Len(t, records, 2)

	n := catalog.NewNormalizer(
		catalog.WithMediaBaseURL("https://cdn.example.test"),
		catalog.WithRand(rand.New(rand.NewPCG(1, 2))),
	)

	boubou, err := n.NormalizeLive(records[0], catalog.BucketMostViewed)
	require.NoError(t, err)
	assert.Equal(t, int64(311), boubou.ID)
	assert.Equal(t, int64(28000), boubou.Price)
	require.NotNil(t, boubou.PromoPrice)
	assert.Equal(t, int64(24500), *boubou.PromoPrice)
	assert.True(t, boubou.IsTrending, "description carries the trending marker")
	assert.True(t, boubou.IsOnPromotion)
	assert.Equal(t, "https://cdn.example.test/media/products/boubou.jpg", boubou.ImageURL)
	assert.Equal(t, "Maison Thiès", boubou.VendorName)
	assert.Equal(t, "Mode", boubou.CategoryName)

	lamp, err := n.NormalizeLive(records[1], catalog.BucketMostViewed)
	require.NoError(t, err)
	assert.Nil(t, lamp.PromoPrice)
	assert.False(t, lamp.IsOnPromotion)
	assert.Equal(t, "https://cdn.example.test/static/img/placeholder.png", lamp.ImageURL)
}

// TestTrendingEndpoint_MatchesStorefrontContract serves a catalog built from
// the recorded response and checks every item against the storefront shape.
func TestTrendingEndpoint_MatchesStorefrontContract(t *testing.T) {
	api := liveAPI(t)
	agg := aggregator.New(
		livefeed.NewClient(livefeed.WithBaseURL(api.URL)),
		editorial.NewSource(),
	)
	view := storefront.NewView(agg, aggregator.Options{IncludeEditorial: true, LiveFeedLimit: 20})

	_, err := view.Refresh(context.Background())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/trending", nil)
	server.New(view).Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var page map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assertFields(t, "page", page, TrendingPageFields, nil)

	items := page["items"].([]any)
	require.NotEmpty(t, items)

	sawPromo := false
	for i, raw := range items {
		item, ok := raw.(map[string]any)
		require.True(t, ok, "item %d must be an object", i)
		assertFields(t, "item", item, TrendingItemFields, OptionalTrendingItemFields)
		if _, ok := item["promoPrice"]; ok {
			sawPromo = true
		}
	}
	assert.True(t, sawPromo, "at least one item should exercise the optional promoPrice key")
}

func assertFields(t *testing.T, what string, obj map[string]any, required, optional map[string]string) {
	t.Helper()
	for key, kind := range required {
		v, ok := obj[key]
		if !assert.True(t, ok, "%s missing required key %q", what, key) {
			continue
		}
		assert.Equal(t, kind, KindOf(v), "%s key %q has wrong kind", what, key)
	}
	for key, v := range obj {
		if _, ok := required[key]; ok {
			continue
		}
		kind, ok := optional[key]
		if !ok {
			if what == "page" && key == "built_at" {
				continue
			}
			t.Errorf("%s has undocumented key %q", what, key)
			continue
		}
		assert.Equal(t, kind, KindOf(v), "%s key %q has wrong kind", what, key)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "null", KindOf(nil))
	assert.Equal(t, "boolean", KindOf(true))
	assert.Equal(t, "number", KindOf(1.5))
	assert.Equal(t, "string", KindOf("x"))
	assert.Equal(t, "array", KindOf([]any{}))
	assert.Equal(t, "object", KindOf(map[string]any{}))
	assert.Equal(t, "unknown", KindOf(3))
}
