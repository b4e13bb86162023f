package snapshot

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauthierbraillon/catalogmix/internal/catalog"
	"github.com/gauthierbraillon/catalogmix/internal/storefront"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testPage() storefront.Page {
	built := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	return storefront.Page{
		State:    storefront.StateReady,
		Items:    []catalog.Item{{ID: 1, Name: "Robe", Price: 45000, Tags: []string{}}},
		Warnings: []string{"recent feed unavailable: timeout"},
		BuiltAt:  &built,
	}
}

func TestPublisher_Publish(t *testing.T) {
	mr, client := setupRedis(t)
	p := NewPublisherWithClient(client, "catalogmix:trending", 15*time.Minute)

	require.NoError(t, p.Publish(context.Background(), testPage()))

	raw, err := mr.Get("catalogmix:trending")
	require.NoError(t, err)

	var got storefront.Page
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, storefront.StateReady, got.State)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(45000), got.Items[0].Price)
	assert.Equal(t, []string{"recent feed unavailable: timeout"}, got.Warnings)

	assert.Equal(t, 15*time.Minute, mr.TTL("catalogmix:trending"))
}

func TestPublisher_PublishReplacesPreviousSnapshot(t *testing.T) {
	mr, client := setupRedis(t)
	p := NewPublisherWithClient(client, "k", time.Minute)

	require.NoError(t, p.Publish(context.Background(), testPage()))
	empty := storefront.Page{State: storefront.StateEmpty, Items: []catalog.Item{}, Warnings: []string{}}
	require.NoError(t, p.Publish(context.Background(), empty))

	raw, err := mr.Get("k")
	require.NoError(t, err)
	assert.Contains(t, raw, `"state":"empty"`)
	assert.NotContains(t, raw, "built_at")
}

func TestPublisher_ExpiresAfterTTL(t *testing.T) {
	mr, client := setupRedis(t)
	p := NewPublisherWithClient(client, "k", time.Minute)

	require.NoError(t, p.Publish(context.Background(), testPage()))
	mr.FastForward(2 * time.Minute)

	assert.False(t, mr.Exists("k"))
}

func TestPublisher_ZeroTTLNeverExpires(t *testing.T) {
	mr, client := setupRedis(t)
	p := NewPublisherWithClient(client, "k", 0)

	require.NoError(t, p.Publish(context.Background(), testPage()))
	assert.Zero(t, mr.TTL("k"))
}

func TestPublisher_ReportsRedisErrors(t *testing.T) {
	mr, client := setupRedis(t)
	p := NewPublisherWithClient(client, "k", time.Minute)
	mr.Close()

	err := p.Publish(context.Background(), testPage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write catalog snapshot")
}

func TestNewPublisher(t *testing.T) {
	mr := miniredis.RunT(t)

	p, err := NewPublisher(context.Background(), Config{Addr: mr.Addr(), Key: "k", TTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	require.NoError(t, p.Publish(context.Background(), testPage()))
	assert.True(t, mr.Exists("k"))
}

func TestNewPublisher_FailsWhenRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewPublisher(context.Background(), Config{Addr: addr, Key: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestPublisher_CloseLeavesSharedClientOpen(t *testing.T) {
	_, client := setupRedis(t)
	p := NewPublisherWithClient(client, "k", time.Minute)

	require.NoError(t, p.Close())
	assert.NoError(t, client.Ping(context.Background()).Err())
}
