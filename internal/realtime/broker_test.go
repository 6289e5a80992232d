package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehmann314159/folio/internal/models"
)

func newBroker(t *testing.T) (*Broker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	b := NewBrokerWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { b.Close() })
	return b, mr
}

func TestPublishSubscribe(t *testing.T) {
	b, _ := newBroker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := b.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	first := []models.Message{{ID: "a", UserID: "u", UserName: "Ann", Content: "hi"}}
	second := []models.Message{{ID: "b", Content: "newer"}, first[0]}
	require.NoError(t, b.Publish(ctx, first))
	require.NoError(t, b.Publish(ctx, second))

	got := <-sub.Snapshots()
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	got = <-sub.Snapshots()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
}

func TestUndecodablePayloadGoesToErrors(t *testing.T) {
	b, mr := newBroker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := b.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	mr.Publish(DefaultChannel, "{not json")
	require.NoError(t, b.Publish(ctx, nil))

	select {
	case err := <-sub.Errors():
		assert.ErrorContains(t, err, "failed to decode snapshot")
	case <-ctx.Done():
		t.Fatal("no decode error reported")
	}

	got, ok := <-sub.Snapshots()
	require.True(t, ok, "subscription survives a bad payload")
	assert.Empty(t, got)
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	b, _ := newBroker(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := b.Subscribe(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-sub.Snapshots():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("snapshot channel not closed")
	}
}

func TestNewBrokerRejectsBadURL(t *testing.T) {
	_, err := NewBroker("not a url", "")
	assert.Error(t, err)
}
