package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newLocal(t *testing.T) (*Cache, *time.Time) {
	c := New(zaptest.NewLogger(t).Sugar(), nil, "")
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestSetGet(t *testing.T) {
	c, _ := newLocal(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "user_name:1", "Alice", time.Minute))

	v, err := c.Get(ctx, "user_name:1")
	require.NoError(t, err)
	require.Equal(t, "Alice", v)

	v, err = c.Get(ctx, "user_name:2")
	require.NoError(t, err)
	require.Empty(t, v)
}

func TestExpiry(t *testing.T) {
	c, now := newLocal(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
	*now = now.Add(2 * time.Minute)

	v, err := c.Get(ctx, "key")
	require.NoError(t, err)
	require.Empty(t, v)

	c.deleteExpired()
	require.Empty(t, c.hashmap)
}

func TestDelete(t *testing.T) {
	c, _ := newLocal(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
	require.NoError(t, c.Delete(ctx, "key"))
	require.NoError(t, c.Delete(ctx, "never-set"))

	v, err := c.Get(ctx, "key")
	require.NoError(t, err)
	require.Empty(t, v)
}

func TestRunStopsWithContext(t *testing.T) {
	c, _ := newLocal(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run didn't return after cancel")
	}
}
