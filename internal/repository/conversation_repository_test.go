package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"hr-assistant-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestMemoryContextStore_TTL(t *testing.T) {
	clock := &manualClock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	store, err := NewContextStore(ContextStoreMemory, WithContextTTL(15*time.Minute), WithStoreClock(clock.Now))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, "E1")
	assert.ErrorIs(t, err, ErrContextNotFound)

	require.NoError(t, store.Save(ctx, &model.ConversationContext{UserID: "E1", LastIntent: model.IntentLeave}))
	got, err := store.Get(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, model.IntentLeave, got.LastIntent)
	assert.Equal(t, clock.Now(), got.Timestamp)

	clock.Advance(15 * time.Minute)
	_, err = store.Get(ctx, "E1")
	assert.NoError(t, err, "exactly at the TTL the record is still live")

	clock.Advance(time.Second)
	_, err = store.Get(ctx, "E1")
	assert.ErrorIs(t, err, ErrContextNotFound)
}

func TestMemoryContextStore_LastWriteWinsAndSweep(t *testing.T) {
	clock := &manualClock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	s, err := NewContextStore(ContextStoreMemory, WithContextTTL(time.Minute), WithStoreClock(clock.Now))
	require.NoError(t, err)
	store := s.(*memoryContextStore)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &model.ConversationContext{UserID: "E1", LastMessage: "uno"}))
	require.NoError(t, store.Save(ctx, &model.ConversationContext{UserID: "E1", LastMessage: "dos"}))
	got, err := store.Get(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "dos", got.LastMessage)

	clock.Advance(2 * time.Minute)
	require.NoError(t, store.Save(ctx, &model.ConversationContext{UserID: "E2"}))
	assert.Len(t, store.records, 1, "expired records are swept on save")

	got.LastMessage = "mutated"
	again, err := store.Get(ctx, "E2")
	require.NoError(t, err)
	assert.Empty(t, again.LastMessage)

	require.NoError(t, store.Delete(ctx, "E2"))
	_, err = store.Get(ctx, "E2")
	assert.ErrorIs(t, err, ErrContextNotFound)
}

func TestNewContextStore_Validation(t *testing.T) {
	_, err := NewContextStore(ContextStoreRedis)
	assert.ErrorIs(t, err, ErrInvalidStoreType)

	_, err = NewContextStore("memcached")
	assert.ErrorIs(t, err, ErrInvalidStoreType)
}
