package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_ExclusiveByName(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	release, err := locker.Lock(ctx, "period-close", time.Second)
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "period-close", 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrNotObtained)

	other, err := locker.Lock(ctx, "another", 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx), "double release is harmless")

	again, err := locker.Lock(ctx, "period-close", 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestLocalLocker_ContextCancelled(t *testing.T) {
	locker := NewLocalLocker()
	release, err := locker.Lock(context.Background(), "period-close", 0)
	require.NoError(t, err)
	defer release(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Lock(ctx, "period-close", 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalLocker_SerialisesHolders(t *testing.T) {
	locker := NewLocalLocker()
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(context.Background(), "period-close", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			_ = release(context.Background())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
}
